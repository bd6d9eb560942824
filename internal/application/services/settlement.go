package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
)

const settlementStatus = "paid"

// SettlementService settles invoices whose checkout was paid but whose webhook never arrived.
type SettlementService struct {
	invoices  application.InvoiceRepository
	uow       application.UnitOfWork
	processor application.PaymentProcessor
	logger    *slog.Logger
}

func NewSettlementService(
	invoices application.InvoiceRepository,
	uow application.UnitOfWork,
	processor application.PaymentProcessor,
	logger *slog.Logger,
) *SettlementService {
	return &SettlementService{
		invoices:  invoices,
		uow:       uow,
		processor: processor,
		logger:    logger,
	}
}

type SettlementReport struct {
	Checked int
	Settled int
	Unpaid  int
	Skipped int
	Failed  int
}

// SettleStale verifies open checkouts untouched for at least minAge and settles the confirmed ones.
// Checkouts left open are stamped so the next batch starts with ones never checked.
// The ledger entry it writes makes a late webhook for the same checkout a duplicate.
func (s *SettlementService) SettleStale(ctx context.Context, minAge time.Duration, batchSize int) (SettlementReport, error) {
	var report SettlementReport

	candidates, err := s.invoices.FindAwaitingSettlement(ctx, time.Now().UTC().Add(-minAge), batchSize)
	if err != nil {
		return report, err
	}
	report.Checked = len(candidates)

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		checkout := candidate.PaymentDetails
		if checkout == nil {
			report.Skipped++
			continue
		}

		// The gateway call stays outside the transaction.
		if !s.processor.VerifyPayment(ctx, checkout.TransactionID()) {
			report.Unpaid++
			s.markVerified(ctx, candidate.ID, checkout.TransactionID())
			continue
		}

		settled, err := s.settle(ctx, candidate.ID, *checkout)
		switch {
		case err != nil:
			report.Failed++
			s.logger.Error("failed to settle verified checkout",
				"invoice_id", candidate.ID,
				"transaction_id", checkout.TransactionID(),
				"error", err)
			s.markVerified(ctx, candidate.ID, checkout.TransactionID())
		case settled:
			report.Settled++
			s.logger.Info("invoice settled from verified checkout",
				"invoice_id", candidate.ID,
				"transaction_id", checkout.TransactionID())
		default:
			report.Skipped++
			s.markVerified(ctx, candidate.ID, checkout.TransactionID())
		}
	}

	return report, nil
}

// markVerified moves a still-open checkout behind unchecked ones for the next batch.
func (s *SettlementService) markVerified(ctx context.Context, invoiceID, transactionID string) {
	if err := s.invoices.MarkVerified(ctx, invoiceID, transactionID, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to stamp checkout verification",
			"invoice_id", invoiceID,
			"transaction_id", transactionID,
			"error", err)
	}
}

func (s *SettlementService) settle(ctx context.Context, invoiceID string, checkout domain.PaymentDetails) (bool, error) {
	gateway := checkout.Info()["processor"]
	if gateway == "" {
		gateway = "unknown"
	}

	settled := false
	err := s.uow.WithinTransaction(ctx, func(ctx context.Context, repos application.Repositories) error {
		settled = false

		invoice, err := repos.Invoices.FindByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		current := invoice.PaymentDetails
		if current == nil || current.TransactionID() != checkout.TransactionID() || current.IsPaymentComplete() {
			return nil
		}

		seen, err := repos.Webhooks.Exists(ctx, gateway, checkout.TransactionID())
		if err != nil || seen {
			return err
		}

		outcome, err := invoice.ProcessPayment(completedCheckout(checkout))
		if err != nil {
			return err
		}
		if outcome == domain.AlreadyInState {
			return nil
		}
		if err := repos.Invoices.Update(ctx, invoice); err != nil {
			return err
		}
		settled = true

		return repos.Webhooks.Record(ctx, application.ProcessedWebhook{
			Gateway:       gateway,
			TransactionID: checkout.TransactionID(),
			InvoiceID:     invoice.ID,
			Status:        settlementStatus,
			ReceivedAt:    time.Now().UTC(),
		})
	})
	if errors.Is(err, domain.ErrInvalidState) {
		return false, nil
	}
	return settled, err
}

func completedCheckout(checkout domain.PaymentDetails) domain.PaymentDetails {
	paidAt := time.Now().UTC()
	info := checkout.Info()
	if info == nil {
		info = make(map[string]string, 1)
	}
	info["settled_by"] = "verification"

	params := domain.PaymentDetailsParams{
		Method:           checkout.Method(),
		TransactionID:    checkout.TransactionID(),
		PaymentDate:      &paidAt,
		PayerName:        checkout.PayerName(),
		PaymentReference: checkout.PaymentReference(),
		Info:             info,
	}
	if amount, ok := checkout.Amount(); ok {
		params.Amount = &amount
	}
	return domain.NewPaymentDetails(params)
}
