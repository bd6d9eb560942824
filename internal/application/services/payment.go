package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
)

type PaymentService struct {
	invoices  application.InvoiceRepository
	uow       application.UnitOfWork
	processor application.PaymentProcessor
	logger    *slog.Logger
}

func NewPaymentService(
	invoices application.InvoiceRepository,
	uow application.UnitOfWork,
	processor application.PaymentProcessor,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		invoices:  invoices,
		uow:       uow,
		processor: processor,
		logger:    logger,
	}
}

// ProcessPayment opens a hosted checkout for the invoice and stores the pending
// payment details. The invoice is settled later by the gateway webhook.
func (s *PaymentService) ProcessPayment(ctx context.Context, cmd ProcessPaymentCommand) (*PaymentResult, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}

	invoice, err := s.invoices.FindByID(ctx, cmd.InvoiceID)
	if err != nil {
		return nil, err
	}
	if err := ensurePayable(invoice); err != nil {
		return nil, err
	}

	amount, err := paymentAmount(invoice, cmd)
	if err != nil {
		return nil, err
	}

	// The gateway call stays outside the transaction so no row lock is held over the network.
	details, err := s.processor.ProcessPayment(ctx, application.PaymentRequest{
		InvoiceID:       invoice.ID,
		UserID:          invoice.UserID,
		Amount:          amount,
		Method:          domain.ParsePaymentMethod(cmd.PaymentMethod),
		Processor:       cmd.Processor,
		SuccessURL:      cmd.SuccessURL,
		FailureURL:      cmd.FailureURL,
		WebhookEndpoint: cmd.WebhookEndpoint,
		Locale:          cmd.Locale,
		CustomerID:      cmd.CustomerID,
		Customer:        cmd.Customer,
		Items:           cmd.Items,
	})
	if err != nil {
		s.logger.Error("payment processing failed",
			"invoice_id", invoice.ID,
			"error", err)
		return nil, err
	}

	err = s.uow.WithinTransaction(ctx, func(ctx context.Context, repos application.Repositories) error {
		locked, err := repos.Invoices.FindByIDForUpdate(ctx, invoice.ID)
		if err != nil {
			return err
		}
		outcome, err := locked.ProcessPayment(details)
		if err != nil {
			return err
		}
		invoice = locked
		if outcome == domain.AlreadyInState {
			return nil
		}
		return repos.Invoices.Update(ctx, locked)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("checkout created",
		"invoice_id", invoice.ID,
		"transaction_id", details.TransactionID(),
		"amount", amount.String())

	return &PaymentResult{
		Invoice:     invoice,
		Details:     details,
		CheckoutURL: s.processor.PaymentURL(details),
	}, nil
}

func ensurePayable(invoice *domain.Invoice) error {
	switch invoice.Status {
	case domain.StatusPaid:
		return domain.NewInvalidStateError(domain.ErrCodeInvoiceAlreadyPaid,
			fmt.Sprintf("invoice %s is already paid", invoice.ID))
	case domain.StatusCancelled:
		return domain.NewInvalidStateError(domain.ErrCodeInvoiceCancelled,
			fmt.Sprintf("cannot pay cancelled invoice %s", invoice.ID))
	}
	return nil
}

// paymentAmount defaults to the invoice total and refuses partial payments.
func paymentAmount(invoice *domain.Invoice, cmd ProcessPaymentCommand) (domain.Money, error) {
	total := invoice.TotalAmount()
	if cmd.Amount == nil {
		return total, nil
	}

	currency := cmd.Currency
	if currency == "" {
		currency = total.Currency()
	}
	amount, err := domain.NewMoney(*cmd.Amount, currency)
	if err != nil {
		return domain.Money{}, err
	}

	less, err := amount.LessThan(total)
	if err != nil {
		return domain.Money{}, domain.NewPaymentProcessingError(invoice.ID, err.Error(), err)
	}
	if less {
		return domain.Money{}, domain.NewPaymentProcessingError(invoice.ID,
			fmt.Sprintf("payment amount %s is less than invoice total %s", amount, total), nil)
	}
	return amount, nil
}
