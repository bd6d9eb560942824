package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
	"github.com/google/uuid"
)

type CreateService struct {
	uow             application.UnitOfWork
	defaultDueDays  int
	defaultCurrency string
	logger          *slog.Logger
}

func NewCreateService(
	uow application.UnitOfWork,
	defaultDueDays int,
	defaultCurrency string,
	logger *slog.Logger,
) *CreateService {
	if defaultDueDays <= 0 {
		defaultDueDays = 30
	}
	if defaultCurrency == "" {
		defaultCurrency = domain.DefaultCurrency
	}
	return &CreateService{
		uow:             uow,
		defaultDueDays:  defaultDueDays,
		defaultCurrency: defaultCurrency,
		logger:          logger,
	}
}

// Create issues one invoice per order. An existing invoice for the same order is
// returned with AlreadyInState.
func (s *CreateService) Create(ctx context.Context, cmd CreateInvoiceCommand) (*Result, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}

	invoice, err := s.buildInvoice(cmd)
	if err != nil {
		return nil, err
	}

	var result *Result
	err = s.uow.WithinTransaction(ctx, func(ctx context.Context, repos application.Repositories) error {
		existing, err := repos.Invoices.FindByOrderID(ctx, cmd.OrderID)
		if err == nil {
			result = &Result{Invoice: existing, Outcome: domain.AlreadyInState}
			return nil
		}
		if !isNotFound(err) {
			return err
		}

		if err := repos.Invoices.Create(ctx, invoice); err != nil {
			return err
		}
		result = &Result{Invoice: invoice, Outcome: domain.Applied}
		return nil
	})
	if err != nil {
		// A concurrent create for the same order won the unique constraint.
		if domain.IsErrorCode(err, domain.ErrCodeDuplicateOrder) {
			return s.existing(ctx, cmd.OrderID)
		}
		return nil, err
	}

	if result.Outcome == domain.Applied {
		s.logger.Info("invoice created",
			"invoice_id", result.Invoice.ID,
			"order_id", result.Invoice.OrderID,
			"total", result.Invoice.TotalAmount().String())
	}
	return result, nil
}

func (s *CreateService) existing(ctx context.Context, orderID string) (*Result, error) {
	var result *Result
	err := s.uow.WithinTransaction(ctx, func(ctx context.Context, repos application.Repositories) error {
		inv, err := repos.Invoices.FindByOrderID(ctx, orderID)
		if err != nil {
			return err
		}
		result = &Result{Invoice: inv, Outcome: domain.AlreadyInState}
		return nil
	})
	return result, err
}

func (s *CreateService) buildInvoice(cmd CreateInvoiceCommand) (*domain.Invoice, error) {
	currency := cmd.Currency
	if currency == "" {
		currency = s.defaultCurrency
	}

	items := make([]domain.InvoiceItem, 0, len(cmd.Items))
	for _, ic := range cmd.Items {
		item, err := buildItem(ic, currency)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	tax, err := optionalMoney(cmd.Tax, currency)
	if err != nil {
		return nil, err
	}
	discount, err := optionalMoney(cmd.Discount, currency)
	if err != nil {
		return nil, err
	}

	dueDate := time.Now().UTC().AddDate(0, 0, s.defaultDueDays)
	if cmd.DueDate != nil {
		dueDate = *cmd.DueDate
	}

	return domain.NewInvoice(domain.NewInvoiceParams{
		ID:       uuid.New().String(),
		OrderID:  cmd.OrderID,
		UserID:   cmd.UserID,
		Items:    items,
		DueDate:  dueDate,
		Tax:      tax,
		Discount: discount,
		Notes:    cmd.Notes,
	})
}
