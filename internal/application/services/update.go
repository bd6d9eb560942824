package services

import (
	"context"
	"log/slog"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
)

type UpdateService struct {
	uow    application.UnitOfWork
	logger *slog.Logger
}

func NewUpdateService(uow application.UnitOfWork, logger *slog.Logger) *UpdateService {
	return &UpdateService{uow: uow, logger: logger}
}

func (s *UpdateService) Update(ctx context.Context, cmd UpdateInvoiceCommand) (*domain.Invoice, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}

	return s.mutate(ctx, cmd.InvoiceID, func(inv *domain.Invoice) error {
		currency := inv.Currency()
		if cmd.Tax != nil {
			tax, err := domain.NewMoney(*cmd.Tax, currency)
			if err != nil {
				return err
			}
			if err := inv.ApplyTax(tax); err != nil {
				return err
			}
		}
		if cmd.Discount != nil {
			discount, err := domain.NewMoney(*cmd.Discount, currency)
			if err != nil {
				return err
			}
			if err := inv.ApplyDiscount(discount); err != nil {
				return err
			}
		}
		if cmd.Notes != nil {
			if err := inv.AddNotes(*cmd.Notes); err != nil {
				return err
			}
		}
		if cmd.ExtendDays != nil {
			if err := inv.ExtendDueDate(*cmd.ExtendDays); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *UpdateService) AddItem(ctx context.Context, cmd AddItemCommand) (*domain.Invoice, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}

	return s.mutate(ctx, cmd.InvoiceID, func(inv *domain.Invoice) error {
		item, err := buildItem(cmd.Item, inv.Currency())
		if err != nil {
			return err
		}
		return inv.AddItem(item)
	})
}

func (s *UpdateService) RemoveItem(ctx context.Context, invoiceID, itemID string) (*domain.Invoice, error) {
	if invoiceID == "" || itemID == "" {
		return nil, domain.NewMissingRequiredFieldError("invoice ID and item ID")
	}

	return s.mutate(ctx, invoiceID, func(inv *domain.Invoice) error {
		return inv.RemoveItem(itemID)
	})
}

func (s *UpdateService) UpdateItem(ctx context.Context, cmd UpdateItemCommand) (*domain.Invoice, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}

	return s.mutate(ctx, cmd.InvoiceID, func(inv *domain.Invoice) error {
		update := domain.ItemUpdate{Quantity: cmd.Quantity, Description: cmd.Description}
		if cmd.UnitPrice != nil {
			price, err := domain.NewMoney(*cmd.UnitPrice, inv.Currency())
			if err != nil {
				return err
			}
			update.UnitPrice = &price
		}
		return inv.UpdateItem(cmd.ItemID, update)
	})
}

// mutate loads the invoice under a row lock, applies fn and persists the result.
func (s *UpdateService) mutate(ctx context.Context, invoiceID string, fn func(*domain.Invoice) error) (*domain.Invoice, error) {
	var invoice *domain.Invoice
	err := s.uow.WithinTransaction(ctx, func(ctx context.Context, repos application.Repositories) error {
		inv, err := repos.Invoices.FindByIDForUpdate(ctx, invoiceID)
		if err != nil {
			return err
		}
		if err := fn(inv); err != nil {
			return err
		}
		invoice = inv
		return repos.Invoices.Update(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invoice updated", "invoice_id", invoiceID, "status", invoice.Status)
	return invoice, nil
}
