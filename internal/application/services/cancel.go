package services

import (
	"context"
	"log/slog"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
)

type CancelService struct {
	uow    application.UnitOfWork
	logger *slog.Logger
}

func NewCancelService(uow application.UnitOfWork, logger *slog.Logger) *CancelService {
	return &CancelService{uow: uow, logger: logger}
}

func (s *CancelService) Cancel(ctx context.Context, cmd CancelInvoiceCommand) (*Result, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}

	var result *Result
	err := s.uow.WithinTransaction(ctx, func(ctx context.Context, repos application.Repositories) error {
		invoice, err := repos.Invoices.FindByIDForUpdate(ctx, cmd.InvoiceID)
		if err != nil {
			return err
		}

		outcome, err := invoice.Cancel(cmd.Reason)
		if err != nil {
			return err
		}
		result = &Result{Invoice: invoice, Outcome: outcome}
		if outcome == domain.AlreadyInState {
			return nil
		}
		return repos.Invoices.Update(ctx, invoice)
	})
	if err != nil {
		return nil, err
	}

	if result.Outcome == domain.Applied {
		s.logger.Info("invoice cancelled", "invoice_id", cmd.InvoiceID, "reason", cmd.Reason)
	}
	return result, nil
}
