package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
)

type OverdueService struct {
	invoices application.InvoiceRepository
	uow      application.UnitOfWork
	logger   *slog.Logger
}

func NewOverdueService(invoices application.InvoiceRepository, uow application.UnitOfWork, logger *slog.Logger) *OverdueService {
	return &OverdueService{invoices: invoices, uow: uow, logger: logger}
}

type OverdueReport struct {
	Checked int
	Marked  int
	Failed  int
}

// MarkOverdue flips past-due pending invoices to OVERDUE, one transaction per invoice.
func (s *OverdueService) MarkOverdue(ctx context.Context, batchSize int) (OverdueReport, error) {
	var report OverdueReport

	candidates, err := s.invoices.FindDueForOverdue(ctx, time.Now().UTC(), batchSize)
	if err != nil {
		return report, err
	}
	report.Checked = len(candidates)

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		err := s.uow.WithinTransaction(ctx, func(ctx context.Context, repos application.Repositories) error {
			inv, err := repos.Invoices.FindByIDForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if err := inv.MarkAsOverdue(); err != nil {
				return err
			}
			return repos.Invoices.Update(ctx, inv)
		})
		switch {
		case err == nil:
			report.Marked++
		case errors.Is(err, domain.ErrInvalidState):
			// Paid or cancelled between the scan and the lock.
			s.logger.Debug("skipping invoice no longer eligible for overdue",
				"invoice_id", candidate.ID,
				"error", err)
		default:
			report.Failed++
			s.logger.Error("failed to mark invoice overdue",
				"invoice_id", candidate.ID,
				"error", err)
		}
	}

	return report, nil
}
