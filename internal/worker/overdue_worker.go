package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application/services"
)

type OverdueMarker interface {
	MarkOverdue(ctx context.Context, batchSize int) (services.OverdueReport, error)
}

// OverdueWorker periodically flips past-due PENDING invoices to OVERDUE.
type OverdueWorker struct {
	marker    OverdueMarker
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewOverdueWorker(marker OverdueMarker, interval time.Duration, batchSize int, logger *slog.Logger) *OverdueWorker {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OverdueWorker{
		marker:    marker,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (w *OverdueWorker) Start(ctx context.Context) {
	w.logger.Info("overdue worker started", "interval", w.interval, "batch_size", w.batchSize)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("overdue worker stopping")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce drains every eligible invoice, batch by batch. A batch that marks nothing ends the cycle.
func (w *OverdueWorker) RunOnce(ctx context.Context) services.OverdueReport {
	var total services.OverdueReport

	for ctx.Err() == nil {
		report, err := w.marker.MarkOverdue(ctx, w.batchSize)
		total.Checked += report.Checked
		total.Marked += report.Marked
		total.Failed += report.Failed
		if err != nil {
			w.logger.Error("overdue processing failed", "error", err)
			break
		}
		if report.Checked < w.batchSize || report.Marked == 0 {
			break
		}
	}

	if total.Checked > 0 {
		w.logger.Info("processed overdue check",
			"checked", total.Checked,
			"marked_overdue", total.Marked,
			"failed", total.Failed)
	}
	return total
}
