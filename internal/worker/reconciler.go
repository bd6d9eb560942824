package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application/services"
)

type Settler interface {
	SettleStale(ctx context.Context, minAge time.Duration, batchSize int) (services.SettlementReport, error)
}

// Reconciler periodically verifies checkouts whose webhook is overdue.
// Unconfirmed checkouts stay candidates, so each tick processes a single batch.
type Reconciler struct {
	settler   Settler
	interval  time.Duration
	minAge    time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewReconciler(settler Settler, interval, minAge time.Duration, batchSize int, logger *slog.Logger) *Reconciler {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Reconciler{
		settler:   settler,
		interval:  interval,
		minAge:    minAge,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (r *Reconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("starting checkout reconciler", "interval", r.interval, "min_age", r.minAge, "batch_size", r.batchSize)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("stopping checkout reconciler")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce executes a single reconciliation cycle.
func (r *Reconciler) RunOnce(ctx context.Context) services.SettlementReport {
	report, err := r.settler.SettleStale(ctx, r.minAge, r.batchSize)
	if err != nil {
		r.logger.Error("checkout reconciliation failed", "error", err)
		return report
	}
	if report.Checked > 0 {
		r.logger.Info("checkout reconciliation finished",
			"checked", report.Checked,
			"settled", report.Settled,
			"unpaid", report.Unpaid,
			"failed", report.Failed)
	}
	return report
}
