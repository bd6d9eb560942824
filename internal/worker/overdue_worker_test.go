package worker_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application/services"
	"github.com/DanielPopoola/ficmart-invoicing/internal/application/services/testhelpers"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
	"github.com/DanielPopoola/ficmart-invoicing/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type markerFunc func(ctx context.Context, batchSize int) (services.OverdueReport, error)

func (f markerFunc) MarkOverdue(ctx context.Context, batchSize int) (services.OverdueReport, error) {
	return f(ctx, batchSize)
}

func TestOverdueWorker_RunOnce(t *testing.T) {
	t.Run("drains all past-due invoices across batches", func(t *testing.T) {
		publisher := &testhelpers.RecordingPublisher{}
		store := testhelpers.NewInMemoryStore(publisher)
		var ids []string
		for range 3 {
			inv := testhelpers.WithDueDate(testhelpers.NewPendingInvoice(t), time.Now().Add(-time.Hour))
			store.Seed(inv)
			ids = append(ids, inv.ID)
		}
		future := testhelpers.NewPendingInvoice(t)
		store.Seed(future)

		svc := services.NewOverdueService(store.Repository(), store, discardLogger())
		w := worker.NewOverdueWorker(svc, time.Minute, 2, discardLogger())

		report := w.RunOnce(context.Background())

		assert.Equal(t, 3, report.Marked)
		assert.Zero(t, report.Failed)
		for _, id := range ids {
			inv, ok := store.Get(id)
			require.True(t, ok)
			assert.Equal(t, domain.StatusOverdue, inv.Status)
		}
		untouched, _ := store.Get(future.ID)
		assert.Equal(t, domain.StatusPending, untouched.Status)
		assert.Contains(t, publisher.Types(), domain.EventInvoiceOverdue)
	})

	t.Run("stops when a batch marks nothing", func(t *testing.T) {
		calls := 0
		w := worker.NewOverdueWorker(markerFunc(func(context.Context, int) (services.OverdueReport, error) {
			calls++
			return services.OverdueReport{Checked: 5, Failed: 5}, nil
		}), time.Minute, 5, discardLogger())

		report := w.RunOnce(context.Background())

		assert.Equal(t, 1, calls)
		assert.Equal(t, 5, report.Failed)
	})

	t.Run("stops on scan error", func(t *testing.T) {
		calls := 0
		w := worker.NewOverdueWorker(markerFunc(func(context.Context, int) (services.OverdueReport, error) {
			calls++
			return services.OverdueReport{}, errors.New("db down")
		}), time.Minute, 5, discardLogger())

		w.RunOnce(context.Background())

		assert.Equal(t, 1, calls)
	})
}

func TestOverdueWorker_StartStopsOnCancel(t *testing.T) {
	runs := make(chan struct{}, 10)
	w := worker.NewOverdueWorker(markerFunc(func(context.Context, int) (services.OverdueReport, error) {
		runs <- struct{}{}
		return services.OverdueReport{}, nil
	}), 10*time.Millisecond, 5, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	<-runs
	<-runs
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
