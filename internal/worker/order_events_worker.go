package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
	"github.com/DanielPopoola/ficmart-invoicing/internal/application/services"
	"github.com/DanielPopoola/ficmart-invoicing/internal/infrastructure/messaging"
)

const maxRetryDelay = 30 * time.Second

type OrderEventHandler interface {
	Handle(ctx context.Context, event services.OrderEvent) error
}

type MessageSource interface {
	Consume(ctx context.Context, handler messaging.Handler) error
}

// OrderEventsWorker feeds order.* messages to the choreography handlers.
// Retryable failures block the partition and are retried with backoff until ctx ends;
// malformed messages and permanent failures are logged and skipped.
type OrderEventsWorker struct {
	source    MessageSource
	handler   OrderEventHandler
	baseDelay time.Duration
	logger    *slog.Logger
}

func NewOrderEventsWorker(source MessageSource, handler OrderEventHandler, baseDelay time.Duration, logger *slog.Logger) *OrderEventsWorker {
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return &OrderEventsWorker{
		source:    source,
		handler:   handler,
		baseDelay: baseDelay,
		logger:    logger,
	}
}

// Start consumes until ctx is cancelled, restarting the consumer after unexpected failures.
func (w *OrderEventsWorker) Start(ctx context.Context) {
	w.logger.Info("order events worker started")
	for {
		err := w.source.Consume(ctx, w.HandleMessage)
		if ctx.Err() != nil {
			w.logger.Info("order events worker stopping")
			return
		}
		w.logger.Error("order events consumer stopped", "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.baseDelay):
		}
	}
}

// HandleMessage returns an error only when ctx ends mid-retry, leaving the offset uncommitted.
func (w *OrderEventsWorker) HandleMessage(ctx context.Context, key string, payload []byte) error {
	var event services.OrderEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		w.logger.Error("dropping malformed order event", "key", key, "error", err)
		return nil
	}

	for attempt := 0; ; attempt++ {
		err := w.handler.Handle(ctx, event)
		if err == nil {
			return nil
		}

		if !application.IsRetryable(err) {
			w.logger.Error("order event failed permanently",
				"event_type", event.EventType,
				"order_id", event.OrderID,
				"category", application.CategorizeError(err),
				"error", err)
			return nil
		}

		delay := w.backoff(attempt)
		w.logger.Warn("order event failed, retrying",
			"event_type", event.EventType,
			"order_id", event.OrderID,
			"attempt", attempt+1,
			"retry_in", delay,
			"error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (w *OrderEventsWorker) backoff(attempt int) time.Duration {
	if attempt > 10 {
		return maxRetryDelay
	}
	return min(w.baseDelay*time.Duration(1<<attempt), maxRetryDelay)
}
