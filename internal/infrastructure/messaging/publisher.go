package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
	"github.com/segmentio/kafka-go"
)

const eventTypeHeader = "event_type"

// EventPublisher sends invoice events to Kafka, keyed by invoice id so every
// event for one invoice lands on the same partition in order.
type EventPublisher struct {
	producer *Producer
	logger   *slog.Logger
}

func NewEventPublisher(producer *Producer, logger *slog.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, logger: logger}
}

func (p *EventPublisher) Publish(ctx context.Context, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.EventType(), err)
	}

	if err := p.producer.Send(ctx, event.AggregateID(), data,
		kafka.Header{Key: eventTypeHeader, Value: []byte(event.EventType())},
	); err != nil {
		return fmt.Errorf("publish %s for invoice %s: %w", event.EventType(), event.AggregateID(), err)
	}

	p.logger.Debug("event published",
		"event_type", event.EventType(),
		"invoice_id", event.AggregateID(),
		"topic", p.producer.Topic(),
	)
	return nil
}

func (p *EventPublisher) Close() error {
	return p.producer.Close()
}

// LogPublisher stands in for Kafka when the broker is disabled.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, event domain.Event) error {
	p.logger.Info("event",
		"event_type", event.EventType(),
		"invoice_id", event.AggregateID(),
		"occurred_at", event.OccurredAt(),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
