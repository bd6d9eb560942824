package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
)

// tracker remembers the invoices written inside one transaction, in first-write order.
type tracker struct {
	invoices []*domain.Invoice
}

func (t *tracker) add(inv *domain.Invoice) {
	if !slices.Contains(t.invoices, inv) {
		t.invoices = append(t.invoices, inv)
	}
}

func (t *tracker) pull() []domain.Event {
	var events []domain.Event
	for _, inv := range t.invoices {
		events = append(events, inv.PullEvents()...)
	}
	return events
}

func (t *tracker) ids() []string {
	ids := make([]string, 0, len(t.invoices))
	for _, inv := range t.invoices {
		ids = append(ids, inv.ID)
	}
	return ids
}

type UnitOfWork struct {
	db        *DB
	publisher application.EventPublisher
	cache     application.InvoiceCache
	logger    *slog.Logger
}

// NewUnitOfWork publishes to publisher after every successful commit. publisher may be nil.
func NewUnitOfWork(db *DB, publisher application.EventPublisher, logger *slog.Logger) *UnitOfWork {
	return &UnitOfWork{db: db, publisher: publisher, logger: logger}
}

// WithInvoiceCache evicts written invoices from cache after each commit.
func (u *UnitOfWork) WithInvoiceCache(cache application.InvoiceCache) *UnitOfWork {
	u.cache = cache
	return u
}

func (u *UnitOfWork) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos application.Repositories) error) error {
	tx, err := u.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	t := &tracker{}
	repos := application.Repositories{
		Invoices: &InvoiceRepository{q: tx, tracker: t},
		Webhooks: &WebhookLedger{q: tx},
	}

	if err := fn(ctx, repos); err != nil {
		t.pull()
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		t.pull()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.evict(t.ids())
	u.publish(ctx, t.pull())
	return nil
}

func (u *UnitOfWork) evict(ids []string) {
	if u.cache == nil {
		return
	}
	for _, id := range ids {
		u.cache.Remove(id)
	}
}

// publish never fails the caller; the transaction has already committed.
func (u *UnitOfWork) publish(ctx context.Context, events []domain.Event) {
	if u.publisher == nil {
		return
	}
	for _, event := range events {
		if err := u.publisher.Publish(ctx, event); err != nil {
			u.logger.Error("failed to publish event",
				"event_type", event.EventType(),
				"invoice_id", event.AggregateID(),
				"error", err,
			)
		}
	}
}
