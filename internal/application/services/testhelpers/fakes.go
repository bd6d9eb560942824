package testhelpers

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
)

// ErrStaleInvoice mirrors the optimistic lock failure of the real repository.
var ErrStaleInvoice = errors.New("invoice was modified concurrently")

// InMemoryStore is a mutex-guarded invoice store that also acts as unit of work and webhook ledger.
type InMemoryStore struct {
	mu        sync.Mutex
	invoices  map[string]*domain.Invoice
	webhooks  map[string]application.ProcessedWebhook
	anomalies []application.PaymentAnomaly
	verified  map[string]verification

	publisher application.EventPublisher
	cache     application.InvoiceCache

	CreateFn        func(ctx context.Context, inv *domain.Invoice) error
	UpdateFn        func(ctx context.Context, inv *domain.Invoice) error
	FindByOrderIDFn func(ctx context.Context, orderID string) (*domain.Invoice, error)
	RecordFn        func(ctx context.Context, w application.ProcessedWebhook) error
}

func NewInMemoryStore(publisher application.EventPublisher) *InMemoryStore {
	return &InMemoryStore{
		invoices:  make(map[string]*domain.Invoice),
		webhooks:  make(map[string]application.ProcessedWebhook),
		verified:  make(map[string]verification),
		publisher: publisher,
	}
}

// UseCache makes committed transactions evict the invoices they wrote.
func (s *InMemoryStore) UseCache(cache application.InvoiceCache) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = cache
}

// Seed stores an invoice directly, bypassing events.
func (s *InMemoryStore) Seed(inv *domain.Invoice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices[inv.ID] = clone(inv)
}

func (s *InMemoryStore) Get(id string) (*domain.Invoice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return nil, false
	}
	return clone(inv), true
}

func (s *InMemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.invoices)
}

func (s *InMemoryStore) Anomalies() []application.PaymentAnomaly {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]application.PaymentAnomaly(nil), s.anomalies...)
}

// WithinTransaction serializes scopes and restores the previous state on error.
// On success it evicts written invoices from the cache, then publishes collected events.
func (s *InMemoryStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos application.Repositories) error) error {
	s.mu.Lock()
	snapshotInvoices := maps.Clone(s.invoices)
	snapshotWebhooks := maps.Clone(s.webhooks)
	snapshotVerified := maps.Clone(s.verified)
	snapshotAnomalies := len(s.anomalies)

	tx := &txRepo{store: s}
	err := fn(ctx, application.Repositories{Invoices: tx, Webhooks: tx})
	if err != nil {
		s.invoices = snapshotInvoices
		s.webhooks = snapshotWebhooks
		s.verified = snapshotVerified
		s.anomalies = s.anomalies[:snapshotAnomalies]
		for _, inv := range tx.touched {
			inv.PullEvents()
		}
		s.mu.Unlock()
		return err
	}
	cache := s.cache
	s.mu.Unlock()

	if cache != nil {
		for _, inv := range tx.touched {
			cache.Remove(inv.ID)
		}
	}
	if s.publisher == nil {
		return nil
	}
	for _, inv := range tx.touched {
		for _, event := range inv.PullEvents() {
			// Committed state stands even when the bus is down.
			_ = s.publisher.Publish(ctx, event)
		}
	}
	return nil
}

// Repository returns the non-transactional view of the store.
func (s *InMemoryStore) Repository() application.InvoiceRepository {
	return &lockingRepo{store: s}
}

type txRepo struct {
	store   *InMemoryStore
	touched []*domain.Invoice
}

func (r *txRepo) Create(ctx context.Context, inv *domain.Invoice) error {
	if r.store.CreateFn != nil {
		if err := r.store.CreateFn(ctx, inv); err != nil {
			return err
		}
	}
	for _, existing := range r.store.invoices {
		if existing.OrderID == inv.OrderID {
			return domain.NewInvalidStateError(domain.ErrCodeDuplicateOrder,
				fmt.Sprintf("invoice already exists for order %s", inv.OrderID))
		}
	}
	inv.Version = 1
	r.store.invoices[inv.ID] = clone(inv)
	r.touched = append(r.touched, inv)
	return nil
}

func (r *txRepo) Update(ctx context.Context, inv *domain.Invoice) error {
	if r.store.UpdateFn != nil {
		if err := r.store.UpdateFn(ctx, inv); err != nil {
			return err
		}
	}
	current, ok := r.store.invoices[inv.ID]
	if !ok {
		return domain.NewInvoiceNotFoundError(inv.ID)
	}
	if current.Version != inv.Version {
		return ErrStaleInvoice
	}
	inv.Version++
	r.store.invoices[inv.ID] = clone(inv)
	r.touched = append(r.touched, inv)
	return nil
}

func (r *txRepo) FindByID(_ context.Context, id string) (*domain.Invoice, error) {
	inv, ok := r.store.invoices[id]
	if !ok {
		return nil, domain.NewInvoiceNotFoundError(id)
	}
	return clone(inv), nil
}

func (r *txRepo) FindByIDForUpdate(ctx context.Context, id string) (*domain.Invoice, error) {
	return r.FindByID(ctx, id)
}

func (r *txRepo) FindByOrderID(ctx context.Context, orderID string) (*domain.Invoice, error) {
	if r.store.FindByOrderIDFn != nil {
		return r.store.FindByOrderIDFn(ctx, orderID)
	}
	for _, inv := range r.store.invoices {
		if inv.OrderID == orderID {
			return clone(inv), nil
		}
	}
	return nil, &domain.DomainError{
		Kind:    domain.ErrNotFound,
		Code:    domain.ErrCodeInvoiceNotFound,
		Message: fmt.Sprintf("invoice for order %s not found", orderID),
	}
}

func (r *txRepo) List(_ context.Context, filter application.InvoiceFilter) ([]*domain.Invoice, error) {
	var out []*domain.Invoice
	for _, inv := range r.sorted() {
		if filter.UserID != "" && inv.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		out = append(out, clone(inv))
	}
	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *txRepo) FindDueForOverdue(_ context.Context, asOf time.Time, limit int) ([]*domain.Invoice, error) {
	var out []*domain.Invoice
	for _, inv := range r.sorted() {
		if inv.Status == domain.StatusPending && !inv.DueDate.After(asOf) {
			out = append(out, clone(inv))
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *txRepo) FindDueBetween(_ context.Context, from, to time.Time) ([]*domain.Invoice, error) {
	var out []*domain.Invoice
	for _, inv := range r.sorted() {
		if inv.Status == domain.StatusPending && !inv.DueDate.Before(from) && !inv.DueDate.After(to) {
			out = append(out, clone(inv))
		}
	}
	return out, nil
}

// verification is the last gateway check of an invoice's open checkout.
type verification struct {
	transactionID string
	at            time.Time
}

func (r *txRepo) lastVerified(inv *domain.Invoice) (time.Time, bool) {
	v, ok := r.store.verified[inv.ID]
	if !ok || inv.PaymentDetails == nil || v.transactionID != inv.PaymentDetails.TransactionID() {
		return time.Time{}, false
	}
	return v.at, true
}

func (r *txRepo) FindAwaitingSettlement(_ context.Context, touchedBefore time.Time, limit int) ([]*domain.Invoice, error) {
	var candidates []*domain.Invoice
	for _, inv := range r.sorted() {
		if inv.Status.IsTerminal() || inv.PaymentDetails == nil || inv.UpdatedAt.After(touchedBefore) {
			continue
		}
		if inv.PaymentDetails.TransactionID() == "" || inv.PaymentDetails.IsPaymentComplete() {
			continue
		}
		candidates = append(candidates, inv)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, aok := r.lastVerified(candidates[i])
		b, bok := r.lastVerified(candidates[j])
		if aok != bok {
			return !aok
		}
		return a.Before(b)
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	out := make([]*domain.Invoice, 0, len(candidates))
	for _, inv := range candidates {
		out = append(out, clone(inv))
	}
	return out, nil
}

func (r *txRepo) MarkVerified(_ context.Context, invoiceID, transactionID string, at time.Time) error {
	inv, ok := r.store.invoices[invoiceID]
	if !ok || inv.PaymentDetails == nil || inv.PaymentDetails.TransactionID() != transactionID {
		return nil
	}
	r.store.verified[invoiceID] = verification{transactionID: transactionID, at: at}
	return nil
}

func (r *txRepo) Statistics(_ context.Context, userID string) ([]application.StatusTotal, error) {
	type key struct {
		status   domain.InvoiceStatus
		currency string
	}
	acc := map[key]*application.StatusTotal{}
	for _, inv := range r.store.invoices {
		if userID != "" && inv.UserID != userID {
			continue
		}
		k := key{inv.Status, inv.Currency()}
		row, ok := acc[k]
		if !ok {
			row = &application.StatusTotal{Status: k.status, Currency: k.currency}
			acc[k] = row
		}
		row.Count++
		row.Total = row.Total.Add(inv.TotalAmount().Amount())
	}
	out := make([]application.StatusTotal, 0, len(acc))
	for _, row := range acc {
		out = append(out, *row)
	}
	return out, nil
}

func (r *txRepo) Exists(_ context.Context, gateway, transactionID string) (bool, error) {
	_, ok := r.store.webhooks[gateway+"/"+transactionID]
	return ok, nil
}

func (r *txRepo) Record(ctx context.Context, w application.ProcessedWebhook) error {
	if r.store.RecordFn != nil {
		if err := r.store.RecordFn(ctx, w); err != nil {
			return err
		}
	}
	r.store.webhooks[w.Gateway+"/"+w.TransactionID] = w
	return nil
}

func (r *txRepo) RecordAnomaly(_ context.Context, a application.PaymentAnomaly) error {
	r.store.anomalies = append(r.store.anomalies, a)
	return nil
}

func (r *txRepo) sorted() []*domain.Invoice {
	out := make([]*domain.Invoice, 0, len(r.store.invoices))
	for _, inv := range r.store.invoices {
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// lockingRepo serves reads outside a transaction.
type lockingRepo struct {
	store *InMemoryStore
}

func (l *lockingRepo) with(fn func(r *txRepo) error) error {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return fn(&txRepo{store: l.store})
}

func (l *lockingRepo) Create(ctx context.Context, inv *domain.Invoice) error {
	return l.with(func(r *txRepo) error { return r.Create(ctx, inv) })
}

func (l *lockingRepo) Update(ctx context.Context, inv *domain.Invoice) error {
	return l.with(func(r *txRepo) error { return r.Update(ctx, inv) })
}

func (l *lockingRepo) FindByID(ctx context.Context, id string) (inv *domain.Invoice, err error) {
	err = l.with(func(r *txRepo) error { inv, err = r.FindByID(ctx, id); return err })
	return inv, err
}

func (l *lockingRepo) FindByIDForUpdate(ctx context.Context, id string) (*domain.Invoice, error) {
	return l.FindByID(ctx, id)
}

func (l *lockingRepo) FindByOrderID(ctx context.Context, orderID string) (inv *domain.Invoice, err error) {
	err = l.with(func(r *txRepo) error { inv, err = r.FindByOrderID(ctx, orderID); return err })
	return inv, err
}

func (l *lockingRepo) List(ctx context.Context, filter application.InvoiceFilter) (out []*domain.Invoice, err error) {
	err = l.with(func(r *txRepo) error { out, err = r.List(ctx, filter); return err })
	return out, err
}

func (l *lockingRepo) FindDueForOverdue(ctx context.Context, asOf time.Time, limit int) (out []*domain.Invoice, err error) {
	err = l.with(func(r *txRepo) error { out, err = r.FindDueForOverdue(ctx, asOf, limit); return err })
	return out, err
}

func (l *lockingRepo) FindDueBetween(ctx context.Context, from, to time.Time) (out []*domain.Invoice, err error) {
	err = l.with(func(r *txRepo) error { out, err = r.FindDueBetween(ctx, from, to); return err })
	return out, err
}

func (l *lockingRepo) FindAwaitingSettlement(ctx context.Context, touchedBefore time.Time, limit int) (out []*domain.Invoice, err error) {
	err = l.with(func(r *txRepo) error { out, err = r.FindAwaitingSettlement(ctx, touchedBefore, limit); return err })
	return out, err
}

func (l *lockingRepo) MarkVerified(ctx context.Context, invoiceID, transactionID string, at time.Time) error {
	return l.with(func(r *txRepo) error { return r.MarkVerified(ctx, invoiceID, transactionID, at) })
}

func (l *lockingRepo) Statistics(ctx context.Context, userID string) (out []application.StatusTotal, err error) {
	err = l.with(func(r *txRepo) error { out, err = r.Statistics(ctx, userID); return err })
	return out, err
}

// RecordingPublisher captures published events in order.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
	closed bool

	PublishFn func(ctx context.Context, event domain.Event) error
}

func (p *RecordingPublisher) Publish(ctx context.Context, event domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.PublishFn != nil {
		if err := p.PublishFn(ctx, event); err != nil {
			return err
		}
	}
	p.events = append(p.events, event)
	return nil
}

func (p *RecordingPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *RecordingPublisher) Events() []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Event(nil), p.events...)
}

func (p *RecordingPublisher) Types() []string {
	types := make([]string, 0)
	for _, e := range p.Events() {
		types = append(types, e.EventType())
	}
	return types
}

func (p *RecordingPublisher) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

func clone(inv *domain.Invoice) *domain.Invoice {
	return domain.Reconstitute(*inv)
}
