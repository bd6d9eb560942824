package services

import (
	"context"
	"time"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type QueryService struct {
	invoices application.InvoiceRepository
	cache    application.InvoiceCache
}

// NewQueryService accepts a nil cache.
func NewQueryService(invoices application.InvoiceRepository, cache application.InvoiceCache) *QueryService {
	return &QueryService{invoices: invoices, cache: cache}
}

func (s *QueryService) FindByID(ctx context.Context, id string) (*domain.Invoice, error) {
	if s.cache != nil {
		if inv, ok := s.cache.Get(id); ok {
			return inv, nil
		}
	}

	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Add(inv)
	}
	return inv, nil
}

func (s *QueryService) FindByOrderID(ctx context.Context, orderID string) (*domain.Invoice, error) {
	return s.invoices.FindByOrderID(ctx, orderID)
}

func (s *QueryService) List(ctx context.Context, filter application.InvoiceFilter) ([]*domain.Invoice, error) {
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultPageSize
	case filter.Limit > maxPageSize:
		filter.Limit = maxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.invoices.List(ctx, filter)
}

func (s *QueryService) Overdue(ctx context.Context, limit, offset int) ([]*domain.Invoice, error) {
	return s.List(ctx, application.InvoiceFilter{Status: domain.StatusOverdue, Limit: limit, Offset: offset})
}

// DueSoon lists pending invoices falling due within the next days.
func (s *QueryService) DueSoon(ctx context.Context, days int) ([]*domain.Invoice, error) {
	if days <= 0 {
		return nil, domain.NewValidationError(domain.ErrCodeValidation, "days must be positive")
	}
	now := time.Now().UTC()
	return s.invoices.FindDueBetween(ctx, now, now.AddDate(0, 0, days))
}

func (s *QueryService) Statistics(ctx context.Context, userID string) (*Statistics, error) {
	rows, err := s.invoices.Statistics(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &Statistics{ByStatus: make(map[domain.InvoiceStatus]StatusSummary)}
	totals := make(map[domain.InvoiceStatus]map[string]decimal.Decimal)

	for _, status := range []domain.InvoiceStatus{
		domain.StatusPending, domain.StatusOverdue, domain.StatusPaid, domain.StatusCancelled,
	} {
		stats.ByStatus[status] = StatusSummary{Totals: map[string]string{}}
		totals[status] = map[string]decimal.Decimal{}
	}

	for _, row := range rows {
		summary := stats.ByStatus[row.Status]
		summary.Count += row.Count
		stats.ByStatus[row.Status] = summary
		stats.TotalInvoices += row.Count

		if totals[row.Status] == nil {
			totals[row.Status] = map[string]decimal.Decimal{}
		}
		totals[row.Status][row.Currency] = totals[row.Status][row.Currency].Add(row.Total)
	}

	for status, byCurrency := range totals {
		summary := stats.ByStatus[status]
		if summary.Totals == nil {
			summary.Totals = map[string]string{}
		}
		for currency, total := range byCurrency {
			summary.Totals[currency] = total.StringFixed(2)
		}
		stats.ByStatus[status] = summary
	}

	return stats, nil
}
