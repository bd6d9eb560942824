// Package cache keeps recently read invoices in a bounded, expiring LRU.
package cache

import (
	"slices"
	"time"

	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// InvoiceCache stores copies, so callers mutating a returned invoice never touch the cached one.
type InvoiceCache struct {
	lru *expirable.LRU[string, *domain.Invoice]
}

func NewInvoiceCache(size int, ttl time.Duration) *InvoiceCache {
	return &InvoiceCache{lru: expirable.NewLRU[string, *domain.Invoice](size, nil, ttl)}
}

func (c *InvoiceCache) Get(id string) (*domain.Invoice, bool) {
	inv, ok := c.lru.Get(id)
	if !ok {
		return nil, false
	}
	return snapshot(inv), true
}

func (c *InvoiceCache) Add(inv *domain.Invoice) {
	c.lru.Add(inv.ID, snapshot(inv))
}

func (c *InvoiceCache) Remove(id string) {
	c.lru.Remove(id)
}

func (c *InvoiceCache) Len() int {
	return c.lru.Len()
}

func snapshot(inv *domain.Invoice) *domain.Invoice {
	cp := *inv
	cp.Items = slices.Clone(inv.Items)
	if inv.PaymentDetails != nil {
		pd := *inv.PaymentDetails
		cp.PaymentDetails = &pd
	}
	if inv.PaidAt != nil {
		paidAt := *inv.PaidAt
		cp.PaidAt = &paidAt
	}
	return domain.Reconstitute(cp)
}
