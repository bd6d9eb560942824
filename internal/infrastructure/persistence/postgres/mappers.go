package postgres

import (
	"fmt"
	"time"

	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
)

func toDomainInvoice(m invoiceModel, items []itemModel, details *paymentDetailsModel) (*domain.Invoice, error) {
	tax, err := domain.ParseMoney(m.TaxAmount, m.Currency)
	if err != nil {
		return nil, fmt.Errorf("invoice %s tax: %w", m.ID, err)
	}
	discount, err := domain.ParseMoney(m.DiscountAmount, m.Currency)
	if err != nil {
		return nil, fmt.Errorf("invoice %s discount: %w", m.ID, err)
	}

	domainItems := make([]domain.InvoiceItem, 0, len(items))
	for _, it := range items {
		price, err := domain.ParseMoney(it.UnitPrice, it.Currency)
		if err != nil {
			return nil, fmt.Errorf("invoice %s item %s: %w", m.ID, it.ID, err)
		}
		domainItems = append(domainItems, domain.InvoiceItem{
			ID:          it.ID,
			ProductID:   it.ProductID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   price,
		})
	}

	inv := domain.Invoice{
		ID:             m.ID,
		OrderID:        m.OrderID,
		UserID:         m.UserID,
		Items:          domainItems,
		Status:         domain.InvoiceStatus(m.Status),
		TaxAmount:      tax,
		DiscountAmount: discount,
		DueDate:        m.DueDate.UTC(),
		CreatedAt:      m.CreatedAt.UTC(),
		UpdatedAt:      m.UpdatedAt.UTC(),
		PaidAt:         utcPtr(m.PaidAt),
		Notes:          m.Notes,
		Version:        m.Version,
	}

	if details != nil {
		pd, err := toDomainPaymentDetails(*details)
		if err != nil {
			return nil, fmt.Errorf("invoice %s payment details: %w", m.ID, err)
		}
		inv.PaymentDetails = &pd
	}

	return domain.Reconstitute(inv), nil
}

func toDomainPaymentDetails(m paymentDetailsModel) (domain.PaymentDetails, error) {
	var amount *domain.Money
	if m.Amount != nil && m.Currency != nil {
		a, err := domain.ParseMoney(*m.Amount, *m.Currency)
		if err != nil {
			return domain.PaymentDetails{}, err
		}
		amount = &a
	}

	return domain.NewPaymentDetails(domain.PaymentDetailsParams{
		Method:           domain.PaymentMethod(m.Method),
		Amount:           amount,
		TransactionID:    deref(m.TransactionID),
		PaymentDate:      m.PaymentDate,
		PayerName:        m.PayerName,
		PaymentReference: m.PaymentReference,
		Info:             m.Info,
	}), nil
}

func toInvoiceModel(inv *domain.Invoice) invoiceModel {
	return invoiceModel{
		ID:             inv.ID,
		OrderID:        inv.OrderID,
		UserID:         inv.UserID,
		Status:         string(inv.Status),
		Currency:       inv.Currency(),
		TaxAmount:      inv.TaxAmount.Amount().String(),
		DiscountAmount: inv.DiscountAmount.Amount().String(),
		DueDate:        inv.DueDate,
		PaidAt:         inv.PaidAt,
		Notes:          inv.Notes,
		Version:        inv.Version,
		CreatedAt:      inv.CreatedAt,
		UpdatedAt:      inv.UpdatedAt,
	}
}

func toItemModels(inv *domain.Invoice) []itemModel {
	out := make([]itemModel, 0, len(inv.Items))
	for i, it := range inv.Items {
		out = append(out, itemModel{
			InvoiceID:   inv.ID,
			ID:          it.ID,
			Position:    i,
			ProductID:   it.ProductID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice.Amount().String(),
			Currency:    it.UnitPrice.Currency(),
		})
	}
	return out
}

func toPaymentDetailsModel(invoiceID string, d domain.PaymentDetails) paymentDetailsModel {
	m := paymentDetailsModel{
		InvoiceID:        invoiceID,
		Method:           string(d.Method()),
		PayerName:        d.PayerName(),
		PaymentReference: d.PaymentReference(),
		Info:             d.Info(),
	}
	if m.Info == nil {
		m.Info = map[string]string{}
	}
	if amount, ok := d.Amount(); ok {
		a, c := amount.Amount().String(), amount.Currency()
		m.Amount, m.Currency = &a, &c
	}
	if id := d.TransactionID(); id != "" {
		m.TransactionID = &id
	}
	if date, ok := d.PaymentDate(); ok {
		m.PaymentDate = &date
	}
	return m
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
