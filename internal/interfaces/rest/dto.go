package rest

import (
	"time"

	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
)

type InvoiceResponse struct {
	ID             string           `json:"id"`
	OrderID        string           `json:"order_id"`
	UserID         string           `json:"user_id"`
	Status         string           `json:"status"`
	Currency       string           `json:"currency"`
	Items          []ItemResponse   `json:"items"`
	Subtotal       string           `json:"subtotal"`
	TaxAmount      string           `json:"tax_amount"`
	DiscountAmount string           `json:"discount_amount"`
	TotalAmount    string           `json:"total_amount"`
	DueDate        time.Time        `json:"due_date"`
	PaidAt         *time.Time       `json:"paid_at,omitempty"`
	Notes          string           `json:"notes,omitempty"`
	Payment        *PaymentResponse `json:"payment_details,omitempty"`
	Version        int              `json:"version"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

type ItemResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Subtotal    string `json:"subtotal"`
}

type PaymentResponse struct {
	Method           string     `json:"method"`
	TransactionID    string     `json:"transaction_id,omitempty"`
	Amount           string     `json:"amount,omitempty"`
	Currency         string     `json:"currency,omitempty"`
	PaymentDate      *time.Time `json:"payment_date,omitempty"`
	PayerName        string     `json:"payer_name,omitempty"`
	PaymentReference string     `json:"payment_reference,omitempty"`
	Complete         bool       `json:"complete"`
}

type CheckoutResponse struct {
	Invoice     InvoiceResponse `json:"invoice"`
	CheckoutURL string          `json:"checkout_url"`
	Payment     PaymentResponse `json:"payment_details"`
}

func ToInvoiceResponse(inv *domain.Invoice) InvoiceResponse {
	items := make([]ItemResponse, 0, len(inv.Items))
	for _, it := range inv.Items {
		items = append(items, ItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   decimalString(it.UnitPrice),
			Subtotal:    decimalString(it.Subtotal()),
		})
	}

	resp := InvoiceResponse{
		ID:             inv.ID,
		OrderID:        inv.OrderID,
		UserID:         inv.UserID,
		Status:         string(inv.Status),
		Currency:       inv.Currency(),
		Items:          items,
		Subtotal:       decimalString(inv.Subtotal()),
		TaxAmount:      decimalString(inv.TaxAmount),
		DiscountAmount: decimalString(inv.DiscountAmount),
		TotalAmount:    decimalString(inv.TotalAmount()),
		DueDate:        inv.DueDate,
		PaidAt:         inv.PaidAt,
		Notes:          inv.Notes,
		Version:        inv.Version,
		CreatedAt:      inv.CreatedAt,
		UpdatedAt:      inv.UpdatedAt,
	}
	if inv.PaymentDetails != nil {
		p := ToPaymentResponse(*inv.PaymentDetails)
		resp.Payment = &p
	}
	return resp
}

func ToInvoiceResponses(invoices []*domain.Invoice) []InvoiceResponse {
	out := make([]InvoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, ToInvoiceResponse(inv))
	}
	return out
}

func ToPaymentResponse(d domain.PaymentDetails) PaymentResponse {
	resp := PaymentResponse{
		Method:           string(d.Method()),
		TransactionID:    d.TransactionID(),
		PayerName:        d.PayerName(),
		PaymentReference: d.PaymentReference(),
		Complete:         d.IsPaymentComplete(),
	}
	if amount, ok := d.Amount(); ok {
		resp.Amount = decimalString(amount)
		resp.Currency = amount.Currency()
	}
	if date, ok := d.PaymentDate(); ok {
		resp.PaymentDate = &date
	}
	return resp
}

func decimalString(m domain.Money) string {
	return m.Amount().StringFixed(2)
}
