package domain

import "time"

const (
	EventInvoiceCreated       = "invoice.created"
	EventInvoiceStatusChanged = "invoice.status_changed"
	EventInvoicePaid          = "invoice.paid"
	EventInvoiceCancelled     = "invoice.cancelled"
	EventInvoiceOverdue       = "invoice.overdue"
)

// Event is a fact about an invoice, collected on the aggregate and published after commit.
type Event interface {
	EventType() string
	AggregateID() string
	OccurredAt() time.Time
}

// EventHeader is embedded in every invoice event and flattened into its JSON form.
type EventHeader struct {
	Type      string    `json:"event_type"`
	InvoiceID string    `json:"invoice_id"`
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func (h EventHeader) EventType() string { return h.Type }

func (h EventHeader) AggregateID() string { return h.InvoiceID }

func (h EventHeader) OccurredAt() time.Time { return h.Timestamp }

type InvoiceCreated struct {
	EventHeader
	DueDate     time.Time `json:"due_date"`
	TotalAmount string    `json:"total_amount"`
	Currency    string    `json:"currency"`
}

type InvoiceStatusChanged struct {
	EventHeader
	PreviousStatus InvoiceStatus `json:"previous_status"`
	NewStatus      InvoiceStatus `json:"new_status"`
}

type InvoicePaid struct {
	EventHeader
	AmountPaid    string        `json:"amount_paid"`
	Currency      string        `json:"currency"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	TransactionID string        `json:"transaction_id"`
}

type InvoiceCancelled struct {
	EventHeader
	Reason string `json:"reason,omitempty"`
}

type InvoiceOverdue struct {
	EventHeader
	DueDate     time.Time `json:"due_date"`
	DaysOverdue int       `json:"days_overdue"`
}

func (i *Invoice) header(eventType string, at time.Time) EventHeader {
	return EventHeader{
		Type:      eventType,
		InvoiceID: i.ID,
		OrderID:   i.OrderID,
		UserID:    i.UserID,
		Timestamp: at,
	}
}
