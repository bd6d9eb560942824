package postgres

import "time"

// invoiceModel mirrors a row of invoices. Money columns travel as text to keep decimal precision.
type invoiceModel struct {
	ID             string
	OrderID        string
	UserID         string
	Status         string
	Currency       string
	TaxAmount      string
	DiscountAmount string
	DueDate        time.Time
	PaidAt         *time.Time
	Notes          string
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type itemModel struct {
	InvoiceID   string
	ID          string
	Position    int
	ProductID   string
	Description string
	Quantity    int
	UnitPrice   string
	Currency    string
}

type paymentDetailsModel struct {
	InvoiceID        string
	Method           string
	Amount           *string
	Currency         *string
	TransactionID    *string
	PaymentDate      *time.Time
	PayerName        string
	PaymentReference string
	Info             map[string]string
}
