package services

import (
	"time"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
	"github.com/shopspring/decimal"
)

type ItemCommand struct {
	ID          string          `json:"id,omitempty"`
	ProductID   string          `json:"product_id" validate:"required"`
	Description string          `json:"description" validate:"required"`
	Quantity    int             `json:"quantity" validate:"gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type CreateInvoiceCommand struct {
	OrderID  string           `json:"order_id" validate:"required"`
	UserID   string           `json:"user_id" validate:"required"`
	Items    []ItemCommand    `json:"items" validate:"required,min=1,dive"`
	DueDate  *time.Time       `json:"due_date,omitempty"`
	Currency string           `json:"currency,omitempty"`
	Tax      *decimal.Decimal `json:"tax_amount,omitempty"`
	Discount *decimal.Decimal `json:"discount_amount,omitempty"`
	Notes    string           `json:"notes,omitempty"`
}

type ProcessPaymentCommand struct {
	InvoiceID       string                     `json:"-" validate:"required"`
	PaymentMethod   string                     `json:"payment_method" validate:"required"`
	Amount          *decimal.Decimal           `json:"amount,omitempty"`
	Currency        string                     `json:"currency,omitempty"`
	SuccessURL      string                     `json:"success_url" validate:"required,url"`
	FailureURL      string                     `json:"failure_url" validate:"required,url"`
	WebhookEndpoint string                     `json:"webhook_endpoint,omitempty" validate:"omitempty,url"`
	Locale          string                     `json:"locale,omitempty"`
	Processor       string                     `json:"processor,omitempty"`
	CustomerID      string                     `json:"customer_id,omitempty"`
	Customer        *application.CustomerData  `json:"user_data,omitempty"`
	Items           []application.CheckoutItem `json:"items,omitempty"`
}

type CancelInvoiceCommand struct {
	InvoiceID string `json:"-" validate:"required"`
	Reason    string `json:"reason,omitempty"`
}

// UpdateInvoiceCommand applies every non-nil field in order: tax, discount, notes, due date extension.
type UpdateInvoiceCommand struct {
	InvoiceID  string           `json:"-" validate:"required"`
	Tax        *decimal.Decimal `json:"tax_amount,omitempty"`
	Discount   *decimal.Decimal `json:"discount_amount,omitempty"`
	Notes      *string          `json:"notes,omitempty"`
	ExtendDays *int             `json:"extend_days,omitempty" validate:"omitempty,gt=0"`
}

type AddItemCommand struct {
	InvoiceID string      `json:"-" validate:"required"`
	Item      ItemCommand `json:"item"`
}

type UpdateItemCommand struct {
	InvoiceID   string           `json:"-" validate:"required"`
	ItemID      string           `json:"-" validate:"required"`
	Quantity    *int             `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	Description *string          `json:"description,omitempty"`
}

// Result pairs the invoice with whether the call changed it.
type Result struct {
	Invoice *domain.Invoice
	Outcome domain.Outcome
}

type PaymentResult struct {
	Invoice     *domain.Invoice
	Details     domain.PaymentDetails
	CheckoutURL string
}

type StatusSummary struct {
	Count  int               `json:"count"`
	Totals map[string]string `json:"totals"`
}

type Statistics struct {
	TotalInvoices int                                    `json:"total_invoices"`
	ByStatus      map[domain.InvoiceStatus]StatusSummary `json:"by_status"`
}
