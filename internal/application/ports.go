package application

import (
	"context"
	"net/http"
	"time"

	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
	"github.com/shopspring/decimal"
)

// InvoiceFilter narrows List queries. Zero values mean "no filter".
type InvoiceFilter struct {
	UserID string
	Status domain.InvoiceStatus
	Limit  int
	Offset int
}

// StatusTotal is one row of the per-status, per-currency aggregation.
type StatusTotal struct {
	Status   domain.InvoiceStatus
	Currency string
	Count    int
	Total    decimal.Decimal
}

// InvoiceRepository is the port for invoice persistence.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *domain.Invoice) error
	Update(ctx context.Context, invoice *domain.Invoice) error
	FindByID(ctx context.Context, id string) (*domain.Invoice, error)
	FindByIDForUpdate(ctx context.Context, id string) (*domain.Invoice, error)
	FindByOrderID(ctx context.Context, orderID string) (*domain.Invoice, error)
	List(ctx context.Context, filter InvoiceFilter) ([]*domain.Invoice, error)
	FindDueForOverdue(ctx context.Context, asOf time.Time, limit int) ([]*domain.Invoice, error)
	FindDueBetween(ctx context.Context, from, to time.Time) ([]*domain.Invoice, error)
	// FindAwaitingSettlement returns unpaid invoices holding an open checkout last touched at or before the cutoff.
	// Checkouts never verified come first, then the least recently verified.
	FindAwaitingSettlement(ctx context.Context, touchedBefore time.Time, limit int) ([]*domain.Invoice, error)
	// MarkVerified stamps the open checkout transactionID on invoiceID as checked with its gateway at the given time.
	// It touches neither the invoice version nor updated_at.
	MarkVerified(ctx context.Context, invoiceID, transactionID string, at time.Time) error
	Statistics(ctx context.Context, userID string) ([]StatusTotal, error)
}

type ProcessedWebhook struct {
	Gateway       string
	TransactionID string
	InvoiceID     string
	Status        string
	ReceivedAt    time.Time
}

// PaymentAnomaly records a paid notification that could not be applied to its invoice.
type PaymentAnomaly struct {
	Gateway               string
	InvoiceID             string
	TransactionID         string
	ExistingTransactionID string
	Reason                string
	Payload               []byte
	DetectedAt            time.Time
}

// WebhookLedger remembers which gateway transactions have already been reconciled.
type WebhookLedger interface {
	Exists(ctx context.Context, gateway, transactionID string) (bool, error)
	Record(ctx context.Context, w ProcessedWebhook) error
	RecordAnomaly(ctx context.Context, a PaymentAnomaly) error
}

// Repositories are bound to a single transaction.
type Repositories struct {
	Invoices InvoiceRepository
	Webhooks WebhookLedger
}

// UnitOfWork commits fn's changes atomically, then publishes the events collected on
// every invoice passed to Create or Update, in order. A failing fn rolls back and
// nothing is published.
type UnitOfWork interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// EventPublisher is constructed once per process and closed on shutdown.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
	Close() error
}

// InvoiceCache holds read-side snapshots of invoices. Units of work evict every
// invoice a committed transaction wrote, whether or not it raised events.
type InvoiceCache interface {
	Get(id string) (*domain.Invoice, bool)
	Add(invoice *domain.Invoice)
	Remove(id string)
}

type CustomerData struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

type CheckoutItem struct {
	Price    string `json:"price"`
	Quantity int    `json:"quantity"`
}

// PaymentRequest asks a gateway to open a hosted checkout for an invoice.
type PaymentRequest struct {
	InvoiceID       string
	UserID          string
	Amount          domain.Money
	Method          domain.PaymentMethod
	Processor       string
	SuccessURL      string
	FailureURL      string
	WebhookEndpoint string
	Locale          string
	Description     string
	CustomerID      string
	Customer        *CustomerData
	Items           []CheckoutItem
}

type WebhookRequest struct {
	Gateway string
	Payload []byte
	Headers http.Header
}

// NormalizedWebhook is the gateway-independent view of an inbound notification.
type NormalizedWebhook struct {
	Gateway       string
	TransactionID string
	Status        string
	InvoiceID     string
	Amount        *domain.Money
	CreatedAt     *time.Time
	PaymentMethod string
	Metadata      map[string]any
}

// PaymentProcessor routes payment operations to the configured gateways.
type PaymentProcessor interface {
	ProcessPayment(ctx context.Context, req PaymentRequest) (domain.PaymentDetails, error)
	VerifyPayment(ctx context.Context, transactionID string) bool
	HandleWebhook(ctx context.Context, req WebhookRequest) (*NormalizedWebhook, error)
	PaymentURL(details domain.PaymentDetails) string
}

// SignatureVerifier checks a webhook signature for one gateway.
type SignatureVerifier interface {
	Verify(payload []byte, signature string) bool
}
