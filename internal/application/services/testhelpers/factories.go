package testhelpers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
	"github.com/DanielPopoola/ficmart-invoicing/internal/application/services"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// DefaultCreateCommand returns the two-item invoice used across tests: 2 x 10.00 + 1 x 5.00, tax 1.50.
func DefaultCreateCommand() services.CreateInvoiceCommand {
	tax := decimal.RequireFromString("1.50")
	return services.CreateInvoiceCommand{
		OrderID: "order-" + uuid.New().String(),
		UserID:  "user-" + uuid.New().String(),
		Items: []services.ItemCommand{
			{ProductID: "prod-1", Description: "Consultation", Quantity: 2, UnitPrice: decimal.RequireFromString("10.00")},
			{ProductID: "prod-2", Description: "Lab test", Quantity: 1, UnitPrice: decimal.RequireFromString("5.00")},
		},
		Tax: &tax,
	}
}

// NewPendingInvoice builds a valid invoice due in 30 days.
func NewPendingInvoice(t *testing.T) *domain.Invoice {
	t.Helper()
	item, err := domain.NewInvoiceItem(uuid.New().String(), "prod-1", "Consultation", 2, domain.MustMoney("10.00", "DZD"))
	require.NoError(t, err)
	tax := domain.MustMoney("1.50", "DZD")

	inv, err := domain.NewInvoice(domain.NewInvoiceParams{
		ID:      uuid.New().String(),
		OrderID: "order-" + uuid.New().String(),
		UserID:  "user-" + uuid.New().String(),
		Items:   []domain.InvoiceItem{item},
		DueDate: time.Now().Add(30 * 24 * time.Hour),
		Tax:     &tax,
	})
	require.NoError(t, err)
	inv.PullEvents()
	return inv
}

// WithDueDate rebuilds the invoice with another due date, bypassing validation.
func WithDueDate(inv *domain.Invoice, due time.Time) *domain.Invoice {
	snapshot := *inv
	snapshot.DueDate = due
	return domain.Reconstitute(snapshot)
}

// PendingCheckout is what a gateway returns when a checkout session is opened.
func PendingCheckout(checkoutID string) domain.PaymentDetails {
	return domain.NewPaymentDetails(domain.PaymentDetailsParams{
		Method:           domain.PaymentMethodEdahabia,
		TransactionID:    checkoutID,
		PaymentReference: "https://pay.chargily.test/checkout/" + checkoutID,
		Info:             map[string]string{"processor": "chargily"},
	})
}

// PaidWebhook is a normalized "paid" notification for the invoice.
func PaidWebhook(invoiceID, transactionID string) *application.NormalizedWebhook {
	created := time.Now().UTC().Add(-time.Minute).Truncate(time.Second)
	amount := domain.MustMoney("21.50", "DZD")
	return &application.NormalizedWebhook{
		Gateway:       "chargily",
		TransactionID: transactionID,
		Status:        "paid",
		InvoiceID:     invoiceID,
		Amount:        &amount,
		CreatedAt:     &created,
		PaymentMethod: "edahabia",
		Metadata:      map[string]any{"invoice_id": invoiceID},
	}
}

// WebhookRequest wraps a JSON body as an inbound request for the gateway.
func WebhookRequest(t *testing.T, gateway string, body any, signature string) application.WebhookRequest {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	headers := http.Header{}
	if signature != "" {
		headers.Set(services.SignatureHeader, signature)
	}
	return application.WebhookRequest{Gateway: gateway, Payload: payload, Headers: headers}
}
