package chargily

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
)

// ParseWebhook verifies and normalizes a checkout notification. Fields the payload
// does not carry come back as "unknown" or nil instead of failing the delivery.
func (c *Client) ParseWebhook(_ context.Context, payload []byte, headers http.Header) (*application.NormalizedWebhook, error) {
	signature := headers.Get(SignatureHeader)
	if signature == "" {
		c.logger.Warn("missing Signature header in chargily webhook")
		return nil, domain.NewWebhookValidationError(domain.ErrCodeInvalidSignature, "missing Signature header")
	}
	if !c.signer.Verify(payload, signature) {
		c.logger.Warn("invalid chargily webhook signature")
		return nil, domain.NewWebhookValidationError(domain.ErrCodeInvalidSignature, "invalid webhook signature")
	}

	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, &domain.DomainError{
			Kind:    domain.ErrWebhookValidation,
			Code:    domain.ErrCodeUnhandledWebhook,
			Message: "webhook payload is not a JSON object",
			Err:     err,
		}
	}

	// v2 events wrap the checkout in {"type": ..., "data": {...}}
	if data, ok := body["data"].(map[string]any); ok {
		body = data
	}

	metadata, _ := body["metadata"].(map[string]any)
	if metadata == nil {
		metadata = map[string]any{}
	}

	currency := strings.ToUpper(stringField(body, "currency"))
	webhook := &application.NormalizedWebhook{
		Gateway:       Name,
		TransactionID: stringField(body, "id"),
		Status:        orUnknown(stringField(body, "status")),
		InvoiceID:     stringField(metadata, "invoice_id"),
		Amount:        minorAmount(body["amount"], currency),
		CreatedAt:     unixTime(body["created_at"]),
		PaymentMethod: orUnknown(stringField(body, "payment_method")),
		Metadata:      metadata,
	}
	return webhook, nil
}

func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func orUnknown(s string) string {
	if s == "" {
		return statusUnknown
	}
	return s
}

func minorAmount(raw any, currency string) *domain.Money {
	var units int64
	switch v := raw.(type) {
	case float64:
		units = int64(math.Round(v))
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil
		}
		units = n
	default:
		return nil
	}
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	m, err := domain.FromMinorUnits(units, currency)
	if err != nil {
		return nil
	}
	return &m
}

func unixTime(raw any) *time.Time {
	var t time.Time
	switch v := raw.(type) {
	case float64:
		t = time.Unix(int64(v), 0).UTC()
	case string:
		if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
			t = time.Unix(secs, 0).UTC()
		} else if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			t = parsed.UTC()
		} else {
			return nil
		}
	default:
		return nil
	}
	return &t
}
