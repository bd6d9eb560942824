package chargily_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
	"github.com/DanielPopoola/ficmart-invoicing/internal/infrastructure/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedHeaders(payload []byte) http.Header {
	h := http.Header{}
	h.Set("Signature", payment.NewSigner(secret).Sign(payload))
	return h
}

func TestClient_ParseWebhook(t *testing.T) {
	client := newClient(t, func(http.ResponseWriter, *http.Request) {})

	t.Run("normalizes a paid checkout", func(t *testing.T) {
		payload := []byte(`{"id":"chk_1","status":"paid","amount":2150,"currency":"dzd",` +
			`"created_at":1735689600,"payment_method":"edahabia","metadata":{"invoice_id":"inv-1"}}`)

		w, err := client.ParseWebhook(context.Background(), payload, signedHeaders(payload))

		require.NoError(t, err)
		assert.Equal(t, "chargily", w.Gateway)
		assert.Equal(t, "chk_1", w.TransactionID)
		assert.Equal(t, "paid", w.Status)
		assert.Equal(t, "inv-1", w.InvoiceID)
		require.NotNil(t, w.Amount)
		assert.Equal(t, "21.50 DZD", w.Amount.String())
		require.NotNil(t, w.CreatedAt)
		assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), *w.CreatedAt)
		assert.Equal(t, "edahabia", w.PaymentMethod)
	})

	t.Run("unwraps data envelope", func(t *testing.T) {
		payload := []byte(`{"type":"checkout.paid","data":{"id":"chk_2","status":"paid","metadata":{"invoice_id":"inv-2"}}}`)

		w, err := client.ParseWebhook(context.Background(), payload, signedHeaders(payload))

		require.NoError(t, err)
		assert.Equal(t, "chk_2", w.TransactionID)
		assert.Equal(t, "inv-2", w.InvoiceID)
	})

	t.Run("absent fields degrade", func(t *testing.T) {
		payload := []byte(`{"id":"chk_3"}`)

		w, err := client.ParseWebhook(context.Background(), payload, signedHeaders(payload))

		require.NoError(t, err)
		assert.Equal(t, "unknown", w.Status)
		assert.Equal(t, "unknown", w.PaymentMethod)
		assert.Empty(t, w.InvoiceID)
		assert.Nil(t, w.Amount)
		assert.Nil(t, w.CreatedAt)
		assert.NotNil(t, w.Metadata)
	})

	t.Run("missing signature is rejected", func(t *testing.T) {
		_, err := client.ParseWebhook(context.Background(), []byte(`{"id":"chk_1"}`), http.Header{})

		assert.ErrorIs(t, err, domain.ErrWebhookValidation)
		assert.True(t, domain.IsErrorCode(err, domain.ErrCodeInvalidSignature))
	})

	t.Run("tampered payload is rejected", func(t *testing.T) {
		original := []byte(`{"id":"chk_1","status":"pending"}`)
		tampered := []byte(`{"id":"chk_1","status":"paid"}`)

		_, err := client.ParseWebhook(context.Background(), tampered, signedHeaders(original))

		assert.ErrorIs(t, err, domain.ErrWebhookValidation)
	})

	t.Run("non object payload is rejected", func(t *testing.T) {
		payload := []byte(`[1,2,3]`)

		_, err := client.ParseWebhook(context.Background(), payload, signedHeaders(payload))

		assert.ErrorIs(t, err, domain.ErrWebhookValidation)
	})
}
