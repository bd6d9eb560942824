package services_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
	"github.com/DanielPopoola/ficmart-invoicing/internal/application/services"
	"github.com/DanielPopoola/ficmart-invoicing/internal/application/services/testhelpers"
	"github.com/DanielPopoola/ficmart-invoicing/internal/config"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
	"github.com/DanielPopoola/ficmart-invoicing/internal/infrastructure/payment"
	"github.com/DanielPopoola/ficmart-invoicing/internal/infrastructure/payment/chargily"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func chargilyReconciler(t *testing.T, store *testhelpers.InMemoryStore, secret string) *services.WebhookReconciler {
	t.Helper()
	client := chargily.NewClient(config.ChargilyConfig{
		BaseURL:       "https://pay.chargily.test/api/v2",
		WebhookSecret: secret,
		Timeout:       time.Second,
	}, discardLogger())

	registry, err := payment.NewRegistry(client)
	require.NoError(t, err)
	meter := noop.NewMeterProvider().Meter("test")
	processor, err := payment.NewAdapter(registry, discardLogger(), meter)
	require.NoError(t, err)

	reconciler, err := services.NewWebhookReconciler(
		store,
		processor,
		map[string]application.SignatureVerifier{chargily.Name: client.Signer()},
		discardLogger(),
		meter,
	)
	require.NoError(t, err)
	return reconciler
}

func chargilyPaidPayload(invoiceID string) map[string]any {
	return map[string]any{
		"id":             "chk_live_1",
		"status":         "paid",
		"amount":         2150,
		"currency":       "dzd",
		"payment_method": "edahabia",
		"metadata":       map[string]any{"invoice_id": invoiceID},
	}
}

func TestWebhookReconciler_ChargilySignatures(t *testing.T) {
	t.Run("unsigned webhook is rejected without a secret", func(t *testing.T) {
		store := testhelpers.NewInMemoryStore(nil)
		inv := testhelpers.NewPendingInvoice(t)
		store.Seed(inv)

		req := testhelpers.WebhookRequest(t, chargily.Name, chargilyPaidPayload(inv.ID), "")
		_, err := chargilyReconciler(t, store, "").Reconcile(context.Background(), req)

		assert.ErrorIs(t, err, domain.ErrWebhookValidation)
		saved, _ := store.Get(inv.ID)
		assert.Equal(t, domain.StatusPending, saved.Status)
	})

	t.Run("signed webhook is rejected without a secret", func(t *testing.T) {
		store := testhelpers.NewInMemoryStore(nil)
		inv := testhelpers.NewPendingInvoice(t)
		store.Seed(inv)

		req := testhelpers.WebhookRequest(t, chargily.Name, chargilyPaidPayload(inv.ID), "")
		req.Headers = http.Header{}
		req.Headers.Set(chargily.SignatureHeader, payment.NewSigner("guessed").Sign(req.Payload))
		_, err := chargilyReconciler(t, store, "").Reconcile(context.Background(), req)

		assert.ErrorIs(t, err, domain.ErrWebhookValidation)
		saved, _ := store.Get(inv.ID)
		assert.Equal(t, domain.StatusPending, saved.Status)
	})

	t.Run("unsigned webhook is rejected with a secret", func(t *testing.T) {
		store := testhelpers.NewInMemoryStore(nil)
		inv := testhelpers.NewPendingInvoice(t)
		store.Seed(inv)

		req := testhelpers.WebhookRequest(t, chargily.Name, chargilyPaidPayload(inv.ID), "")
		_, err := chargilyReconciler(t, store, "whsec_live").Reconcile(context.Background(), req)

		assert.ErrorIs(t, err, domain.ErrWebhookValidation)
		saved, _ := store.Get(inv.ID)
		assert.Equal(t, domain.StatusPending, saved.Status)
	})

	t.Run("correctly signed webhook pays the invoice", func(t *testing.T) {
		store := testhelpers.NewInMemoryStore(nil)
		inv := testhelpers.NewPendingInvoice(t)
		store.Seed(inv)

		req := testhelpers.WebhookRequest(t, chargily.Name, chargilyPaidPayload(inv.ID), "")
		req.Headers = http.Header{}
		req.Headers.Set(chargily.SignatureHeader, payment.NewSigner("whsec_live").Sign(req.Payload))
		result, err := chargilyReconciler(t, store, "whsec_live").Reconcile(context.Background(), req)

		require.NoError(t, err)
		assert.Equal(t, services.WebhookProcessed, result.Status)
		saved, _ := store.Get(inv.ID)
		assert.Equal(t, domain.StatusPaid, saved.Status)
	})
}
