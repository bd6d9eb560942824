package payment_test

import (
	"testing"

	"github.com/DanielPopoola/ficmart-invoicing/internal/infrastructure/payment"
	"github.com/stretchr/testify/assert"
)

func TestSigner(t *testing.T) {
	payload := []byte(`{"id":"chk_1","status":"paid","metadata":{"invoice_id":"inv-1"}}`)

	t.Run("round trip", func(t *testing.T) {
		signer := payment.NewSigner("whsec")
		assert.True(t, signer.Verify(payload, signer.Sign(payload)))
	})

	t.Run("whitespace does not change the digest", func(t *testing.T) {
		signer := payment.NewSigner("whsec")
		spaced := []byte(`{ "id": "chk_1", "status": "paid", "metadata": { "invoice_id": "inv-1" } }`)
		assert.True(t, signer.Verify(spaced, signer.Sign(payload)))
	})

	t.Run("single byte change invalidates signature", func(t *testing.T) {
		signer := payment.NewSigner("whsec")
		signature := signer.Sign(payload)
		tampered := []byte(`{"id":"chk_2","status":"paid","metadata":{"invoice_id":"inv-1"}}`)
		assert.False(t, signer.Verify(tampered, signature))
	})

	t.Run("wrong secret fails", func(t *testing.T) {
		signature := payment.NewSigner("other").Sign(payload)
		assert.False(t, payment.NewSigner("whsec").Verify(payload, signature))
	})

	t.Run("empty secret always fails", func(t *testing.T) {
		signer := payment.NewSigner("")
		assert.Empty(t, signer.Sign(payload))
		assert.False(t, signer.Verify(payload, ""))
		assert.False(t, signer.Verify(payload, payment.NewSigner("whsec").Sign(payload)))
	})

	t.Run("missing signature fails", func(t *testing.T) {
		assert.False(t, payment.NewSigner("whsec").Verify(payload, ""))
	})

	t.Run("non json payload fails", func(t *testing.T) {
		signer := payment.NewSigner("whsec")
		assert.False(t, signer.Verify([]byte("not json"), "deadbeef"))
	})
}
