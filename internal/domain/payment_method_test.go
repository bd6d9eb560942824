package domain_test

import (
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestParsePaymentMethod(t *testing.T) {
	assert.Equal(t, domain.PaymentMethodCIB, domain.ParsePaymentMethod("cib"))
	assert.Equal(t, domain.PaymentMethodCreditCard, domain.ParsePaymentMethod(" credit_card "))
	assert.Equal(t, domain.PaymentMethodOther, domain.ParsePaymentMethod("bitcoin"))
}

func TestPaymentMethodFromWebhookLabel(t *testing.T) {
	cases := map[string]domain.PaymentMethod{
		"edahabia":      domain.PaymentMethodDebitCard,
		"CIB":           domain.PaymentMethodCreditCard,
		"bank_transfer": domain.PaymentMethodBankTransfer,
		"credit_card":   domain.PaymentMethodCreditCard,
		"debit_card":    domain.PaymentMethodDebitCard,
		"paypal":        domain.PaymentMethodOther,
		"":              domain.PaymentMethodOther,
	}
	for label, want := range cases {
		assert.Equal(t, want, domain.PaymentMethodFromWebhookLabel(label), label)
	}
}

func TestPaymentDetails(t *testing.T) {
	t.Run("complete requires transaction and date", func(t *testing.T) {
		now := time.Now()

		assert.False(t, domain.NewPaymentDetails(domain.PaymentDetailsParams{TransactionID: "t"}).IsPaymentComplete())
		assert.False(t, domain.NewPaymentDetails(domain.PaymentDetailsParams{PaymentDate: &now}).IsPaymentComplete())
		assert.True(t, domain.NewPaymentDetails(domain.PaymentDetailsParams{TransactionID: "t", PaymentDate: &now}).IsPaymentComplete())
	})

	t.Run("defaults method and copies info", func(t *testing.T) {
		info := map[string]string{"processor": "chargily"}
		d := domain.NewPaymentDetails(domain.PaymentDetailsParams{Info: info})
		info["processor"] = "other"

		assert.Equal(t, domain.PaymentMethodOther, d.Method())
		assert.Equal(t, "chargily", d.Info()["processor"])
	})
}
