package domain

import "strings"

type PaymentMethod string

const (
	PaymentMethodCreditCard   PaymentMethod = "CREDIT_CARD"
	PaymentMethodDebitCard    PaymentMethod = "DEBIT_CARD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodInsurance    PaymentMethod = "INSURANCE"
	PaymentMethodEdahabia     PaymentMethod = "EDAHABIA"
	PaymentMethodCIB          PaymentMethod = "CIB"
	PaymentMethodOther        PaymentMethod = "OTHER"
)

var paymentMethods = []PaymentMethod{
	PaymentMethodCreditCard,
	PaymentMethodDebitCard,
	PaymentMethodBankTransfer,
	PaymentMethodCash,
	PaymentMethodInsurance,
	PaymentMethodEdahabia,
	PaymentMethodCIB,
	PaymentMethodOther,
}

// ParsePaymentMethod accepts any casing and falls back to OTHER for unknown values.
func ParsePaymentMethod(s string) PaymentMethod {
	candidate := PaymentMethod(strings.ToUpper(strings.TrimSpace(s)))
	for _, m := range paymentMethods {
		if m == candidate {
			return m
		}
	}
	return PaymentMethodOther
}

// gateway labels as they appear in webhook payloads
var webhookMethodLabels = map[string]PaymentMethod{
	"credit_card":   PaymentMethodCreditCard,
	"debit_card":    PaymentMethodDebitCard,
	"bank_transfer": PaymentMethodBankTransfer,
	"edahabia":      PaymentMethodDebitCard,
	"cib":           PaymentMethodCreditCard,
}

// PaymentMethodFromWebhookLabel never fails: unrecognized labels map to OTHER.
func PaymentMethodFromWebhookLabel(label string) PaymentMethod {
	if m, ok := webhookMethodLabels[strings.ToLower(strings.TrimSpace(label))]; ok {
		return m
	}
	return PaymentMethodOther
}
