package payment_test

import (
	"io"
	"log/slog"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func checkoutRequest() application.PaymentRequest {
	return application.PaymentRequest{
		InvoiceID:  "inv-1",
		UserID:     "user-1",
		Amount:     domain.MustMoney("21.50", "DZD"),
		Method:     domain.PaymentMethodEdahabia,
		SuccessURL: "https://shop.test/success",
		FailureURL: "https://shop.test/failure",
	}
}

func pendingDetails(checkoutID string) domain.PaymentDetails {
	return domain.NewPaymentDetails(domain.PaymentDetailsParams{
		Method:           domain.PaymentMethodEdahabia,
		TransactionID:    checkoutID,
		PaymentReference: "https://pay.chargily.test/checkout/" + checkoutID,
		Info:             map[string]string{"processor": "chargily"},
	})
}
