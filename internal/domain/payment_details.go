package domain

import (
	"fmt"
	"maps"
	"time"
)

// PaymentDetails is an immutable record of a payment attempt against an invoice.
type PaymentDetails struct {
	method           PaymentMethod
	amount           *Money
	transactionID    string
	paymentDate      *time.Time
	payerName        string
	paymentReference string
	info             map[string]string
}

type PaymentDetailsParams struct {
	Method           PaymentMethod
	Amount           *Money
	TransactionID    string
	PaymentDate      *time.Time
	PayerName        string
	PaymentReference string
	Info             map[string]string
}

func NewPaymentDetails(p PaymentDetailsParams) PaymentDetails {
	method := p.Method
	if method == "" {
		method = PaymentMethodOther
	}

	var date *time.Time
	if p.PaymentDate != nil {
		d := p.PaymentDate.UTC()
		date = &d
	}

	var amount *Money
	if p.Amount != nil {
		a := *p.Amount
		amount = &a
	}

	return PaymentDetails{
		method:           method,
		amount:           amount,
		transactionID:    p.TransactionID,
		paymentDate:      date,
		payerName:        p.PayerName,
		paymentReference: p.PaymentReference,
		info:             maps.Clone(p.Info),
	}
}

func (d PaymentDetails) Method() PaymentMethod { return d.method }

func (d PaymentDetails) TransactionID() string { return d.transactionID }

func (d PaymentDetails) PayerName() string { return d.payerName }

// PaymentReference holds the hosted checkout URL while a payment is pending.
func (d PaymentDetails) PaymentReference() string { return d.paymentReference }

func (d PaymentDetails) Amount() (Money, bool) {
	if d.amount == nil {
		return Money{}, false
	}
	return *d.amount, true
}

func (d PaymentDetails) PaymentDate() (time.Time, bool) {
	if d.paymentDate == nil {
		return time.Time{}, false
	}
	return *d.paymentDate, true
}

func (d PaymentDetails) Info() map[string]string {
	return maps.Clone(d.info)
}

// IsPaymentComplete is the single test for "has the money arrived".
func (d PaymentDetails) IsPaymentComplete() bool {
	return d.transactionID != "" && d.paymentDate != nil
}

func (d PaymentDetails) String() string {
	if d.IsPaymentComplete() {
		return fmt.Sprintf("Payment: %s (ID: %s, Date: %s)", d.method, d.transactionID, d.paymentDate.Format(time.RFC3339))
	}
	return fmt.Sprintf("Payment method: %s (pending)", d.method)
}
