package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every DomainError unwraps to exactly one of these.
var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidState      = errors.New("invalid invoice state")
	ErrNotFound          = errors.New("not found")
	ErrPaymentProcessing = errors.New("payment processing failed")
	ErrWebhookValidation = errors.New("webhook validation failed")
)

// DomainError represents a business logic error
type DomainError struct {
	Kind    error
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is/As
func (e *DomainError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeMissingRequired     = "MISSING_REQUIRED_FIELD"
	ErrCodeEmptyInvoice        = "EMPTY_INVOICE"
	ErrCodeInvalidCurrency     = "INVALID_CURRENCY"
	ErrCodeCurrencyMismatch    = "CURRENCY_MISMATCH"
	ErrCodeInvalidAmount       = "INVALID_AMOUNT"
	ErrCodeInvalidDiscount     = "INVALID_DISCOUNT"
	ErrCodeInvalidDueDate      = "INVALID_DUE_DATE"
	ErrCodeIncompletePayment   = "INCOMPLETE_PAYMENT"
	ErrCodeInvalidTransition   = "INVALID_TRANSITION"
	ErrCodeInvoiceAlreadyPaid  = "INVOICE_ALREADY_PAID"
	ErrCodeInvoiceCancelled    = "INVOICE_CANCELLED"
	ErrCodeInvoiceNotFound     = "INVOICE_NOT_FOUND"
	ErrCodeItemNotFound        = "ITEM_NOT_FOUND"
	ErrCodePaymentProcessing   = "PAYMENT_PROCESSING_FAILED"
	ErrCodeInvalidSignature    = "INVALID_SIGNATURE"
	ErrCodeUnhandledWebhook    = "UNHANDLED_WEBHOOK"
	ErrCodeNotYetDue           = "INVOICE_NOT_YET_DUE"
	ErrCodeDuplicateOrder      = "DUPLICATE_ORDER_INVOICE"
	ErrCodeDuplicateWebhookTxn = "DUPLICATE_WEBHOOK_TRANSACTION"
	ErrCodeConcurrentUpdate    = "CONCURRENT_MODIFICATION"
)

func NewValidationError(code, message string) *DomainError {
	return &DomainError{Kind: ErrValidation, Code: code, Message: message}
}

func NewMissingRequiredFieldError(field string) *DomainError {
	return NewValidationError(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field))
}

func NewCurrencyMismatchError(a, b string) *DomainError {
	return NewValidationError(ErrCodeCurrencyMismatch, fmt.Sprintf("currency mismatch: %s and %s", a, b))
}

func NewInvalidStateError(code, message string) *DomainError {
	return &DomainError{Kind: ErrInvalidState, Code: code, Message: message}
}

func NewInvalidTransitionError(invoiceID string, from, to InvoiceStatus) *DomainError {
	return NewInvalidStateError(
		ErrCodeInvalidTransition,
		fmt.Sprintf("cannot transition invoice %s from %s to %s", invoiceID, from, to),
	)
}

// NewConcurrentModificationError reports a lost optimistic-lock race on an invoice row.
func NewConcurrentModificationError(invoiceID string, version int) *DomainError {
	return NewInvalidStateError(
		ErrCodeConcurrentUpdate,
		fmt.Sprintf("invoice %s was modified concurrently (expected version %d)", invoiceID, version),
	)
}

func NewInvoiceNotFoundError(id string) *DomainError {
	return &DomainError{
		Kind:    ErrNotFound,
		Code:    ErrCodeInvoiceNotFound,
		Message: fmt.Sprintf("invoice with ID %s not found", id),
	}
}

func NewItemNotFoundError(invoiceID, itemID string) *DomainError {
	return &DomainError{
		Kind:    ErrNotFound,
		Code:    ErrCodeItemNotFound,
		Message: fmt.Sprintf("item with ID %s not found in invoice %s", itemID, invoiceID),
	}
}

// NewPaymentProcessingError is returned for any gateway communication or response failure, timeouts included.
func NewPaymentProcessingError(invoiceID, reason string, err error) *DomainError {
	return &DomainError{
		Kind:    ErrPaymentProcessing,
		Code:    ErrCodePaymentProcessing,
		Message: fmt.Sprintf("payment processing failed for invoice %s: %s", invoiceID, reason),
		Err:     err,
	}
}

func NewWebhookValidationError(code, message string) *DomainError {
	return &DomainError{Kind: ErrWebhookValidation, Code: code, Message: message}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}
