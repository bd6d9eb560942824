package application

import (
	"errors"
	"fmt"
	"net/http"
)

// ServiceError is raised by the orchestration layer for failures that are not
// domain rule violations: wrapped infrastructure faults, timeouts and bad input
// rejected before it reaches the aggregate.
type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

const (
	ErrCodeTimeout      = "TIMEOUT"
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeInvalidInput = "INVALID_INPUT"
)

func newServiceError(code string, status int, msg string, err error) *ServiceError {
	return &ServiceError{Code: code, Message: msg, HTTPStatus: status, Err: err}
}

func (e *ServiceError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Is matches another ServiceError carrying the same code.
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	return ok && t.Code == e.Code
}

// NewTimeoutError reports an invoice operation that outlived its deadline.
func NewTimeoutError(err error) *ServiceError {
	return newServiceError(ErrCodeTimeout, http.StatusGatewayTimeout, "invoice operation timed out", err)
}

// NewInternalError hides err behind a generic message; err is kept for logs only.
func NewInternalError(err error) *ServiceError {
	return newServiceError(ErrCodeInternal, http.StatusInternalServerError, "An internal error occurred", err)
}

func NewInvalidInputError(err error) *ServiceError {
	return newServiceError(ErrCodeInvalidInput, http.StatusBadRequest, "Invalid input", err)
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr, true
	}
	return nil, false
}
