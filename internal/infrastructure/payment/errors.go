package payment

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownGateway = errors.New("unknown payment gateway")
	ErrCircuitOpen    = errors.New("payment gateway unavailable")
)

// GatewayError is a non-2xx answer from a payment gateway.
type GatewayError struct {
	Gateway    string
	Code       string
	Message    string
	StatusCode int
}

// GatewayErrorResponse is the error body most checkout APIs return.
type GatewayErrorResponse struct {
	Err     string `json:"error"`
	Message string `json:"message"`
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s error [%s]: %s (status: %d)", e.Gateway, e.Code, e.Message, e.StatusCode)
}

// Temporary reports whether the same request may succeed later.
func (e *GatewayError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// Declined reports an answer the gateway gives before doing any work: rate limited or unavailable.
func (e *GatewayError) Declined() bool {
	return e.StatusCode == 429 || e.StatusCode == 503
}

func IsGatewayError(err error) (*GatewayError, bool) {
	var gwErr *GatewayError
	ok := errors.As(err, &gwErr)
	return gwErr, ok
}
