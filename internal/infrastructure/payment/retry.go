package payment

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
	"github.com/DanielPopoola/ficmart-invoicing/internal/config"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
)

// RetryGateway retries transient gateway failures with exponential backoff.
// Checkout creation and refunds are not idempotent at the gateway, so they are only
// re-sent when the failure proves the gateway never acted on the request.
// Webhook parsing is local and never retried.
type RetryGateway struct {
	inner      Gateway
	baseDelay  time.Duration
	maxRetries int
}

func NewRetryGateway(inner Gateway, cfg config.RetryConfig) *RetryGateway {
	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &RetryGateway{
		inner:      inner,
		baseDelay:  cfg.BaseDelay,
		maxRetries: maxRetries,
	}
}

func (r *RetryGateway) Name() string { return r.inner.Name() }

func (r *RetryGateway) CreateCheckout(ctx context.Context, req application.PaymentRequest) (domain.PaymentDetails, error) {
	return retry(r, ctx, isSafeToResend, func(ctx context.Context) (domain.PaymentDetails, error) {
		return r.inner.CreateCheckout(ctx, req)
	})
}

func (r *RetryGateway) CheckoutStatus(ctx context.Context, checkoutID string) (string, error) {
	return retry(r, ctx, isRetryable, func(ctx context.Context) (string, error) {
		return r.inner.CheckoutStatus(ctx, checkoutID)
	})
}

func (r *RetryGateway) Refund(ctx context.Context, checkoutID string, amount *domain.Money) error {
	_, err := retry(r, ctx, isSafeToResend, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, r.inner.Refund(ctx, checkoutID, amount)
	})
	return err
}

func (r *RetryGateway) ParseWebhook(ctx context.Context, payload []byte, headers http.Header) (*application.NormalizedWebhook, error) {
	return r.inner.ParseWebhook(ctx, payload, headers)
}

func (r *RetryGateway) CheckoutURL(details domain.PaymentDetails) string {
	return r.inner.CheckoutURL(details)
}

func (r *RetryGateway) SignatureHeader() string {
	if signed, ok := r.inner.(HeaderSigned); ok {
		return signed.SignatureHeader()
	}
	return ""
}

func retry[T any](r *RetryGateway, ctx context.Context, retryable func(error) bool, operation func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		resp, err := operation(ctx)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !retryable(err) {
			return zero, err
		}

		if attempt < r.maxRetries-1 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(r.backoff(attempt)):
			}
		}
	}

	return zero, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

// Gateway 4xx answers and client-side validation failures are final; transport errors are not.
func isRetryable(err error) bool {
	if gwErr, ok := IsGatewayError(err); ok {
		return gwErr.Temporary()
	}
	if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrPaymentProcessing) {
		return false
	}
	if errors.Is(err, ErrCircuitOpen) || errors.Is(err, context.Canceled) {
		return false
	}
	return true
}

// isSafeToResend accepts only failures where the request never reached the gateway
// or the gateway explicitly declined it. Timeouts and 5xx answers may hide a created session.
func isSafeToResend(err error) bool {
	if gwErr, ok := IsGatewayError(err); ok {
		return gwErr.Declined()
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// exponential delay plus up to one base delay of jitter
func (r *RetryGateway) backoff(attempt int) time.Duration {
	base := r.baseDelay * time.Duration(1<<attempt)
	if r.baseDelay <= 0 {
		return base
	}
	jitter := time.Duration(rand.Int64N(int64(r.baseDelay)))
	return base + jitter
}
