package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
	"github.com/DanielPopoola/ficmart-invoicing/internal/config"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
	"github.com/sony/gobreaker"
)

// BreakerGateway stops calling a gateway that keeps failing. Only temporary
// failures count toward tripping; a declined checkout is a healthy answer.
type BreakerGateway struct {
	inner  Gateway
	cb     *gobreaker.CircuitBreaker
	logger *slog.Logger
}

func NewBreakerGateway(inner Gateway, cfg config.BreakerConfig, logger *slog.Logger) *BreakerGateway {
	settings := gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"gateway", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &BreakerGateway{
		inner:  inner,
		cb:     gobreaker.NewCircuitBreaker(settings),
		logger: logger,
	}
}

func (b *BreakerGateway) Name() string { return b.inner.Name() }

func (b *BreakerGateway) State() gobreaker.State { return b.cb.State() }

func (b *BreakerGateway) CreateCheckout(ctx context.Context, req application.PaymentRequest) (domain.PaymentDetails, error) {
	return guard(b, func() (domain.PaymentDetails, error) {
		return b.inner.CreateCheckout(ctx, req)
	})
}

func (b *BreakerGateway) CheckoutStatus(ctx context.Context, checkoutID string) (string, error) {
	return guard(b, func() (string, error) {
		return b.inner.CheckoutStatus(ctx, checkoutID)
	})
}

func (b *BreakerGateway) Refund(ctx context.Context, checkoutID string, amount *domain.Money) error {
	_, err := guard(b, func() (struct{}, error) {
		return struct{}{}, b.inner.Refund(ctx, checkoutID, amount)
	})
	return err
}

func (b *BreakerGateway) ParseWebhook(ctx context.Context, payload []byte, headers http.Header) (*application.NormalizedWebhook, error) {
	return b.inner.ParseWebhook(ctx, payload, headers)
}

func (b *BreakerGateway) CheckoutURL(details domain.PaymentDetails) string {
	return b.inner.CheckoutURL(details)
}

func (b *BreakerGateway) SignatureHeader() string {
	if signed, ok := b.inner.(HeaderSigned); ok {
		return signed.SignatureHeader()
	}
	return ""
}

// guard reports only temporary failures to the breaker and hands permanent ones back untouched.
func guard[T any](b *BreakerGateway, fn func() (T, error)) (T, error) {
	var zero T
	var permanent error

	result, err := b.cb.Execute(func() (interface{}, error) {
		resp, err := fn()
		if err != nil && !isRetryable(err) {
			permanent = err
			return nil, nil
		}
		return resp, err
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		b.logger.Warn("payment gateway short-circuited", "gateway", b.Name(), "error", err)
		return zero, fmt.Errorf("%w: %s: %v", ErrCircuitOpen, b.Name(), err)
	}
	if err != nil {
		return zero, err
	}
	if permanent != nil {
		return zero, permanent
	}
	return result.(T), nil
}
