package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const statusPaid = "paid"

// Adapter implements application.PaymentProcessor over a Registry.
type Adapter struct {
	registry *Registry
	logger   *slog.Logger
	latency  metric.Float64Histogram
}

func NewAdapter(registry *Registry, logger *slog.Logger, meter metric.Meter) (*Adapter, error) {
	latency, err := meter.Float64Histogram("payment_gateway_duration_seconds",
		metric.WithDescription("Latency of outbound payment gateway calls"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway latency histogram: %w", err)
	}
	return &Adapter{registry: registry, logger: logger, latency: latency}, nil
}

func (a *Adapter) ProcessPayment(ctx context.Context, req application.PaymentRequest) (domain.PaymentDetails, error) {
	gw := a.registry.Select(req.Processor, req.Method)

	a.logger.Info("processing payment",
		"invoice_id", req.InvoiceID,
		"gateway", gw.Name(),
		"method", string(req.Method))

	start := time.Now()
	details, err := gw.CreateCheckout(ctx, req)
	a.observe(ctx, gw.Name(), "create_checkout", start, err)
	if err != nil {
		a.logger.Error("gateway checkout failed",
			"invoice_id", req.InvoiceID,
			"gateway", gw.Name(),
			"error", err)
		if errors.Is(err, domain.ErrPaymentProcessing) {
			return domain.PaymentDetails{}, err
		}
		return domain.PaymentDetails{}, domain.NewPaymentProcessingError(
			req.InvoiceID,
			fmt.Sprintf("payment processing failed with %s processor", gw.Name()),
			err,
		)
	}
	return details, nil
}

// VerifyPayment asks every gateway in turn and fails closed.
func (a *Adapter) VerifyPayment(ctx context.Context, transactionID string) bool {
	if transactionID == "" {
		a.logger.Warn("cannot verify payment without a transaction id")
		return false
	}

	for _, name := range a.registry.Names() {
		gw, _ := a.registry.Get(name)
		start := time.Now()
		status, err := gw.CheckoutStatus(ctx, transactionID)
		a.observe(ctx, name, "checkout_status", start, err)
		if err != nil {
			a.logger.Warn("gateway could not verify payment",
				"gateway", name,
				"transaction_id", transactionID,
				"error", err)
			continue
		}
		if status == statusPaid {
			a.logger.Info("payment verified", "gateway", name, "transaction_id", transactionID)
			return true
		}
	}

	a.logger.Warn("payment could not be verified by any gateway", "transaction_id", transactionID)
	return false
}

func (a *Adapter) HandleWebhook(ctx context.Context, req application.WebhookRequest) (*application.NormalizedWebhook, error) {
	origin := a.webhookOrigin(req)

	if gw, ok := a.registry.Get(origin); ok {
		webhook, err := gw.ParseWebhook(ctx, req.Payload, req.Headers)
		if err != nil {
			a.logger.Warn("gateway rejected webhook", "gateway", gw.Name(), "error", err)
			return nil, asWebhookError(err)
		}
		webhook.Gateway = strings.ToLower(gw.Name())
		return webhook, nil
	}

	for _, name := range a.registry.Names() {
		gw, _ := a.registry.Get(name)
		webhook, err := gw.ParseWebhook(ctx, req.Payload, req.Headers)
		if err != nil {
			a.logger.Debug("gateway could not handle webhook", "gateway", name, "error", err)
			continue
		}
		a.logger.Info("webhook handled by fallback gateway", "gateway", name)
		webhook.Gateway = name
		return webhook, nil
	}

	return nil, domain.NewWebhookValidationError(domain.ErrCodeUnhandledWebhook, "no payment gateway could handle the webhook")
}

// PaymentURL tries the gateway recorded in the details first, then the rest.
func (a *Adapter) PaymentURL(details domain.PaymentDetails) string {
	if details.TransactionID() == "" {
		return ""
	}

	tried := ""
	if gw, ok := a.registry.Get(details.Info()["processor"]); ok {
		if url := gw.CheckoutURL(details); url != "" {
			return url
		}
		tried = strings.ToLower(gw.Name())
	}

	for _, name := range a.registry.Names() {
		if name == tried {
			continue
		}
		gw, _ := a.registry.Get(name)
		if url := gw.CheckoutURL(details); url != "" {
			return url
		}
	}
	return ""
}

// Refund returns money for a settled checkout through the gateway that collected it.
func (a *Adapter) Refund(ctx context.Context, invoiceID string, details domain.PaymentDetails, amount *domain.Money) error {
	gw := a.registry.Select(details.Info()["processor"], details.Method())
	start := time.Now()
	err := gw.Refund(ctx, details.TransactionID(), amount)
	a.observe(ctx, gw.Name(), "refund", start, err)
	if err != nil {
		return domain.NewPaymentProcessingError(invoiceID,
			fmt.Sprintf("refund of %s failed with %s processor", details.TransactionID(), gw.Name()), err)
	}
	return nil
}

type webhookHints struct {
	Processor string `json:"processor"`
	Event     string `json:"event"`
	Type      string `json:"type"`
	EventType string `json:"event_type"`
}

// webhookOrigin names the gateway that sent the webhook: signature header, then payload
// hints, then the gateway named in the request path.
func (a *Adapter) webhookOrigin(req application.WebhookRequest) string {
	for _, name := range a.registry.Names() {
		gw, _ := a.registry.Get(name)
		if signed, ok := gw.(HeaderSigned); ok && req.Headers.Get(signed.SignatureHeader()) != "" {
			return name
		}
	}

	var hints webhookHints
	if err := json.Unmarshal(req.Payload, &hints); err == nil {
		if _, ok := a.registry.Get(hints.Processor); ok {
			return strings.ToLower(hints.Processor)
		}
		eventType := strings.ToLower(firstNonEmpty(hints.Event, hints.Type, hints.EventType))
		if eventType != "" {
			for _, name := range a.registry.Names() {
				if strings.Contains(eventType, name) {
					return name
				}
			}
		}
	}

	return strings.ToLower(req.Gateway)
}

func (a *Adapter) observe(ctx context.Context, gateway, operation string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	a.latency.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("gateway", gateway),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func asWebhookError(err error) error {
	if errors.Is(err, domain.ErrWebhookValidation) {
		return err
	}
	return &domain.DomainError{
		Kind:    domain.ErrWebhookValidation,
		Code:    domain.ErrCodeUnhandledWebhook,
		Message: "error handling webhook",
		Err:     err,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
