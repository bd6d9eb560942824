package services

import (
	"context"
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

// SignatureHeader carries the hex HMAC-SHA256 of the canonical payload.
const SignatureHeader = "Signature"

const statusPaid = "paid"

type WebhookStatus string

const (
	WebhookProcessed WebhookStatus = "processed"
	WebhookIgnored   WebhookStatus = "ignored"
	WebhookDuplicate WebhookStatus = "duplicate"
	WebhookAnomaly   WebhookStatus = "anomaly"
)

type ReconcileResult struct {
	Status        WebhookStatus
	InvoiceID     string
	TransactionID string
}

// WebhookReconciler applies gateway payment notifications to invoices.
type WebhookReconciler struct {
	uow       application.UnitOfWork
	processor application.PaymentProcessor
	verifiers map[string]application.SignatureVerifier
	logger    *slog.Logger

	received  metric.Int64Counter
	anomalies metric.Int64Counter
}

func NewWebhookReconciler(
	uow application.UnitOfWork,
	processor application.PaymentProcessor,
	verifiers map[string]application.SignatureVerifier,
	logger *slog.Logger,
	meter metric.Meter,
) (*WebhookReconciler, error) {
	received, err := meter.Int64Counter("invoice_webhooks_received",
		metric.WithDescription("Inbound payment webhooks by gateway and result"))
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook counter: %w", err)
	}
	anomalies, err := meter.Int64Counter("invoice_webhook_anomalies",
		metric.WithDescription("Paid notifications that conflict with the invoice's recorded payment"))
	if err != nil {
		return nil, fmt.Errorf("failed to create anomaly counter: %w", err)
	}

	return &WebhookReconciler{
		uow:       uow,
		processor: processor,
		verifiers: verifiers,
		logger:    logger,
		received:  received,
		anomalies: anomalies,
	}, nil
}

func (r *WebhookReconciler) Reconcile(ctx context.Context, req application.WebhookRequest) (*ReconcileResult, error) {
	result, err := r.reconcile(ctx, req)

	outcome := "error"
	if result != nil {
		outcome = string(result.Status)
	}
	r.received.Add(ctx, 1, metric.WithAttributes(
		attribute.String("gateway", req.Gateway),
		attribute.String("result", outcome),
	))
	return result, err
}

func (r *WebhookReconciler) reconcile(ctx context.Context, req application.WebhookRequest) (*ReconcileResult, error) {
	if len(req.Payload) == 0 {
		return nil, domain.NewValidationError(domain.ErrCodeValidation, "empty webhook payload")
	}

	if signature := req.Headers.Get(SignatureHeader); signature != "" {
		if verifier, ok := r.verifiers[strings.ToLower(req.Gateway)]; ok && !verifier.Verify(req.Payload, signature) {
			r.logger.Warn("webhook signature rejected", "gateway", req.Gateway)
			return nil, domain.NewWebhookValidationError(domain.ErrCodeInvalidSignature, "invalid webhook signature")
		}
	}

	webhook, err := r.processor.HandleWebhook(ctx, req)
	if err != nil {
		r.logger.Warn("webhook rejected by processor", "gateway", req.Gateway, "error", err)
		if errors.Is(err, domain.ErrWebhookValidation) {
			return nil, err
		}
		return nil, &domain.DomainError{
			Kind:    domain.ErrWebhookValidation,
			Code:    domain.ErrCodeUnhandledWebhook,
			Message: "webhook could not be handled",
			Err:     err,
		}
	}

	if webhook.Status != statusPaid {
		r.logger.Info("ignoring non-paid webhook",
			"gateway", webhook.Gateway,
			"transaction_id", webhook.TransactionID,
			"status", webhook.Status)
		return &ReconcileResult{Status: WebhookIgnored, InvoiceID: webhook.InvoiceID, TransactionID: webhook.TransactionID}, nil
	}

	if webhook.InvoiceID == "" {
		return nil, domain.NewMissingRequiredFieldError("invoice_id in webhook metadata")
	}
	if webhook.TransactionID == "" {
		return nil, domain.NewMissingRequiredFieldError("transaction id in webhook")
	}

	details := paymentDetailsFromWebhook(webhook)
	result := &ReconcileResult{InvoiceID: webhook.InvoiceID, TransactionID: webhook.TransactionID}
	var anomaly *application.PaymentAnomaly

	err = r.uow.WithinTransaction(ctx, func(ctx context.Context, repos application.Repositories) error {
		anomaly = nil

		// The row lock serializes concurrent deliveries for the same invoice.
		invoice, err := repos.Invoices.FindByIDForUpdate(ctx, webhook.InvoiceID)
		if err != nil {
			return err
		}

		seen, err := repos.Webhooks.Exists(ctx, webhook.Gateway, webhook.TransactionID)
		if err != nil {
			return err
		}
		if seen {
			result.Status = WebhookDuplicate
			return nil
		}

		ledgerEntry := application.ProcessedWebhook{
			Gateway:       webhook.Gateway,
			TransactionID: webhook.TransactionID,
			InvoiceID:     invoice.ID,
			Status:        webhook.Status,
			ReceivedAt:    time.Now().UTC(),
		}

		outcome, err := invoice.ProcessPayment(details)
		switch {
		case err == nil && outcome == domain.AlreadyInState:
			result.Status = WebhookDuplicate
		case err == nil:
			if err := repos.Invoices.Update(ctx, invoice); err != nil {
				return err
			}
			result.Status = WebhookProcessed
		case errors.Is(err, domain.ErrInvalidState):
			anomaly = newAnomaly(webhook, invoice, req.Payload)
			if err := repos.Webhooks.RecordAnomaly(ctx, *anomaly); err != nil {
				return err
			}
			result.Status = WebhookAnomaly
		default:
			return err
		}

		return repos.Webhooks.Record(ctx, ledgerEntry)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		r.logger.Error("failed to reconcile webhook",
			"gateway", webhook.Gateway,
			"invoice_id", webhook.InvoiceID,
			"transaction_id", webhook.TransactionID,
			"error", err)
		return nil, application.NewInternalError(err)
	}

	switch result.Status {
	case WebhookProcessed:
		r.logger.Info("invoice paid via webhook",
			"gateway", webhook.Gateway,
			"invoice_id", webhook.InvoiceID,
			"transaction_id", webhook.TransactionID)
	case WebhookDuplicate:
		r.logger.Info("duplicate webhook acknowledged",
			"gateway", webhook.Gateway,
			"invoice_id", webhook.InvoiceID,
			"transaction_id", webhook.TransactionID)
	case WebhookAnomaly:
		r.anomalies.Add(ctx, 1, metric.WithAttributes(
			attribute.String("gateway", webhook.Gateway),
			attribute.String("reason", anomaly.Reason),
		))
		r.logger.Warn("payment anomaly detected",
			"alert", true,
			"gateway", webhook.Gateway,
			"invoice_id", webhook.InvoiceID,
			"transaction_id", webhook.TransactionID,
			"existing_transaction_id", anomaly.ExistingTransactionID,
			"reason", anomaly.Reason)
	}

	return result, nil
}

func paymentDetailsFromWebhook(w *application.NormalizedWebhook) domain.PaymentDetails {
	paidAt := time.Now().UTC()
	if w.CreatedAt != nil {
		paidAt = *w.CreatedAt
	}
	return domain.NewPaymentDetails(domain.PaymentDetailsParams{
		Method:        domain.PaymentMethodFromWebhookLabel(w.PaymentMethod),
		Amount:        w.Amount,
		TransactionID: w.TransactionID,
		PaymentDate:   &paidAt,
		Info: map[string]string{
			"processor":      w.Gateway,
			"gateway_status": w.Status,
		},
	})
}

func newAnomaly(w *application.NormalizedWebhook, invoice *domain.Invoice, payload []byte) *application.PaymentAnomaly {
	a := &application.PaymentAnomaly{
		Gateway:       w.Gateway,
		InvoiceID:     invoice.ID,
		TransactionID: w.TransactionID,
		Payload:       payload,
		DetectedAt:    time.Now().UTC(),
	}
	switch invoice.Status {
	case domain.StatusPaid:
		a.Reason = "invoice_already_paid"
		if invoice.PaymentDetails != nil {
			a.ExistingTransactionID = invoice.PaymentDetails.TransactionID()
		}
	case domain.StatusCancelled:
		a.Reason = "invoice_cancelled"
	default:
		a.Reason = "invalid_state"
	}
	return a
}
