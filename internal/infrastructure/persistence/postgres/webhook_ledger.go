package postgres

import (
	"context"
	"fmt"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
)

type WebhookLedger struct {
	q Executor
}

func NewWebhookLedger(db *DB) *WebhookLedger {
	return &WebhookLedger{q: db.Pool}
}

func (l *WebhookLedger) Exists(ctx context.Context, gateway, transactionID string) (bool, error) {
	var exists bool
	err := l.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM processed_webhooks WHERE gateway = $1 AND transaction_id = $2
		)`, gateway, transactionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check webhook ledger: %w", err)
	}
	return exists, nil
}

func (l *WebhookLedger) Record(ctx context.Context, w application.ProcessedWebhook) error {
	_, err := l.q.Exec(ctx, `
		INSERT INTO processed_webhooks (gateway, transaction_id, invoice_id, status, received_at)
		VALUES ($1, $2, $3, $4, $5)`,
		w.Gateway, w.TransactionID, w.InvoiceID, w.Status, w.ReceivedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.NewInvalidStateError(domain.ErrCodeDuplicateWebhookTxn,
				fmt.Sprintf("transaction %s from %s already processed", w.TransactionID, w.Gateway))
		}
		return fmt.Errorf("failed to record webhook: %w", err)
	}
	return nil
}

func (l *WebhookLedger) RecordAnomaly(ctx context.Context, a application.PaymentAnomaly) error {
	_, err := l.q.Exec(ctx, `
		INSERT INTO payment_anomalies (
			gateway, invoice_id, transaction_id, existing_transaction_id, reason, payload, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.Gateway, a.InvoiceID, a.TransactionID, a.ExistingTransactionID, a.Reason, a.Payload, a.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record payment anomaly: %w", err)
	}
	return nil
}

// Anomalies lists recorded anomalies for one invoice, newest first.
func (l *WebhookLedger) Anomalies(ctx context.Context, invoiceID string) ([]application.PaymentAnomaly, error) {
	rows, err := l.q.Query(ctx, `
		SELECT gateway, invoice_id, transaction_id, existing_transaction_id, reason, payload, detected_at
		FROM payment_anomalies
		WHERE invoice_id = $1
		ORDER BY detected_at DESC, id DESC`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("query payment anomalies: %w", err)
	}
	defer rows.Close()

	var out []application.PaymentAnomaly
	for rows.Next() {
		var a application.PaymentAnomaly
		if err := rows.Scan(&a.Gateway, &a.InvoiceID, &a.TransactionID, &a.ExistingTransactionID,
			&a.Reason, &a.Payload, &a.DetectedAt); err != nil {
			return nil, fmt.Errorf("scan payment anomaly: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
