package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DanielPopoola/ficmart-invoicing/internal/application"
	"github.com/DanielPopoola/ficmart-invoicing/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const orderIDConstraint = "invoices_order_id_key"

const invoiceColumns = `
	id, order_id, user_id, status, currency,
	tax_amount::text, discount_amount::text,
	due_date, paid_at, notes, version, created_at, updated_at`

// qualifiedInvoiceColumns is invoiceColumns for queries joining payment_details, which also has currency.
const qualifiedInvoiceColumns = `
	invoices.id, invoices.order_id, invoices.user_id, invoices.status, invoices.currency,
	invoices.tax_amount::text, invoices.discount_amount::text,
	invoices.due_date, invoices.paid_at, invoices.notes, invoices.version, invoices.created_at, invoices.updated_at`

type InvoiceRepository struct {
	q       Executor
	tracker *tracker
}

// NewInvoiceRepository serves reads and writes outside any unit of work.
func NewInvoiceRepository(db *DB) *InvoiceRepository {
	return &InvoiceRepository{q: db.Pool}
}

func (r *InvoiceRepository) Create(ctx context.Context, inv *domain.Invoice) error {
	query := `
		INSERT INTO invoices (
			id, order_id, user_id, status, currency, tax_amount, discount_amount,
			due_date, paid_at, notes, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1, $11, $12)
	`

	m := toInvoiceModel(inv)
	_, err := r.q.Exec(ctx, query,
		m.ID, m.OrderID, m.UserID, m.Status, m.Currency, m.TaxAmount, m.DiscountAmount,
		m.DueDate, m.PaidAt, m.Notes, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err, orderIDConstraint) {
			return domain.NewInvalidStateError(domain.ErrCodeDuplicateOrder,
				fmt.Sprintf("invoice already exists for order %s", inv.OrderID))
		}
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	if err := r.writeChildren(ctx, inv); err != nil {
		return err
	}

	inv.Version = 1
	r.track(inv)
	return nil
}

// Update is a compare-and-swap on version; losing the race is an InvalidState error.
func (r *InvoiceRepository) Update(ctx context.Context, inv *domain.Invoice) error {
	query := `
		UPDATE invoices
		SET status = $1, currency = $2, tax_amount = $3, discount_amount = $4,
			due_date = $5, paid_at = $6, notes = $7, updated_at = $8,
			version = version + 1
		WHERE id = $9 AND version = $10
	`

	m := toInvoiceModel(inv)
	tag, err := r.q.Exec(ctx, query,
		m.Status, m.Currency, m.TaxAmount, m.DiscountAmount,
		m.DueDate, m.PaidAt, m.Notes, m.UpdatedAt,
		m.ID, m.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invoices WHERE id = $1)`, inv.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check invoice existence: %w", err)
		}
		if !exists {
			return domain.NewInvoiceNotFoundError(inv.ID)
		}
		return domain.NewConcurrentModificationError(inv.ID, inv.Version)
	}

	if _, err := r.q.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, inv.ID); err != nil {
		return fmt.Errorf("failed to clear invoice items: %w", err)
	}
	if err := r.writeChildren(ctx, inv); err != nil {
		return err
	}

	inv.Version++
	r.track(inv)
	return nil
}

// writeChildren inserts items and upserts payment details in one batch.
func (r *InvoiceRepository) writeChildren(ctx context.Context, inv *domain.Invoice) error {
	batch := &pgx.Batch{}
	for _, it := range toItemModels(inv) {
		batch.Queue(`
			INSERT INTO invoice_items (invoice_id, id, position, product_id, description, quantity, unit_price, currency)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			it.InvoiceID, it.ID, it.Position, it.ProductID, it.Description, it.Quantity, it.UnitPrice, it.Currency,
		)
	}

	if inv.PaymentDetails != nil {
		pd := toPaymentDetailsModel(inv.ID, *inv.PaymentDetails)
		batch.Queue(`
			INSERT INTO payment_details (
				invoice_id, method, amount, currency, transaction_id, payment_date,
				payer_name, payment_reference, info
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (invoice_id) DO UPDATE SET
				method = EXCLUDED.method,
				amount = EXCLUDED.amount,
				currency = EXCLUDED.currency,
				transaction_id = EXCLUDED.transaction_id,
				payment_date = EXCLUDED.payment_date,
				payer_name = EXCLUDED.payer_name,
				payment_reference = EXCLUDED.payment_reference,
				info = EXCLUDED.info,
				verified_at = CASE
					WHEN payment_details.transaction_id IS DISTINCT FROM EXCLUDED.transaction_id THEN NULL
					ELSE payment_details.verified_at
				END`,
			pd.InvoiceID, pd.Method, pd.Amount, pd.Currency, pd.TransactionID, pd.PaymentDate,
			pd.PayerName, pd.PaymentReference, pd.Info,
		)
	} else {
		batch.Queue(`DELETE FROM payment_details WHERE invoice_id = $1`, inv.ID)
	}

	if err := r.q.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to write invoice %s children: %w", inv.ID, err)
	}
	return nil
}

func (r *InvoiceRepository) FindByID(ctx context.Context, id string) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	return r.findOne(ctx, domain.NewInvoiceNotFoundError(id), query, id)
}

// FindByIDForUpdate holds a row lock on the invoice until the surrounding transaction ends.
func (r *InvoiceRepository) FindByIDForUpdate(ctx context.Context, id string) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 FOR UPDATE`
	return r.findOne(ctx, domain.NewInvoiceNotFoundError(id), query, id)
}

func (r *InvoiceRepository) FindByOrderID(ctx context.Context, orderID string) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE order_id = $1`
	notFound := &domain.DomainError{
		Kind:    domain.ErrNotFound,
		Code:    domain.ErrCodeInvoiceNotFound,
		Message: fmt.Sprintf("invoice for order %s not found", orderID),
	}
	return r.findOne(ctx, notFound, query, orderID)
}

func (r *InvoiceRepository) List(ctx context.Context, filter application.InvoiceFilter) ([]*domain.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE ($1 = '' OR user_id = $1)
		  AND ($2 = '' OR status = $2)
		ORDER BY created_at ASC, id ASC
		LIMIT $3 OFFSET $4
	`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	return r.findMany(ctx, query, filter.UserID, string(filter.Status), limit, filter.Offset)
}

// FindDueForOverdue selects PENDING invoices whose due date has passed, oldest first.
func (r *InvoiceRepository) FindDueForOverdue(ctx context.Context, asOf time.Time, limit int) ([]*domain.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE status = 'PENDING' AND due_date <= $1
		ORDER BY due_date ASC
		LIMIT $2
	`
	return r.findMany(ctx, query, asOf, limit)
}

func (r *InvoiceRepository) FindDueBetween(ctx context.Context, from, to time.Time) ([]*domain.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE status = 'PENDING' AND due_date BETWEEN $1 AND $2
		ORDER BY due_date ASC
	`
	return r.findMany(ctx, query, from, to)
}

func (r *InvoiceRepository) FindAwaitingSettlement(ctx context.Context, touchedBefore time.Time, limit int) ([]*domain.Invoice, error) {
	query := `
		SELECT ` + qualifiedInvoiceColumns + `
		FROM invoices
		JOIN payment_details pd ON pd.invoice_id = invoices.id
		WHERE invoices.status IN ('PENDING', 'OVERDUE') AND invoices.updated_at <= $1
		  AND pd.payment_date IS NULL
		  AND COALESCE(pd.transaction_id, '') <> ''
		ORDER BY pd.verified_at ASC NULLS FIRST, invoices.updated_at ASC
		LIMIT $2
	`
	return r.findMany(ctx, query, touchedBefore, limit)
}

func (r *InvoiceRepository) MarkVerified(ctx context.Context, invoiceID, transactionID string, at time.Time) error {
	_, err := r.q.Exec(ctx, `
		UPDATE payment_details SET verified_at = $3
		WHERE invoice_id = $1 AND transaction_id = $2 AND payment_date IS NULL`,
		invoiceID, transactionID, at,
	)
	if err != nil {
		return fmt.Errorf("failed to mark checkout %s verified: %w", transactionID, err)
	}
	return nil
}

func (r *InvoiceRepository) Statistics(ctx context.Context, userID string) ([]application.StatusTotal, error) {
	query := `
		SELECT i.status, i.currency, COUNT(*),
		       COALESCE(SUM(t.subtotal + i.tax_amount - i.discount_amount), 0)::text
		FROM invoices i
		CROSS JOIN LATERAL (
			SELECT COALESCE(SUM(quantity * unit_price), 0) AS subtotal
			FROM invoice_items WHERE invoice_id = i.id
		) t
		WHERE ($1 = '' OR i.user_id = $1)
		GROUP BY i.status, i.currency
		ORDER BY i.status, i.currency
	`

	rows, err := r.q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query invoice statistics: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (application.StatusTotal, error) {
		var (
			st    application.StatusTotal
			total string
		)
		if err := row.Scan(&st.Status, &st.Currency, &st.Count, &total); err != nil {
			return st, err
		}
		d, err := decimal.NewFromString(total)
		st.Total = d
		return st, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan invoice statistics: %w", err)
	}
	return results, nil
}

func (r *InvoiceRepository) findOne(ctx context.Context, notFound error, query string, args ...any) (*domain.Invoice, error) {
	m, err := scanInvoice(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFound
		}
		return nil, fmt.Errorf("failed to scan invoice: %w", err)
	}

	invoices, err := r.hydrate(ctx, []invoiceModel{m})
	if err != nil {
		return nil, err
	}
	return invoices[0], nil
}

func (r *InvoiceRepository) findMany(ctx context.Context, query string, args ...any) ([]*domain.Invoice, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}

	models, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (invoiceModel, error) {
		return scanInvoice(row)
	})
	if err != nil {
		return nil, fmt.Errorf("error occurred while scanning rows: %w", err)
	}
	return r.hydrate(ctx, models)
}

// hydrate loads items and payment details for all invoices in two queries.
func (r *InvoiceRepository) hydrate(ctx context.Context, models []invoiceModel) ([]*domain.Invoice, error) {
	if len(models) == 0 {
		return []*domain.Invoice{}, nil
	}

	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}

	itemRows, err := r.q.Query(ctx, `
		SELECT invoice_id, id, position, product_id, description, quantity, unit_price::text, currency
		FROM invoice_items
		WHERE invoice_id = ANY($1)
		ORDER BY invoice_id, position
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("query invoice items: %w", err)
	}
	items, err := pgx.CollectRows(itemRows, func(row pgx.CollectableRow) (itemModel, error) {
		var it itemModel
		err := row.Scan(&it.InvoiceID, &it.ID, &it.Position, &it.ProductID, &it.Description,
			&it.Quantity, &it.UnitPrice, &it.Currency)
		return it, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan invoice items: %w", err)
	}

	detailRows, err := r.q.Query(ctx, `
		SELECT invoice_id, method, amount::text, currency, transaction_id, payment_date,
		       payer_name, payment_reference, info
		FROM payment_details
		WHERE invoice_id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("query payment details: %w", err)
	}
	details, err := pgx.CollectRows(detailRows, func(row pgx.CollectableRow) (paymentDetailsModel, error) {
		var pd paymentDetailsModel
		err := row.Scan(&pd.InvoiceID, &pd.Method, &pd.Amount, &pd.Currency, &pd.TransactionID,
			&pd.PaymentDate, &pd.PayerName, &pd.PaymentReference, &pd.Info)
		return pd, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan payment details: %w", err)
	}

	itemsByInvoice := make(map[string][]itemModel, len(models))
	for _, it := range items {
		itemsByInvoice[it.InvoiceID] = append(itemsByInvoice[it.InvoiceID], it)
	}
	detailsByInvoice := make(map[string]*paymentDetailsModel, len(details))
	for i := range details {
		detailsByInvoice[details[i].InvoiceID] = &details[i]
	}

	out := make([]*domain.Invoice, 0, len(models))
	for _, m := range models {
		inv, err := toDomainInvoice(m, itemsByInvoice[m.ID], detailsByInvoice[m.ID])
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, nil
}

func (r *InvoiceRepository) track(inv *domain.Invoice) {
	if r.tracker != nil {
		r.tracker.add(inv)
	}
}

func scanInvoice(row pgx.Row) (invoiceModel, error) {
	var m invoiceModel
	err := row.Scan(
		&m.ID, &m.OrderID, &m.UserID, &m.Status, &m.Currency,
		&m.TaxAmount, &m.DiscountAmount,
		&m.DueDate, &m.PaidAt, &m.Notes, &m.Version, &m.CreatedAt, &m.UpdatedAt,
	)
	return m, err
}
