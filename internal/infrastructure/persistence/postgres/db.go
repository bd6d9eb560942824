package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ficmart-invoicing/internal/config"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/metric"
)

// Executor is the common surface of pgxpool.Pool and pgx.Tx, so repositories
// run unchanged inside and outside a transaction.
type Executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// DB owns the invoicing connection pool.
type DB struct {
	Pool   *pgxpool.Pool
	logger *slog.Logger
}

const (
	connectAttempts = 5
	connectBackoff  = 500 * time.Millisecond
)

// Connect opens the pool and waits for Postgres to answer, retrying a few times
// so the service can start alongside the database container.
func Connect(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (*DB, error) {
	poolCfg, err := cfg.PgxConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("invoice store config: %w", err)
	}

	log := logger.With("component", "invoice_store", "db_host", cfg.Host, "db_name", cfg.Name)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("invoice store pool: %w", err)
	}

	wait := connectBackoff
	for attempt := 1; ; attempt++ {
		err = pool.Ping(ctx)
		if err == nil {
			break
		}
		if attempt == connectAttempts || ctx.Err() != nil {
			pool.Close()
			return nil, fmt.Errorf("invoice store unreachable after %d attempts: %w", attempt, err)
		}
		log.Warn("database not ready", "attempt", attempt, "retry_in", wait, "error", err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
		}
		wait *= 2
	}

	log.Info("invoice store ready", "max_conns", poolCfg.MaxConns, "min_conns", poolCfg.MinConns)
	return &DB{Pool: pool, logger: log}, nil
}

// RegisterPoolMetrics exports pool occupancy as observable gauges.
func (db *DB) RegisterPoolMetrics(meter metric.Meter) error {
	acquired, err := meter.Int64ObservableGauge("invoicing.db.pool.acquired_conns",
		metric.WithDescription("Connections currently checked out of the pool"))
	if err != nil {
		return err
	}
	idle, err := meter.Int64ObservableGauge("invoicing.db.pool.idle_conns",
		metric.WithDescription("Idle connections held by the pool"))
	if err != nil {
		return err
	}
	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		stat := db.Pool.Stat()
		o.ObserveInt64(acquired, int64(stat.AcquiredConns()))
		o.ObserveInt64(idle, int64(stat.IdleConns()))
		return nil
	}, acquired, idle)
	return err
}

func (db *DB) Close() {
	db.logger.Info("closing invoice store")
	db.Pool.Close()
}

// Ping backs the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

const uniqueViolation = "23505"

// IsUniqueViolation reports a unique-constraint violation, optionally on a named constraint.
func IsUniqueViolation(err error, constraint ...string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolation {
		return false
	}
	if len(constraint) == 0 {
		return true
	}
	for _, c := range constraint {
		if pgErr.ConstraintName == c {
			return true
		}
	}
	return false
}
