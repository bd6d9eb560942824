package testhelpers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"strconv"
	"testing"
	"time"

	"github.com/DanielPopoola/ficmart-invoicing/internal/config"
	"github.com/DanielPopoola/ficmart-invoicing/internal/infrastructure/persistence/postgres"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	invoicingDB   = "invoicing_test"
	invoicingUser = "invoicing"
	invoicingPass = "invoicing"
)

// invoicingTables lists every table the migrations create, children first.
var invoicingTables = []string{
	"invoice_items",
	"payment_details",
	"processed_webhooks",
	"payment_anomalies",
	"invoices",
}

// TestDatabase is a migrated Postgres container plus a connected pool.
type TestDatabase struct {
	Container *tcpostgres.PostgresContainer
	DB        *postgres.DB
	Config    *config.DatabaseConfig
}

// SetupTestDatabase starts Postgres, applies db/migrations and connects.
func SetupTestDatabase(t *testing.T) *TestDatabase {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase(invoicingDB),
		tcpostgres.WithUsername(invoicingUser),
		tcpostgres.WithPassword(invoicingPass),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	cfg, err := containerConfig(ctx, container)
	if err != nil {
		_ = container.Terminate(ctx)
		require.NoError(t, err)
	}

	if err := applyMigrations(cfg); err != nil {
		_ = container.Terminate(ctx)
		require.NoError(t, err)
	}

	quiet := slog.New(slog.DiscardHandler)
	db, err := postgres.Connect(ctx, cfg, quiet)
	if err != nil {
		_ = container.Terminate(ctx)
		require.NoError(t, err)
	}

	return &TestDatabase{Container: container, DB: db, Config: cfg}
}

func containerConfig(ctx context.Context, c *tcpostgres.PostgresContainer) (*config.DatabaseConfig, error) {
	host, err := c.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("container host: %w", err)
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return nil, fmt.Errorf("container port: %w", err)
	}
	portNum, err := strconv.Atoi(port.Port())
	if err != nil {
		return nil, fmt.Errorf("container port %q: %w", port.Port(), err)
	}

	return &config.DatabaseConfig{
		Host:            host,
		Port:            portNum,
		User:            invoicingUser,
		Password:        invoicingPass,
		Name:            invoicingDB,
		SSLMode:         "disable",
		MaxOpenConns:    8,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
	}, nil
}

// Cleanup closes the pool and stops the container.
func (td *TestDatabase) Cleanup(t *testing.T) {
	td.DB.Close()
	if err := td.Container.Terminate(context.Background()); err != nil {
		t.Logf("terminate postgres container: %v", err)
	}
}

// CleanTables empties every invoicing table between tests.
func (td *TestDatabase) CleanTables(t *testing.T) {
	stmt := "TRUNCATE TABLE "
	for i, table := range invoicingTables {
		if i > 0 {
			stmt += ", "
		}
		stmt += table
	}
	_, err := td.DB.Pool.Exec(context.Background(), stmt+" RESTART IDENTITY CASCADE")
	require.NoError(t, err)
}

func migrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	// testhelpers -> services -> application -> internal -> repo root
	root := filepath.Join(filepath.Dir(file), "..", "..", "..", "..")
	return filepath.Join(root, "db", "migrations")
}

func applyMigrations(cfg *config.DatabaseConfig) error {
	m, err := migrate.New("file://"+migrationsDir(), cfg.URL("pgx5"))
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
