package config

import (
	"context"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// URL renders the connection string under the given scheme ("postgres" for pgx, "pgx5" for golang-migrate).
func (c *DatabaseConfig) URL(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

const applicationName = "ficmart-invoicing"

// PgxConfig maps the pool knobs onto pgxpool. Idle connections are capped by the pool size.
func (c *DatabaseConfig) PgxConfig(ctx context.Context) (*pgxpool.Config, error) {
	pool, err := pgxpool.ParseConfig(c.URL("postgres"))
	if err != nil {
		return nil, err
	}

	pool.MaxConns = int32(c.MaxOpenConns)
	pool.MinConns = int32(min(c.MaxIdleConns, c.MaxOpenConns))
	pool.MaxConnLifetime = c.ConnMaxLifetime
	pool.MaxConnIdleTime = c.ConnMaxIdleTime
	pool.HealthCheckPeriod = 30 * time.Second
	pool.ConnConfig.RuntimeParams["application_name"] = applicationName

	return pool, nil
}
