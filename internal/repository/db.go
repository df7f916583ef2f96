package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// Open creates a pgx pool for the extraction stores.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	logger.Info("connecting to database")
	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database config", "error", err)
		return nil, err
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "docai"

	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	logger.Info("successfully connected to database")
	return pool, nil
}

// HealthCheck pings the pool to catch DSN issues early.
func HealthCheck(ctx context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return pool.Ping(ctx)
}

// EnsureTables creates the three stores if they are missing. The schema is
// deliberately key/value shaped: point gets, point puts, and one descending
// range query on monitor.
func EnsureTables(ctx context.Context, pool *pgxpool.Pool) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS schemas (
	schema_name    text        NOT NULL,
	schema_version text        NOT NULL,
	description    text        NOT NULL DEFAULT '',
	definition     jsonb       NOT NULL,
	status         text        NOT NULL DEFAULT 'ACTIVE',
	token_count    int         NOT NULL DEFAULT 0,
	created_at     timestamptz NOT NULL DEFAULT now(),
	PRIMARY KEY (schema_name, schema_version)
);

CREATE TABLE IF NOT EXISTS results (
	request_id     text        NOT NULL PRIMARY KEY,
	schema_name    text        NOT NULL,
	schema_version text        NOT NULL,
	result         jsonb,
	error          jsonb,
	metadata       jsonb,
	created_at     timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS monitor (
	request_id text        NOT NULL,
	status     text        NOT NULL,
	created_at timestamptz NOT NULL,
	PRIMARY KEY (request_id, created_at)
);
`
	_, err := pool.Exec(ctx, ddl)
	return err
}
