//go:build integration

package containers

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// schema mirrors the DDL documented in the store packages.
const schema = `
CREATE TABLE IF NOT EXISTS registry_config (
    singleton      BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
    admin          TEXT NOT NULL,
    access_control TEXT NOT NULL,
    treasury       TEXT NOT NULL,
    mint_fee       NUMERIC(39, 0) NOT NULL
);

CREATE TABLE IF NOT EXISTS registry_counter (
    singleton BOOLEAN PRIMARY KEY DEFAULT TRUE CHECK (singleton),
    next_id   BIGINT NOT NULL
);
INSERT INTO registry_counter (singleton, next_id) VALUES (TRUE, 1)
ON CONFLICT (singleton) DO NOTHING;

CREATE TABLE IF NOT EXISTS identity_tokens (
    token_id      BIGINT PRIMARY KEY,
    username      TEXT NOT NULL,
    contributions BIGINT NOT NULL,
    tier          TEXT NOT NULL,
    minted_at     TIMESTAMPTZ NOT NULL,
    updated_at    TIMESTAMPTZ NOT NULL,
    proof_data    BYTEA
);

CREATE TABLE IF NOT EXISTS identity_holders (
    holder   TEXT PRIMARY KEY,
    token_id BIGINT NOT NULL UNIQUE REFERENCES identity_tokens (token_id)
);

CREATE TABLE IF NOT EXISTS identity_events (
    id          UUID PRIMARY KEY,
    action      TEXT NOT NULL,
    occurred_at TIMESTAMPTZ NOT NULL,
    token_id    BIGINT NOT NULL,
    caller      TEXT NOT NULL,
    payload     JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS identity_events_token_idx ON identity_events (token_id, occurred_at);
`

// PostgresContainer wraps a testcontainers Postgres instance with the
// registry schema applied.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	Pool      *pgxpool.Pool
}

// NewPostgresContainer starts a Postgres container and applies the schema.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("badgemint"),
		tcpostgres.WithUsername("badgemint"),
		tcpostgres.WithPassword("badgemint"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to postgres: %v", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply schema: %v", err)
	}

	return &PostgresContainer{
		Container: container,
		DSN:       dsn,
		Pool:      pool,
	}
}

// Reset truncates all registry tables and rewinds the token counter. Use
// between tests to ensure isolation.
func (p *PostgresContainer) Reset(ctx context.Context) error {
	stmts := []string{
		`TRUNCATE identity_events`,
		`TRUNCATE identity_holders, identity_tokens`,
		`TRUNCATE registry_config`,
		`UPDATE registry_counter SET next_id = 1`,
	}
	for _, stmt := range stmts {
		if _, err := p.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("reset %q: %w", stmt, err)
		}
	}
	return nil
}
