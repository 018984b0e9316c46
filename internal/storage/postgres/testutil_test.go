package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupTestDB creates a PostgreSQL container for testing and applies the
// schema. Returns a cleanup function that must be called after tests complete.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err, "failed to create pool")

	applySchema(t, ctx, pool)

	cleanup := func() {
		pool.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// applySchema creates the tables the stores depend on. Mirrors the
// embedded migration; duplicated here to avoid an import cycle with the
// migrations package.
func applySchema(t *testing.T, ctx context.Context, pool *Pool) {
	t.Helper()

	schema := `
		CREATE TABLE IF NOT EXISTS wallets (
			address       TEXT PRIMARY KEY,
			label         TEXT,
			created_at_ms BIGINT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tokens (
			address       TEXT PRIMARY KEY,
			symbol        TEXT NOT NULL,
			name          TEXT,
			decimals      INT NOT NULL DEFAULT 18,
			created_at_ms BIGINT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS transactions (
			id             BIGSERIAL PRIMARY KEY,
			wallet_address TEXT NOT NULL REFERENCES wallets(address),
			token_address  TEXT NOT NULL REFERENCES tokens(address),
			tx_hash        TEXT NOT NULL UNIQUE,
			side           TEXT NOT NULL CHECK (side IN ('buy', 'sell')),
			amount         DOUBLE PRECISION NOT NULL CHECK (amount >= 0),
			usd_value      DOUBLE PRECISION,
			block_time_ms  BIGINT NOT NULL,
			created_at_ms  BIGINT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS alerts (
			id             BIGSERIAL PRIMARY KEY,
			wallet_address TEXT NOT NULL REFERENCES wallets(address),
			tx_hash        TEXT NOT NULL UNIQUE REFERENCES transactions(tx_hash),
			price_at_txn   DOUBLE PRECISION,
			enriched_score DOUBLE PRECISION NOT NULL,
			low_confidence BOOLEAN NOT NULL DEFAULT FALSE,
			created_at_ms  BIGINT NOT NULL
		);
	`
	_, err := pool.Exec(ctx, schema)
	require.NoError(t, err, "failed to apply schema")
}

// ptr is a helper to create pointers to values.
func ptr[T any](v T) *T {
	return &v
}
