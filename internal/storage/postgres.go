package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists the state blob in a single-row table. The whole blob
// is replaced on every save; there is no per-entity schema.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const keyringStateSchema = `
CREATE TABLE IF NOT EXISTS keyring_state (
	id INT PRIMARY KEY CHECK (id = 1),
	blob BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// NewPostgresStore connects to Postgres and ensures the state table exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, keyringStateSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create state table: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Load reads the blob. An empty table means no state has been persisted yet.
func (p *PostgresStore) Load(ctx context.Context) ([]byte, error) {
	var blob []byte
	err := p.pool.QueryRow(ctx, `SELECT blob FROM keyring_state WHERE id = 1`).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	return blob, nil
}

// Save upserts the single state row.
func (p *PostgresStore) Save(ctx context.Context, blob []byte) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO keyring_state (id, blob, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET blob = EXCLUDED.blob, updated_at = now()`,
		blob)
	if err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}
