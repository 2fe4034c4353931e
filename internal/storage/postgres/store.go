// Package postgres implements storage.BlobStore on PostgreSQL via lib/pq.
// Layout mirrors the sqlite backend: one row per owner in a blobs table,
// with upsert semantics for atomic replacement. Suited to deployments
// where memory files should live in a shared database rather than on a
// single machine's disk.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/scrypster/engram/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS blobs (
	key        TEXT PRIMARY KEY,
	data       BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)
`

// Store is a PostgreSQL-backed BlobStore.
type Store struct {
	db *sql.DB
}

var _ storage.BlobStore = (*Store)(nil)

// NewStore connects to PostgreSQL using the given DSN and ensures the
// blobs table exists.
func NewStore(dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%w: postgres dsn is required", storage.ErrInvalidInput)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Read returns the blob for key, or storage.ErrNotFound.
func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM blobs WHERE key = $1", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: read %q: %w", key, err)
	}
	return data, nil
}

// Write upserts the blob for key.
func (s *Store) Write(ctx context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blobs (key, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
			data = EXCLUDED.data,
			updated_at = NOW()
	`, key, data)
	if err != nil {
		return fmt.Errorf("postgres: write %q: %w", key, err)
	}
	return nil
}

// Delete removes the blob for key. A missing row is a success.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM blobs WHERE key = $1", key); err != nil {
		return fmt.Errorf("postgres: delete %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: owner key is required", storage.ErrInvalidInput)
	}
	return nil
}
