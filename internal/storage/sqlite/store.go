// Package sqlite implements storage.BlobStore on SQLite via the pure-Go
// modernc.org/sqlite driver. Each owner's serialized collection is one
// row in a single blobs table; the INSERT … ON CONFLICT upsert makes a
// write atomic at the row level, which satisfies the durable-swap
// requirement of the BlobStore contract.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/scrypster/engram/internal/storage"
)

const schema = `
CREATE TABLE IF NOT EXISTS blobs (
	key        TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Store is a SQLite-backed BlobStore.
type Store struct {
	db *sql.DB
}

var _ storage.BlobStore = (*Store)(nil)

// NewStore opens (or creates) the SQLite database at dsn and ensures the
// blobs table exists. Use ":memory:" for an ephemeral store in tests.
func NewStore(dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%w: sqlite dsn is required", storage.ErrInvalidInput)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", dsn, err)
	}

	// The driver opens lazily; ping to surface path errors early.
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping %s: %w", dsn, err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Read returns the blob for key, or storage.ErrNotFound.
func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM blobs WHERE key = ?", key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: read %q: %w", key, err)
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
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			data = excluded.data,
			updated_at = CURRENT_TIMESTAMP
	`, key, data)
	if err != nil {
		return fmt.Errorf("sqlite: write %q: %w", key, err)
	}
	return nil
}

// Delete removes the blob for key. A missing row is a success.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM blobs WHERE key = ?", key); err != nil {
		return fmt.Errorf("sqlite: delete %q: %w", key, err)
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
