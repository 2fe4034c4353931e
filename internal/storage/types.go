// Package storage defines the byte-oriented persistence contract for the
// engram system.
//
// The storage layer is deliberately small: a BlobStore moves opaque bytes
// keyed by owner, and knows nothing about the memory schema. Backends can
// be implemented independently (local file, SQLite, PostgreSQL) and the
// engine composes whichever one configuration selects.
package storage

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates that no blob exists for the requested key.
	ErrNotFound = errors.New("blob not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// BlobStore persists opaque byte blobs keyed by an owner identifier.
//
// Write must be effectively atomic: a concurrent or subsequent Read must
// observe either the previous blob or the new one in full, never a
// partial write. Delete of a missing key is a success, not an error.
type BlobStore interface {
	// Read returns the blob for key, or ErrNotFound.
	Read(ctx context.Context, key string) ([]byte, error)

	// Write durably replaces the blob for key.
	Write(ctx context.Context, key string, data []byte) error

	// Delete removes the blob for key. Deleting a nonexistent key
	// succeeds (idempotent).
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}
