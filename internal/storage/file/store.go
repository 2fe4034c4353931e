// Package file implements storage.BlobStore on the local filesystem.
//
// Each owner key maps to its own subdirectory containing a single
// memories.json file, mirroring the one-file-per-user layout the memory
// system persists. Writes follow the temp-then-rename discipline so a
// crash mid-write never leaves a partially written file visible to a
// subsequent read.
package file

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"

	"github.com/scrypster/engram/internal/storage"
)

// blobFileName is the file each owner's serialized collection lives in.
const blobFileName = "memories.json"

// Store is a filesystem-backed BlobStore rooted at a data directory.
type Store struct {
	root string
}

// Ensure *Store implements storage.BlobStore at compile time.
var _ storage.BlobStore = (*Store)(nil)

// NewStore creates a file store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("%w: data directory is required", storage.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("file: create data directory: %w", err)
	}
	return &Store{root: dir}, nil
}

// Read returns the blob for key, or storage.ErrNotFound when no file
// has been written for that owner yet.
func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := s.blobPath(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("file: read %s: %w", path, err)
	}
	return data, nil
}

// Write atomically replaces the blob for key. The data is written to a
// temp file in the destination directory, fsynced, then renamed over the
// final path. Rename within one directory is atomic on POSIX systems, so
// readers see either the old blob or the new one, never a torn write.
func (s *Store) Write(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.blobPath(key)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("file: create owner directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, blobFileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("file: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	// Any failure past this point must not leave the temp file behind.
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("file: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("file: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("file: close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("file: rename into place: %w", err)
	}
	return nil
}

// Delete removes the blob file for key. A missing file is a success.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.blobPath(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("file: delete %s: %w", path, err)
	}
	// Best-effort removal of the now-empty owner directory; failure is
	// harmless (the directory may legitimately be shared or locked).
	_ = os.Remove(filepath.Dir(path))
	return nil
}

// Close is a no-op for the file store.
func (s *Store) Close() error {
	return nil
}

// blobPath maps an owner key to its on-disk location.
func (s *Store) blobPath(key string) (string, error) {
	dir, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, dir, blobFileName), nil
}

// sanitizeKey converts an owner key into a safe single-level directory
// name. Alphanumerics, dash, underscore and dot pass through; everything
// else (including path separators) becomes a dash so a hostile key can
// never escape the data root. Keys that needed replacement get a hash of
// the raw key appended, so distinct keys that flatten to the same text
// ("a/b" and "a-b") still map to distinct directories.
func sanitizeKey(key string) (string, error) {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return "", fmt.Errorf("%w: owner key is required", storage.ErrInvalidInput)
	}

	var b strings.Builder
	for _, r := range trimmed {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}

	name := b.String()
	// "." and ".." would resolve outside the owner directory.
	if strings.Trim(name, ".") == "" {
		return "", fmt.Errorf("%w: owner key %q has no usable characters", storage.ErrInvalidInput, key)
	}
	if name != trimmed {
		h := fnv.New32a()
		h.Write([]byte(trimmed))
		name = fmt.Sprintf("%s-%08x", name, h.Sum32())
	}
	return name, nil
}
