package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/scrypster/engram/internal/storage"
	"github.com/scrypster/engram/pkg/types"
)

// CollectionStore loads and saves per-owner memory collections over a
// BlobStore, with an LRU cache so repeated reads in a session do not
// re-hit storage. Cached collections are canonical copies: Load hands
// out clones and Save installs a clone, so callers can never mutate the
// cache behind its back.
type CollectionStore struct {
	blobs  storage.BlobStore
	cache  *lru.Cache[string, *types.MemoryCollection]
	logger *log.Logger
}

// NewCollectionStore creates a CollectionStore caching up to cacheSize
// owner collections.
func NewCollectionStore(blobs storage.BlobStore, cacheSize int, logger *log.Logger) (*CollectionStore, error) {
	if blobs == nil {
		return nil, errors.New("blob store is required")
	}
	if cacheSize <= 0 {
		cacheSize = 64
	}
	cache, err := lru.New[string, *types.MemoryCollection](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection cache: %w", err)
	}
	return &CollectionStore{blobs: blobs, cache: cache, logger: logger}, nil
}

// Load returns the owner's collection. A missing blob yields a fresh
// empty collection. Unparseable bytes also yield a fresh empty
// collection, logged as a warning; the stored bytes are left untouched
// until the next save overwrites them.
func (s *CollectionStore) Load(ctx context.Context, owner string) (*types.MemoryCollection, error) {
	if cached, ok := s.cache.Get(owner); ok {
		return cached.Clone(), nil
	}

	data, err := s.blobs.Read(ctx, owner)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return types.NewMemoryCollection(time.Now().UTC()), nil
		}
		return nil, fmt.Errorf("failed to load collection for %q: %w", owner, err)
	}

	var col types.MemoryCollection
	if err := json.Unmarshal(data, &col); err != nil {
		s.logger.Printf("WARN: corrupt collection for owner %q, starting empty: %v", owner, err)
		return types.NewMemoryCollection(time.Now().UTC()), nil
	}

	s.cache.Add(owner, col.Clone())
	return &col, nil
}

// Save persists the collection and then replaces the cache entry. A
// failed write leaves the cache untouched so cache and storage cannot
// diverge.
func (s *CollectionStore) Save(ctx context.Context, owner string, col *types.MemoryCollection) error {
	data, err := json.MarshalIndent(col, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize collection for %q: %w", owner, err)
	}

	if err := s.blobs.Write(ctx, owner, data); err != nil {
		return fmt.Errorf("failed to save collection for %q: %w", owner, err)
	}

	s.cache.Add(owner, col.Clone())
	return nil
}

// Delete removes the owner's persisted collection and evicts the cache
// entry. Deleting an owner that has nothing stored is a success.
func (s *CollectionStore) Delete(ctx context.Context, owner string) error {
	if err := s.blobs.Delete(ctx, owner); err != nil {
		return fmt.Errorf("failed to delete collection for %q: %w", owner, err)
	}
	s.cache.Remove(owner)
	return nil
}
