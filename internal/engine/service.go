package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scrypster/engram/internal/embedding"
	"github.com/scrypster/engram/internal/index"
	"github.com/scrypster/engram/pkg/types"
)

// Search bounds. top_k outside this range is clamped, not rejected.
const (
	MinTopK     = 1
	MaxTopK     = 10
	DefaultTopK = 3
)

// StoreRequest describes one memory to remember. A zero Timestamp means
// the record is stamped with the current time; importers that know when
// a note was originally written set it explicitly.
type StoreRequest struct {
	Content    string
	Importance float64
	Category   string
	Topics     []string
	Timestamp  time.Time
}

// SearchRequest describes a similarity query. TopK of zero means
// DefaultTopK. MinImportance of nil means no importance filter.
type SearchRequest struct {
	Query         string
	TopK          int
	MinImportance *float64
}

// SearchResult is the externally visible view of a matched record.
// Embeddings are deliberately omitted.
type SearchResult struct {
	ID             string     `json:"id"`
	Content        string     `json:"content"`
	Importance     float64    `json:"importance"`
	Category       string     `json:"category,omitempty"`
	Topics         []string   `json:"topics,omitempty"`
	Timestamp      time.Time  `json:"timestamp"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	AccessCount    int        `json:"access_count"`
	Score          float64    `json:"score"`
}

// Service composes embedding, indexing, deduplication and persistence
// into the memory operations the tool layer consumes. All mutations to
// a given owner's collection are serialized through a per-owner lock:
// the load, mutate, persist sequence is not atomic across steps and a
// racing writer would clobber it otherwise.
type Service struct {
	store    *CollectionStore
	embedder embedding.Embedder
	dedup    *Deduplicator
	logger   *log.Logger
	clock    func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithClock overrides the service's time source. Used in tests.
func WithClock(clock func() time.Time) ServiceOption {
	return func(s *Service) { s.clock = clock }
}

// NewService creates a memory service.
func NewService(store *CollectionStore, embedder embedding.Embedder, logger *log.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		store:    store,
		embedder: embedder,
		dedup:    NewDeduplicator(logger),
		logger:   logger,
		clock:    func() time.Time { return time.Now().UTC() },
		locks:    make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ownerLock returns the mutex guarding the given owner's collection,
// creating it on first use.
func (s *Service) ownerLock(owner string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[owner]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[owner] = lock
	}
	return lock
}

// Store embeds and appends a new memory for the owner, persisting the
// whole collection. Returns the new record's id. Deduplication is not
// run here; it is deferred to the read path.
func (s *Service) Store(ctx context.Context, owner string, req StoreRequest) (string, error) {
	if strings.TrimSpace(req.Content) == "" {
		return "", ErrEmptyContent
	}

	lock := s.ownerLock(owner)
	lock.Lock()
	defer lock.Unlock()

	vec, err := s.embed(ctx, req.Content)
	if err != nil {
		return "", fmt.Errorf("failed to embed memory content: %w", err)
	}

	col, err := s.store.Load(ctx, owner)
	if err != nil {
		return "", err
	}

	if col.Len() > 0 && len(vec) != col.Dimensions() {
		return "", fmt.Errorf("%w: collection has width %d, embedder produced %d",
			ErrDimensionMismatch, col.Dimensions(), len(vec))
	}

	now := s.clock()
	ts := req.Timestamp
	if ts.IsZero() {
		ts = now
	}
	rec := types.MemoryRecord{
		ID:         uuid.NewString(),
		Content:    req.Content,
		Embedding:  vec,
		Importance: types.ClampImportance(req.Importance),
		Category:   req.Category,
		Topics:     append([]string(nil), req.Topics...),
		Timestamp:  ts,
	}
	col.Records = append(col.Records, rec)
	col.UpdatedAt = now

	if err := s.store.Save(ctx, owner, col); err != nil {
		return "", err
	}
	return rec.ID, nil
}

// Search returns the owner's most similar memories for the query,
// ordered by descending cosine similarity. Runs a deduplication pass
// first when one is due, and updates access stats on every returned
// record; all mutations are batched into a single save.
func (s *Service) Search(ctx context.Context, owner string, req SearchRequest) ([]SearchResult, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, ErrEmptyQuery
	}
	topK := clampTopK(req.TopK)

	lock := s.ownerLock(owner)
	lock.Lock()
	defer lock.Unlock()

	col, err := s.store.Load(ctx, owner)
	if err != nil {
		return nil, err
	}
	if col.Len() == 0 {
		return []SearchResult{}, nil
	}

	now := s.clock()
	dirty := false

	// Maintenance first, so stale duplicates never outrank their
	// surviving counterpart. Best effort: a failed pass is logged and
	// the search proceeds on the pre-dedup collection.
	if col.Len() > 1 && s.dedup.Due(col, now) {
		if _, err := s.dedup.Deduplicate(col, now); err != nil {
			s.logger.Printf("WARN: deduplication failed for owner %q: %v", owner, err)
		} else {
			dirty = true
		}
	}

	queryVec, err := s.embed(ctx, req.Query)
	if err != nil {
		// Completed maintenance work is not thrown away.
		if dirty {
			if saveErr := s.store.Save(ctx, owner, col); saveErr != nil {
				s.logger.Printf("WARN: failed to persist dedup result for owner %q: %v", owner, saveErr)
			}
		}
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	idx, err := index.NewFlat(col.Dimensions())
	if err != nil {
		return nil, fmt.Errorf("failed to build search index: %w", err)
	}
	vecs := make([][]float64, col.Len())
	for i, rec := range col.Records {
		vecs[i] = rec.Embedding
	}
	if _, err := idx.AddBatch(vecs); err != nil {
		return nil, fmt.Errorf("failed to index collection: %w", err)
	}

	// Over-fetch when a filter may discard hits.
	k := topK
	if req.MinImportance != nil {
		k = topK * 2
	}
	hits, err := idx.Search(queryVec, k)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	results := make([]SearchResult, 0, topK)
	for _, hit := range hits {
		if len(results) == topK {
			break
		}
		rec := &col.Records[hit.Position]
		if req.MinImportance != nil && rec.Importance < *req.MinImportance {
			continue
		}

		rec.AccessCount++
		accessed := now
		rec.LastAccessedAt = &accessed
		dirty = true

		results = append(results, SearchResult{
			ID:             rec.ID,
			Content:        rec.Content,
			Importance:     rec.Importance,
			Category:       rec.Category,
			Topics:         append([]string(nil), rec.Topics...),
			Timestamp:      rec.Timestamp,
			LastAccessedAt: rec.LastAccessedAt,
			AccessCount:    rec.AccessCount,
			Score:          hit.Score,
		})
	}

	if dirty {
		col.UpdatedAt = now
		if err := s.store.Save(ctx, owner, col); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// DeleteAll removes the owner's entire collection, persisted and
// cached. Idempotent: deleting an owner with no memories is a success.
// Confirmation is the caller's responsibility; this method trusts it.
func (s *Service) DeleteAll(ctx context.Context, owner string) error {
	lock := s.ownerLock(owner)
	lock.Lock()
	defer lock.Unlock()

	return s.store.Delete(ctx, owner)
}

// Deduplicate forces a deduplication pass for the owner regardless of
// the interval, persisting the result. Returns the number of records
// removed.
func (s *Service) Deduplicate(ctx context.Context, owner string) (int, error) {
	lock := s.ownerLock(owner)
	lock.Lock()
	defer lock.Unlock()

	col, err := s.store.Load(ctx, owner)
	if err != nil {
		return 0, err
	}
	if col.Len() <= 1 {
		return 0, nil
	}

	removed, err := s.dedup.Deduplicate(col, s.clock())
	if err != nil {
		return 0, err
	}
	if err := s.store.Save(ctx, owner, col); err != nil {
		return 0, err
	}
	return removed, nil
}

// embed runs the embedder, widens the vector to the float64 width the
// collection stores, and rejects degenerate output. A zero-norm vector
// that slipped into a collection would make every later index build
// fail, so it is caught here on both the store and query paths.
func (s *Service) embed(ctx context.Context, text string) ([]float64, error) {
	vec32, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec32) == 0 {
		return nil, ErrDegenerateEmbedding
	}

	vec := make([]float64, len(vec32))
	var sumSquares float64
	for i, v := range vec32 {
		vec[i] = float64(v)
		sumSquares += vec[i] * vec[i]
	}
	if sumSquares == 0 {
		return nil, ErrDegenerateEmbedding
	}
	return vec, nil
}

func clampTopK(k int) int {
	switch {
	case k == 0:
		return DefaultTopK
	case k < MinTopK:
		return MinTopK
	case k > MaxTopK:
		return MaxTopK
	default:
		return k
	}
}
