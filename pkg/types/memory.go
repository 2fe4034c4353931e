// Package types defines the core data model for the engram memory system.
// A MemoryRecord is a single stored fact with its embedding and metadata;
// a MemoryCollection is the full, ordered set of records for one owner.
// The JSON tags on these structs are the persistence schema: collections
// are serialized as a whole and written through a storage.BlobStore.
package types

import (
	"math"
	"time"
)

// MemoryRecord is a single memory unit: a short natural-language fact,
// its vector embedding, and retrieval bookkeeping.
type MemoryRecord struct {
	// ID is a unique, stable identifier assigned at creation. IDs are
	// never reused, even after the record is removed.
	ID string `json:"id"`

	// Content is the free-text fact. Always non-empty.
	Content string `json:"content"`

	// Embedding is the vector produced for Content at creation time.
	// It is immutable unless Content is rewritten, in which case it is
	// regenerated together with the content change.
	Embedding []float64 `json:"embedding"`

	// Importance is a relevance weight in [0.0, 1.0], clamped on write.
	// It decides which record survives deduplication.
	Importance float64 `json:"importance"`

	// Category is an optional coarse classification (e.g. "preferences").
	Category string `json:"category,omitempty"`

	// Topics are optional free-form topic labels.
	Topics []string `json:"topics,omitempty"`

	// Timestamp is the creation time of the record.
	Timestamp time.Time `json:"timestamp"`

	// LastAccessedAt is the time of the most recent retrieval that
	// returned this record, or nil if it has never been returned.
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`

	// AccessCount is the number of retrievals that returned this record.
	// It never decreases.
	AccessCount int `json:"access_count"`
}

// MemoryCollection is the ordered set of memories for one owner.
// Insertion order is significant: it is the deterministic tie-break for
// both search ranking and deduplication.
type MemoryCollection struct {
	// Records holds the memories in insertion order.
	Records []MemoryRecord `json:"memories"`

	// UpdatedAt is refreshed by every logical mutation (add, dedup,
	// access-stat update). It is NOT touched by a plain save, so an
	// unmutated load→save round-trip is byte-identical.
	UpdatedAt time.Time `json:"updated_at"`

	// LastDeduplicatedAt records when the last deduplication pass
	// completed, or nil if none has run yet.
	LastDeduplicatedAt *time.Time `json:"last_deduplicated_at,omitempty"`
}

// NewMemoryCollection returns an empty collection stamped with now.
func NewMemoryCollection(now time.Time) *MemoryCollection {
	return &MemoryCollection{
		Records:   []MemoryRecord{},
		UpdatedAt: now,
	}
}

// Len returns the number of live records.
func (c *MemoryCollection) Len() int {
	return len(c.Records)
}

// Dimensions returns the embedding width established by the collection,
// or 0 when the collection is empty. Every record in a collection has
// the same embedding width.
func (c *MemoryCollection) Dimensions() int {
	if len(c.Records) == 0 {
		return 0
	}
	return len(c.Records[0].Embedding)
}

// Clone returns a deep copy of the collection. The persistence cache
// hands out clones so that in-flight mutations can never alias cached
// state.
func (c *MemoryCollection) Clone() *MemoryCollection {
	out := &MemoryCollection{
		Records:   make([]MemoryRecord, len(c.Records)),
		UpdatedAt: c.UpdatedAt,
	}
	if c.LastDeduplicatedAt != nil {
		t := *c.LastDeduplicatedAt
		out.LastDeduplicatedAt = &t
	}
	for i := range c.Records {
		out.Records[i] = c.Records[i].Clone()
	}
	return out
}

// Clone returns a deep copy of the record, including its embedding and
// topic list.
func (r MemoryRecord) Clone() MemoryRecord {
	out := r
	if r.Embedding != nil {
		out.Embedding = append([]float64(nil), r.Embedding...)
	}
	if r.Topics != nil {
		out.Topics = append([]string(nil), r.Topics...)
	}
	if r.LastAccessedAt != nil {
		t := *r.LastAccessedAt
		out.LastAccessedAt = &t
	}
	return out
}

// ClampImportance forces an importance score into [0.0, 1.0].
// NaN clamps to 0 so arithmetic downstream stays well-defined.
func ClampImportance(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
