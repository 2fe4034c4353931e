package engine

import (
	"fmt"
	"log"
	"time"

	"github.com/scrypster/engram/internal/index"
	"github.com/scrypster/engram/pkg/types"
)

// Deduplication policy. These are fixed globally rather than tunable
// per call: changing them changes retention semantics and has to be a
// deliberate versioned change.
const (
	// DuplicateThreshold is the cosine similarity above which two records
	// are considered duplicates. Strictly greater: a pair at exactly the
	// threshold is kept.
	DuplicateThreshold = 0.75

	// NeighborK is the number of nearest neighbors examined per record,
	// capped at the collection size.
	NeighborK = 10

	// DeduplicationInterval is how stale last_deduplicated_at may get
	// before the next search triggers a pass.
	DeduplicationInterval = 24 * time.Hour
)

// Deduplicator collapses near-duplicate records in a collection using
// batched nearest-neighbor search instead of all-pairs comparison.
type Deduplicator struct {
	logger *log.Logger
}

// NewDeduplicator creates a Deduplicator.
func NewDeduplicator(logger *log.Logger) *Deduplicator {
	return &Deduplicator{logger: logger}
}

// Due reports whether the collection is due for a deduplication pass:
// either it has never been deduplicated or the last pass is older than
// DeduplicationInterval.
func (d *Deduplicator) Due(col *types.MemoryCollection, now time.Time) bool {
	if col.LastDeduplicatedAt == nil {
		return true
	}
	return now.Sub(*col.LastDeduplicatedAt) > DeduplicationInterval
}

// Deduplicate runs one pass over the collection, removing the losing
// record of every duplicate pair. The record with the higher importance
// survives; on an importance tie the record with the smaller original
// index survives. Collections of size 0 or 1 are skipped untouched.
//
// Returns the number of records removed. On success the collection's
// last_deduplicated_at and updated_at are set to now; the caller is
// responsible for persisting.
func (d *Deduplicator) Deduplicate(col *types.MemoryCollection, now time.Time) (int, error) {
	n := col.Len()
	if n <= 1 {
		return 0, nil
	}

	idx, err := index.NewFlat(col.Dimensions())
	if err != nil {
		return 0, fmt.Errorf("failed to build dedup index: %w", err)
	}
	vecs := make([][]float64, n)
	for i, rec := range col.Records {
		vecs[i] = rec.Embedding
	}
	if _, err := idx.AddBatch(vecs); err != nil {
		return 0, fmt.Errorf("failed to index collection: %w", err)
	}

	k := NeighborK
	if n < k {
		k = n
	}

	removed := make([]bool, n)
	for i := 0; i < n; i++ {
		if removed[i] {
			continue
		}
		neighbors, err := idx.Search(col.Records[i].Embedding, k)
		if err != nil {
			return 0, fmt.Errorf("neighbor search failed for record %d: %w", i, err)
		}
		for _, nb := range neighbors {
			j := nb.Position
			if j == i || removed[j] {
				continue
			}
			if nb.Score <= DuplicateThreshold {
				continue
			}
			loser := pickLoser(col.Records, i, j)
			removed[loser] = true
			if loser == i {
				break
			}
		}
	}

	count := 0
	survivors := col.Records[:0:0]
	for i, rec := range col.Records {
		if removed[i] {
			count++
			continue
		}
		survivors = append(survivors, rec)
	}

	col.Records = survivors
	col.LastDeduplicatedAt = &now
	col.UpdatedAt = now

	if count > 0 {
		d.logger.Printf("deduplication removed %d of %d records", count, n)
	}
	return count, nil
}

// pickLoser decides which of a duplicate pair is removed: the lower
// importance loses; on a tie the larger original index loses.
func pickLoser(records []types.MemoryRecord, i, j int) int {
	switch {
	case records[i].Importance < records[j].Importance:
		return i
	case records[j].Importance < records[i].Importance:
		return j
	case i < j:
		return j
	default:
		return i
	}
}
