// Package index provides a flat, in-process vector index for cosine
// similarity search. Vectors are L2-normalized on insertion and on query
// so that inner-product scores are cosine similarities directly.
//
// The index intentionally does not support in-place removal: deleting
// records from a collection is expected to be rare, so callers rebuild
// the index from the surviving vectors instead. Rebuild is atomic from
// the caller's perspective: the old contents stay queryable until the
// replacement set has been fully validated.
package index

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrZeroVector is returned when a vector with zero L2 norm is added
	// or used as a query. A zero vector has no direction, so cosine
	// similarity against it is undefined (degenerate embedding).
	ErrZeroVector = errors.New("index: vector has zero norm")

	// ErrDimensionMismatch is returned when a vector's width does not
	// match the index's configured dimensionality.
	ErrDimensionMismatch = errors.New("index: vector dimension mismatch")
)

// Result is a single search hit: the insertion position of the matched
// vector and its cosine similarity to the query.
type Result struct {
	// Position is the zero-based insertion position of the vector.
	Position int

	// Score is the cosine similarity in [-1, 1]; higher is more similar.
	Score float64
}

// Flat is a brute-force inner-product index over L2-normalized vectors.
// Search cost is linear in the number of stored vectors, which is the
// right trade-off for user-scale collections. Flat is not safe for
// concurrent use; callers serialize access.
type Flat struct {
	dim     int
	vectors [][]float64
}

// NewFlat creates an empty index for vectors of the given width.
func NewFlat(dimensions int) (*Flat, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("index: dimensions must be positive, got %d", dimensions)
	}
	return &Flat{dim: dimensions}, nil
}

// Len returns the number of stored vectors.
func (f *Flat) Len() int {
	return len(f.vectors)
}

// Dimensions returns the configured vector width.
func (f *Flat) Dimensions() int {
	return f.dim
}

// Add normalizes and stores a single vector, returning its position.
func (f *Flat) Add(vec []float64) (int, error) {
	normalized, err := f.normalize(vec)
	if err != nil {
		return 0, err
	}
	f.vectors = append(f.vectors, normalized)
	return len(f.vectors) - 1, nil
}

// AddBatch normalizes and stores vectors in order, returning their
// positions. The batch is validated up front: if any vector is rejected,
// nothing is added.
func (f *Flat) AddBatch(vecs [][]float64) ([]int, error) {
	normalized := make([][]float64, len(vecs))
	for i, vec := range vecs {
		nv, err := f.normalize(vec)
		if err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
		normalized[i] = nv
	}

	positions := make([]int, len(vecs))
	for i, nv := range normalized {
		f.vectors = append(f.vectors, nv)
		positions[i] = len(f.vectors) - 1
	}
	return positions, nil
}

// Rebuild replaces the index contents with the given vectors in one
// step. The replacement set is built and validated fully before the
// swap, so a failed rebuild leaves the previous contents intact and
// queryable.
func (f *Flat) Rebuild(vecs [][]float64) error {
	replacement := make([][]float64, len(vecs))
	for i, vec := range vecs {
		nv, err := f.normalize(vec)
		if err != nil {
			return fmt.Errorf("rebuild vector %d: %w", i, err)
		}
		replacement[i] = nv
	}
	f.vectors = replacement
	return nil
}

// Search returns up to min(k, Len) results ordered by descending cosine
// similarity. Equal scores are broken by ascending insertion position,
// so result order is fully deterministic.
func (f *Flat) Search(query []float64, k int) ([]Result, error) {
	if k <= 0 {
		return []Result{}, nil
	}
	normalized, err := f.normalize(query)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(f.vectors))
	for pos, vec := range f.vectors {
		var dot float64
		for i := range vec {
			dot += vec[i] * normalized[i]
		}
		results = append(results, Result{Position: pos, Score: dot})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Position < results[j].Position
	})

	if k > len(results) {
		k = len(results)
	}
	return results[:k], nil
}

// normalize validates the vector and returns a fresh L2-normalized copy.
// The input slice is never retained or modified.
func (f *Flat) normalize(vec []float64) ([]float64, error) {
	if len(vec) != f.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), f.dim)
	}

	var sumSquares float64
	for _, v := range vec {
		sumSquares += v * v
	}
	norm := math.Sqrt(sumSquares)
	if norm == 0 {
		return nil, ErrZeroVector
	}

	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = v / norm
	}
	return out, nil
}
