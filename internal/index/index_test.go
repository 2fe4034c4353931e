package index

import (
	"errors"
	"math"
	"testing"
)

func TestNewFlatRejectsBadDimensions(t *testing.T) {
	if _, err := NewFlat(0); err == nil {
		t.Error("NewFlat(0) should fail")
	}
	if _, err := NewFlat(-3); err == nil {
		t.Error("NewFlat(-3) should fail")
	}
}

func TestAddAssignsSequentialPositions(t *testing.T) {
	f, err := NewFlat(2)
	if err != nil {
		t.Fatalf("NewFlat: %v", err)
	}

	for want := 0; want < 3; want++ {
		pos, err := f.Add([]float64{1, float64(want)})
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		if pos != want {
			t.Errorf("Add returned position %d, want %d", pos, want)
		}
	}
	if f.Len() != 3 {
		t.Errorf("Len() = %d, want 3", f.Len())
	}
}

func TestAddRejectsZeroVector(t *testing.T) {
	f, _ := NewFlat(3)
	if _, err := f.Add([]float64{0, 0, 0}); !errors.Is(err, ErrZeroVector) {
		t.Errorf("Add(zero) error = %v, want ErrZeroVector", err)
	}
	if f.Len() != 0 {
		t.Errorf("rejected vector was stored; Len() = %d", f.Len())
	}
}

func TestAddRejectsDimensionMismatch(t *testing.T) {
	f, _ := NewFlat(3)
	if _, err := f.Add([]float64{1, 2}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Add(short) error = %v, want ErrDimensionMismatch", err)
	}
}

func TestAddBatchAllOrNothing(t *testing.T) {
	f, _ := NewFlat(2)
	_, err := f.AddBatch([][]float64{{1, 0}, {0, 0}, {0, 1}})
	if !errors.Is(err, ErrZeroVector) {
		t.Fatalf("AddBatch error = %v, want ErrZeroVector", err)
	}
	if f.Len() != 0 {
		t.Errorf("partial batch was stored; Len() = %d", f.Len())
	}

	positions, err := f.AddBatch([][]float64{{1, 0}, {0, 1}})
	if err != nil {
		t.Fatalf("AddBatch: %v", err)
	}
	if len(positions) != 2 || positions[0] != 0 || positions[1] != 1 {
		t.Errorf("AddBatch positions = %v, want [0 1]", positions)
	}
}

func TestSearchOrdersByDescendingSimilarity(t *testing.T) {
	f, _ := NewFlat(2)
	// Vectors at 0°, 90° and 45° relative to the x axis.
	if _, err := f.AddBatch([][]float64{{1, 0}, {0, 1}, {1, 1}}); err != nil {
		t.Fatalf("AddBatch: %v", err)
	}

	results, err := f.Search([]float64{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}

	if results[0].Position != 0 {
		t.Errorf("best match position = %d, want 0", results[0].Position)
	}
	if math.Abs(results[0].Score-1.0) > 1e-9 {
		t.Errorf("self-similarity score = %v, want ~1.0", results[0].Score)
	}
	if results[1].Position != 2 {
		t.Errorf("second match position = %d, want 2 (45° vector)", results[1].Position)
	}
	if results[2].Position != 1 {
		t.Errorf("third match position = %d, want 1 (orthogonal)", results[2].Position)
	}
}

func TestSearchTieBreaksByInsertionOrder(t *testing.T) {
	f, _ := NewFlat(2)
	// Identical vectors: symmetrical scores, order must follow insertion.
	if _, err := f.AddBatch([][]float64{{2, 0}, {5, 0}, {1, 0}}); err != nil {
		t.Fatalf("AddBatch: %v", err)
	}

	results, err := f.Search([]float64{1, 0}, 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for i, r := range results {
		if r.Position != i {
			t.Errorf("result %d has position %d, want %d", i, r.Position, i)
		}
	}
}

func TestSearchCapsAtCardinality(t *testing.T) {
	f, _ := NewFlat(2)
	if _, err := f.Add([]float64{1, 0}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	results, err := f.Search([]float64{1, 1}, 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("got %d results, want 1", len(results))
	}
}

func TestSearchZeroQueryRejected(t *testing.T) {
	f, _ := NewFlat(2)
	if _, err := f.Add([]float64{1, 0}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := f.Search([]float64{0, 0}, 1); !errors.Is(err, ErrZeroVector) {
		t.Errorf("Search(zero) error = %v, want ErrZeroVector", err)
	}
}

func TestSearchNonPositiveK(t *testing.T) {
	f, _ := NewFlat(2)
	if _, err := f.Add([]float64{1, 0}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	results, err := f.Search([]float64{1, 0}, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search with k=0 returned %d results, want 0", len(results))
	}
}

func TestRebuildReplacesContents(t *testing.T) {
	f, _ := NewFlat(2)
	if _, err := f.AddBatch([][]float64{{1, 0}, {0, 1}}); err != nil {
		t.Fatalf("AddBatch: %v", err)
	}

	if err := f.Rebuild([][]float64{{1, 1}}); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if f.Len() != 1 {
		t.Errorf("Len() after rebuild = %d, want 1", f.Len())
	}

	results, err := f.Search([]float64{1, 1}, 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Position != 0 {
		t.Errorf("unexpected results after rebuild: %+v", results)
	}
}

func TestFailedRebuildKeepsOldContents(t *testing.T) {
	f, _ := NewFlat(2)
	if _, err := f.AddBatch([][]float64{{1, 0}, {0, 1}}); err != nil {
		t.Fatalf("AddBatch: %v", err)
	}

	err := f.Rebuild([][]float64{{1, 1}, {0, 0}})
	if !errors.Is(err, ErrZeroVector) {
		t.Fatalf("Rebuild error = %v, want ErrZeroVector", err)
	}

	// Old index must remain fully queryable.
	if f.Len() != 2 {
		t.Errorf("Len() after failed rebuild = %d, want 2", f.Len())
	}
	results, err := f.Search([]float64{1, 0}, 2)
	if err != nil {
		t.Fatalf("Search after failed rebuild: %v", err)
	}
	if len(results) != 2 || results[0].Position != 0 {
		t.Errorf("unexpected results after failed rebuild: %+v", results)
	}
}

func TestNormalizationDoesNotMutateInput(t *testing.T) {
	f, _ := NewFlat(2)
	in := []float64{3, 4}
	if _, err := f.Add(in); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if in[0] != 3 || in[1] != 4 {
		t.Errorf("input vector was mutated: %v", in)
	}
}
