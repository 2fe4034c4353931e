package types

import (
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestClampImportance(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"in range", 0.5, 0.5},
		{"lower bound", 0.0, 0.0},
		{"upper bound", 1.0, 1.0},
		{"above range", 1.7, 1.0},
		{"below range", -0.3, 0.0},
		{"nan", math.NaN(), 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampImportance(tt.in); got != tt.want {
				t.Errorf("ClampImportance(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	now := time.Now().UTC()
	accessed := now.Add(-time.Hour)

	col := &MemoryCollection{
		Records: []MemoryRecord{
			{
				ID:             "a",
				Content:        "User lives in Paris",
				Embedding:      []float64{0.1, 0.2, 0.3},
				Importance:     0.9,
				Topics:         []string{"location"},
				Timestamp:      now,
				LastAccessedAt: &accessed,
				AccessCount:    2,
			},
		},
		UpdatedAt:          now,
		LastDeduplicatedAt: &accessed,
	}

	clone := col.Clone()

	// Mutating the clone must not leak into the original.
	clone.Records[0].Embedding[0] = 99
	clone.Records[0].Topics[0] = "changed"
	*clone.Records[0].LastAccessedAt = now.Add(time.Hour)
	*clone.LastDeduplicatedAt = now.Add(time.Hour)

	if col.Records[0].Embedding[0] != 0.1 {
		t.Error("clone shares embedding slice with original")
	}
	if col.Records[0].Topics[0] != "location" {
		t.Error("clone shares topics slice with original")
	}
	if !col.Records[0].LastAccessedAt.Equal(accessed) {
		t.Error("clone shares LastAccessedAt pointer with original")
	}
	if !col.LastDeduplicatedAt.Equal(accessed) {
		t.Error("clone shares LastDeduplicatedAt pointer with original")
	}
}

func TestDimensions(t *testing.T) {
	col := NewMemoryCollection(time.Now())
	if got := col.Dimensions(); got != 0 {
		t.Errorf("empty collection Dimensions() = %d, want 0", got)
	}

	col.Records = append(col.Records, MemoryRecord{Embedding: []float64{1, 2, 3, 4}})
	if got := col.Dimensions(); got != 4 {
		t.Errorf("Dimensions() = %d, want 4", got)
	}
}

// TestCollectionJSONStable verifies that marshal→unmarshal→marshal yields
// identical bytes when nothing changed. The persistence layer relies on
// this for idempotent saves.
func TestCollectionJSONStable(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 30, 0, 123456789, time.UTC)
	col := &MemoryCollection{
		Records: []MemoryRecord{
			{
				ID:         "mem-1",
				Content:    "prefers dark roast coffee",
				Embedding:  []float64{0.5, -0.25, 0.125},
				Importance: 0.7,
				Category:   "preferences",
				Topics:     []string{"coffee"},
				Timestamp:  now,
			},
		},
		UpdatedAt: now,
	}

	first, err := json.Marshal(col)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded MemoryCollection
	if err := json.Unmarshal(first, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	second, err := json.Marshal(&decoded)
	if err != nil {
		t.Fatalf("re-marshal: %v", err)
	}

	if string(first) != string(second) {
		t.Errorf("JSON round-trip not stable:\n first: %s\nsecond: %s", first, second)
	}
}
