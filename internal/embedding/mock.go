package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// MockEmbedder produces deterministic embeddings without any external
// service. Each whitespace-separated token contributes a pseudo-random
// direction seeded from its hash, so texts sharing tokens get similar
// vectors. Useful for tests and offline development.
type MockEmbedder struct {
	dimensions int
}

var _ Embedder = (*MockEmbedder)(nil)

// NewMockEmbedder creates a mock embedder producing vectors of the
// given width (default 256 when dimensions <= 0).
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 256
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a deterministic unit vector derived from the text's
// tokens. The same text always yields the same vector.
func (m *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float64, m.dimensions)

	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		tokens = []string{""}
	}

	for _, tok := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		seed := h.Sum64()

		// Linear congruential generator seeded per token.
		state := seed
		for i := 0; i < m.dimensions; i++ {
			state = state*6364136223846793005 + 1442695040888963407
			// Map the top bits into [-1, 1).
			vec[i] += float64(int64(state>>11))/float64(1<<52) - 1
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, m.dimensions)
	if norm > 0 {
		for i, v := range vec {
			out[i] = float32(v / norm)
		}
	} else {
		out[0] = 1
	}
	return out, nil
}

// Dimensions returns the vector width.
func (m *MockEmbedder) Dimensions() int {
	return m.dimensions
}

// GetModel returns a fixed identifier for the mock provider.
func (m *MockEmbedder) GetModel() string {
	return "mock"
}
