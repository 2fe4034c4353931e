// Package embedding provides text-to-vector generation for the memory
// engine. The engine depends only on the Embedder interface; concrete
// clients (Ollama, OpenAI) wrap remote HTTP APIs with circuit breaker
// protection and client-side rate limiting, and a deterministic mock
// backs tests.
package embedding

import "context"

// Embedder converts text into a fixed-width vector embedding.
// Returns float32 slices; callers convert to float64 for storage.
type Embedder interface {
	// Embed generates the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the width of vectors this embedder produces.
	Dimensions() int

	// GetModel returns the model identifier, for logging and
	// persistence metadata.
	GetModel() string
}
