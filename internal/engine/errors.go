package engine

import "errors"

// Validation errors returned before any I/O happens.
var (
	// ErrEmptyContent is returned when a store request carries no content.
	ErrEmptyContent = errors.New("memory content must not be empty")

	// ErrEmptyQuery is returned when a search request carries no query text.
	ErrEmptyQuery = errors.New("search query must not be empty")

	// ErrDimensionMismatch is returned when a new embedding's width differs
	// from the width established by the owner's existing records.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrDegenerateEmbedding is returned when the embedder produces an
	// empty or zero-norm vector. A vector with no direction cannot be
	// indexed, so it is rejected before it reaches the collection.
	ErrDegenerateEmbedding = errors.New("embedder returned a zero-norm vector")
)
