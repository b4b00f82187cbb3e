package interfaces

import (
	"context"
)

// EmbeddingService generates vector embeddings. Implementations must be
// safe for concurrent use by multiple ingestion tasks; the underlying
// model client is constructed once per process and never torn down
// mid-process.
type EmbeddingService interface {
	// EmbedTexts generates embeddings for a batch of texts. The returned
	// slice is positionally aligned with the input.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a search query (may use a
	// different prompt than document embedding)
	EmbedQuery(ctx context.Context, query string) ([]float32, error)

	// Get model information
	ModelName() string
	Dimension() int

	// IsAvailable reports whether the service is configured for use.
	// Checked before use rather than surfacing failures from deep call
	// chains.
	IsAvailable() bool
}
