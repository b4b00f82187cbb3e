package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/lucrum/internal/models"
)

// ErrStoreUnavailable is returned when the vector store cannot be
// reached. Terminal for the orchestration call.
var ErrStoreUnavailable = errors.New("vector store unavailable")

// VectorStore is a namespace-scoped vector index. Namespaces are keyed
// by canonical ticker and never intersect: a query against one
// namespace cannot return records written to another.
type VectorStore interface {
	// Upsert writes records into the namespace, keyed by record id.
	// Replace semantics: writing an existing id overwrites it.
	Upsert(ctx context.Context, namespace string, records []models.VectorRecord) error

	// Query returns the top-k most similar records in the namespace,
	// ranked by similarity score descending.
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]models.RetrievalMatch, error)

	// Count returns the number of records stored in the namespace.
	Count(ctx context.Context, namespace string) (int, error)

	// Ping verifies the store is reachable. Checked once per
	// orchestration call before any writes.
	Ping(ctx context.Context) error
}
