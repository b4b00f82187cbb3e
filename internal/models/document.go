package models

import (
	"fmt"
	"time"
)

// Document represents a normalized document produced from a raw
// provider payload: one per tabular record, one per narrative filing.
// Immutable once created; the next ingestion cycle supersedes it.
type Document struct {
	// ID is unique within (entity, component), stable across re-ingestion
	// of unchanged content (e.g. "AAPL_income_stmt_3", "MSFT_10-K")
	ID        string                 `json:"id" badgerhold:"key"`
	Ticker    string                 `json:"ticker" badgerhold:"index"`
	Component Component              `json:"component"`
	Text      string                 `json:"text"`
	Metadata  map[string]interface{} `json:"metadata"`
	CreatedAt time.Time              `json:"created_at"`
}

// Chunk is a bounded slice of a Document's text, the unit that gets
// embedded. IDs are deterministic from (document id, index) so that
// re-chunking identical input reproduces identical ids.
type Chunk struct {
	ID       string                 `json:"id"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata"`
}

// ChunkID builds the deterministic chunk id for a document chunk.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, index)
}

// VectorRecord is a stored embedding, keyed by chunk id within an
// entity namespace. Upsert by id is the only mutation path.
type VectorRecord struct {
	ID        string                 `json:"id"`
	Namespace string                 `json:"namespace"`
	Embedding []float32              `json:"embedding"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// RetrievalMatch is one ranked similarity-search result. Ephemeral,
// produced only by queries.
type RetrievalMatch struct {
	ChunkID  string                 `json:"chunk_id"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata"`
}

// ComponentOutcome records the result of one component's refresh
// attempt within an orchestration call.
type ComponentOutcome struct {
	Component Component `json:"component"`
	Refreshed bool      `json:"refreshed"`
	Skipped   bool      `json:"skipped"` // fresh, no ingestion attempted
	Error     string    `json:"error,omitempty"`
}

// OrchestrationResult is the output of one orchestrate call.
type OrchestrationResult struct {
	RunID             string             `json:"run_id"`
	Ticker            string             `json:"ticker"`
	RetrievalContext  string             `json:"retrieval_context"`
	ComponentsUpdated []Component        `json:"components_updated"`
	Outcomes          []ComponentOutcome `json:"outcomes"`
	Matches           []RetrievalMatch   `json:"matches"`
}
