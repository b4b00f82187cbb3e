// Package indexing turns normalized documents into indexed vectors:
// persist, chunk, embed, upsert. Chunk ids are deterministic, so
// re-indexing unchanged content overwrites rather than duplicates.
package indexing

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lucrum/internal/interfaces"
	"github.com/ternarybob/lucrum/internal/models"
	"github.com/ternarybob/lucrum/internal/services/chunker"
)

// Service indexes documents for one (entity, component) at a time.
type Service struct {
	documents interfaces.DocumentStorage
	chunker   *chunker.Service
	embedder  interfaces.EmbeddingService
	vectors   interfaces.VectorStore
	logger    arbor.ILogger
}

// NewService creates an indexing service.
func NewService(
	documents interfaces.DocumentStorage,
	chunks *chunker.Service,
	embedder interfaces.EmbeddingService,
	vectors interfaces.VectorStore,
	logger arbor.ILogger,
) *Service {
	return &Service{
		documents: documents,
		chunker:   chunks,
		embedder:  embedder,
		vectors:   vectors,
		logger:    logger,
	}
}

// IndexComponent replaces the component's stored documents and indexes
// their chunks into the entity's namespace. A payload with no
// embeddable text is a recorded no-op, not an error: the component was
// fetched successfully and its freshness still advances.
func (s *Service) IndexComponent(ctx context.Context, entity *models.Entity, component models.Component, docs []*models.Document) error {
	ticker := entity.Namespace()

	if err := s.documents.ReplaceComponent(ctx, ticker, component, docs); err != nil {
		return &models.IndexingError{Component: component, Stage: "store", Err: err}
	}

	chunks := s.chunker.SplitAll(docs)
	if len(chunks) == 0 {
		s.logger.Info().
			Str("ticker", ticker).
			Str("component", string(component)).
			Msg("No embeddable text, skipping vector upsert")
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	// Embeddings come back positionally aligned with the input texts.
	embeddings, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return &models.IndexingError{Component: component, Stage: "embed", Err: err}
	}
	if len(embeddings) != len(chunks) {
		return &models.IndexingError{
			Component: component,
			Stage:     "embed",
			Err:       fmt.Errorf("expected %d embeddings, got %d", len(chunks), len(embeddings)),
		}
	}

	records := make([]models.VectorRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = models.VectorRecord{
			ID:        chunk.ID,
			Namespace: ticker,
			Embedding: embeddings[i],
			Metadata:  chunk.Metadata,
		}
	}

	if err := s.vectors.Upsert(ctx, ticker, records); err != nil {
		return &models.IndexingError{Component: component, Stage: "upsert", Err: err}
	}

	s.logger.Info().
		Str("ticker", ticker).
		Str("component", string(component)).
		Int("documents", len(docs)).
		Int("chunks", len(chunks)).
		Msg("Component indexed")

	return nil
}
