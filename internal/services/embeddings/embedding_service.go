package embeddings

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lucrum/internal/common"
	"github.com/ternarybob/lucrum/internal/interfaces"
	"google.golang.org/genai"
)

type embeddingService struct {
	coordinator *Coordinator
	config      *common.EmbeddingConfig
	logger      arbor.ILogger
}

// NewEmbeddingService creates a Gemini embedding service backed by the
// shared coordinator client.
func NewEmbeddingService(coordinator *Coordinator, config *common.EmbeddingConfig, logger arbor.ILogger) interfaces.EmbeddingService {
	return &embeddingService{
		coordinator: coordinator,
		config:      config,
		logger:      logger,
	}
}

func (s *embeddingService) ModelName() string {
	return s.config.Model
}

func (s *embeddingService) Dimension() int {
	return s.config.Dimension
}

func (s *embeddingService) IsAvailable() bool {
	return s.config.APIKey != ""
}

// EmbedTexts embeds the given texts in batches, preserving input order.
// The returned slice is positionally aligned with texts.
func (s *embeddingService) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	client, err := s.coordinator.Client(ctx)
	if err != nil {
		return nil, err
	}

	batchSize := s.config.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := s.embedBatch(ctx, client, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d-%d failed: %w", start, end, err)
		}
		vectors = append(vectors, batch...)
	}

	s.logger.Debug().
		Int("texts", len(texts)).
		Int("vectors", len(vectors)).
		Str("model", s.config.Model).
		Msg("Embedded texts")

	return vectors, nil
}

// EmbedQuery embeds a single retrieval query.
func (s *embeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := s.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 query vector, got %d", len(vectors))
	}
	return vectors[0], nil
}

func (s *embeddingService) embedBatch(ctx context.Context, client *genai.Client, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	dim := int32(s.config.Dimension)
	result, err := client.Models.EmbedContent(ctx, s.config.Model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, err
	}

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(result.Embeddings))
	}

	vectors := make([][]float32, 0, len(texts))
	for i, embedding := range result.Embeddings {
		if len(embedding.Values) != s.config.Dimension {
			return nil, fmt.Errorf("embedding %d has dimension %d, expected %d", i, len(embedding.Values), s.config.Dimension)
		}
		vectors = append(vectors, embedding.Values)
	}

	return vectors, nil
}
