// Package ingestion fetches raw provider data and normalizes it into
// documents. Structured components share one provider across all
// jurisdictions; narrative ingestion is dispatched to the strategy
// registered for the entity's jurisdiction.
package ingestion

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lucrum/internal/interfaces"
	"github.com/ternarybob/lucrum/internal/models"
	"github.com/ternarybob/lucrum/internal/services/normalize"
)

// Payload is the normalized output of one component fetch, plus the
// provenance recorded in the component's freshness record.
type Payload struct {
	Documents   []*models.Document
	Source      string
	DataVersion string
}

// Service routes component fetches to the right provider and
// normalizes the results.
type Service struct {
	structured interfaces.StructuredProvider
	strategies map[models.Jurisdiction]interfaces.IngestionStrategy
	logger     arbor.ILogger
}

// NewService creates an ingestion service around a structured provider.
// Narrative strategies are registered separately per jurisdiction.
func NewService(structured interfaces.StructuredProvider, logger arbor.ILogger) *Service {
	return &Service{
		structured: structured,
		strategies: make(map[models.Jurisdiction]interfaces.IngestionStrategy),
		logger:     logger,
	}
}

// RegisterStrategy registers a narrative strategy for its jurisdiction.
// A later registration for the same jurisdiction replaces the earlier.
func (s *Service) RegisterStrategy(strategy interfaces.IngestionStrategy) {
	s.strategies[strategy.Jurisdiction()] = strategy
}

// Fetch retrieves and normalizes one component for an entity.
// Structured components go through the shared provider; narrative goes
// through the jurisdiction's strategy. An empty Payload (no documents)
// is a legitimate outcome for components that may have no data.
func (s *Service) Fetch(ctx context.Context, entity *models.Entity, component models.Component) (*Payload, error) {
	if component.IsStructured() {
		return s.fetchStructured(ctx, entity, component)
	}
	return s.fetchNarrative(ctx, entity)
}

func (s *Service) fetchStructured(ctx context.Context, entity *models.Entity, component models.Component) (*Payload, error) {
	table, err := s.structured.FetchTable(ctx, entity, component)
	if err != nil {
		return nil, err
	}

	docs := normalize.NormalizeTable(entity, table)
	s.logger.Debug().
		Str("ticker", entity.Ticker).
		Str("component", string(component)).
		Int("rows", len(table.Rows)).
		Int("documents", len(docs)).
		Msg("Structured component fetched")

	return &Payload{
		Documents:   docs,
		Source:      table.Source,
		DataVersion: models.DataVersionStructured,
	}, nil
}

func (s *Service) fetchNarrative(ctx context.Context, entity *models.Entity) (*Payload, error) {
	strategy, ok := s.strategies[entity.Jurisdiction]
	if !ok {
		return nil, fmt.Errorf("no narrative ingestion strategy registered for jurisdiction %s", entity.Jurisdiction)
	}

	narrative, err := strategy.FetchNarrative(ctx, entity)
	if err != nil {
		return nil, err
	}

	payload := &Payload{
		Source:      narrative.Source,
		DataVersion: narrative.DataVersion,
	}
	if doc := normalize.NormalizeNarrative(entity, narrative); doc != nil {
		payload.Documents = append(payload.Documents, doc)
	}

	s.logger.Debug().
		Str("ticker", entity.Ticker).
		Str("jurisdiction", string(entity.Jurisdiction)).
		Str("source", narrative.Source).
		Int("documents", len(payload.Documents)).
		Msg("Narrative component fetched")

	return payload, nil
}
