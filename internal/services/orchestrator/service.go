// Package orchestrator drives the freshness-first retrieval cycle:
// resolve the entity, refresh whichever components have gone stale,
// then answer the query from the entity's vector namespace.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lucrum/internal/common"
	"github.com/ternarybob/lucrum/internal/interfaces"
	"github.com/ternarybob/lucrum/internal/models"
	"github.com/ternarybob/lucrum/internal/services/indexing"
	"github.com/ternarybob/lucrum/internal/services/ingestion"
	"github.com/ternarybob/lucrum/internal/services/registry"
	"golang.org/x/sync/errgroup"
)

// refreshConcurrency bounds concurrent component refreshes per call.
// Providers rate-limit aggressively; a small fan-out keeps a cycle
// fast without tripping them.
const refreshConcurrency = 3

// Options tunes a single orchestration call.
type Options struct {
	// Force refreshes every component regardless of freshness.
	Force bool
	// TopK overrides the configured retrieval depth when positive.
	TopK int
	// Hint identifies a company the registry does not know yet.
	Hint *registry.Hint
}

// Service is the orchestration entry point.
type Service struct {
	registry   *registry.Service
	ingestion  *ingestion.Service
	indexing   *indexing.Service
	freshness  interfaces.FreshnessStorage
	embedder   interfaces.EmbeddingService
	vectors    interfaces.VectorStore
	thresholds common.Thresholds
	topK       int
	logger     arbor.ILogger
}

// NewService creates the orchestrator.
func NewService(
	reg *registry.Service,
	ing *ingestion.Service,
	idx *indexing.Service,
	freshness interfaces.FreshnessStorage,
	embedder interfaces.EmbeddingService,
	vectors interfaces.VectorStore,
	thresholds common.Thresholds,
	topK int,
	logger arbor.ILogger,
) *Service {
	if topK <= 0 {
		topK = 5
	}
	return &Service{
		registry:   reg,
		ingestion:  ing,
		indexing:   idx,
		freshness:  freshness,
		embedder:   embedder,
		vectors:    vectors,
		thresholds: thresholds,
		topK:       topK,
		logger:     logger,
	}
}

// Orchestrate runs one full cycle for a ticker: entity resolution,
// per-component staleness evaluation, refresh of stale components, and
// retrieval for the query. Identity and store availability failures
// are terminal; a single component's refresh failure is recorded in
// its outcome and the cycle continues, answering from whatever data is
// indexed.
func (s *Service) Orchestrate(ctx context.Context, ticker, query string, opts *Options) (*models.OrchestrationResult, error) {
	if opts == nil {
		opts = &Options{}
	}

	runID := common.NewRunID()
	logger := s.logger.WithCorrelationId(runID)

	entity, err := s.registry.Resolve(ticker, opts.Hint)
	if err != nil {
		return nil, err
	}

	if err := s.vectors.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrStoreUnavailable, err)
	}

	logger.Info().
		Str("ticker", entity.Ticker).
		Str("jurisdiction", string(entity.Jurisdiction)).
		Bool("force", opts.Force).
		Msg("Orchestration started")

	// Embedding availability is checked up front: without it nothing can
	// be indexed or queried, so the cycle degrades explicitly instead of
	// failing from inside the embedding client.
	embedderReady := s.embedder.IsAvailable()

	var outcomes []models.ComponentOutcome
	if embedderReady {
		outcomes = s.refreshStale(ctx, entity, opts.Force, logger)
	} else {
		logger.Warn().
			Str("ticker", entity.Ticker).
			Msg("Embedding service unavailable, refresh skipped")
		components := models.TrackedComponents()
		outcomes = make([]models.ComponentOutcome, len(components))
		for i, component := range components {
			outcomes[i] = models.ComponentOutcome{Component: component, Error: "embedding service unavailable"}
		}
	}

	var updated []models.Component
	for _, outcome := range outcomes {
		if outcome.Refreshed {
			updated = append(updated, outcome.Component)
		}
	}

	result := &models.OrchestrationResult{
		RunID:             runID,
		Ticker:            entity.Namespace(),
		ComponentsUpdated: updated,
		Outcomes:          outcomes,
	}

	if strings.TrimSpace(query) != "" {
		if !embedderReady {
			return nil, fmt.Errorf("cannot answer query for %s: embedding service unavailable", entity.Ticker)
		}
		matches, retrievalContext, err := s.retrieve(ctx, entity, query, opts.TopK)
		if err != nil {
			return nil, err
		}
		result.Matches = matches
		result.RetrievalContext = retrievalContext
	}

	logger.Info().
		Str("ticker", entity.Ticker).
		Int("updated", len(updated)).
		Int("matches", len(result.Matches)).
		Msg("Orchestration complete")

	return result, nil
}

// refreshStale evaluates every tracked component and refreshes the
// stale ones concurrently. Outcomes come back in tracked order.
func (s *Service) refreshStale(ctx context.Context, entity *models.Entity, force bool, logger arbor.ILogger) []models.ComponentOutcome {
	components := models.TrackedComponents()
	outcomes := make([]models.ComponentOutcome, len(components))

	now := time.Now().UTC()
	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(refreshConcurrency)

	for i, component := range components {
		i, component := i, component

		record, err := s.freshness.Get(ctx, entity.Ticker, component)
		if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
			outcomes[i] = models.ComponentOutcome{Component: component, Error: err.Error()}
			continue
		}

		staleness := common.CheckComponentStaleness(record, s.thresholds.MaxAge(component), now, force)
		if !staleness.IsStale {
			logger.Debug().
				Str("component", string(component)).
				Str("reason", staleness.Reason).
				Msg("Component fresh, skipping")
			outcomes[i] = models.ComponentOutcome{Component: component, Skipped: true}
			continue
		}

		logger.Info().
			Str("component", string(component)).
			Str("reason", staleness.Reason).
			Msg("Component stale, refreshing")

		group.Go(func() error {
			outcome := s.refreshComponent(groupCtx, entity, component)
			mu.Lock()
			outcomes[i] = outcome
			mu.Unlock()
			return nil
		})
	}

	// Component goroutines report failures through their outcome, never
	// through the group error.
	_ = group.Wait()
	return outcomes
}

// refreshComponent runs one component's fetch, index, record sequence.
// The freshness record advances only after indexing succeeds, so a
// failed cycle leaves the component stale and retried next call.
func (s *Service) refreshComponent(ctx context.Context, entity *models.Entity, component models.Component) models.ComponentOutcome {
	outcome := models.ComponentOutcome{Component: component}

	payload, err := s.ingestion.Fetch(ctx, entity, component)
	if err != nil {
		s.logger.Warn().
			Str("ticker", entity.Ticker).
			Str("component", string(component)).
			Err(err).
			Msg("Component fetch failed")
		outcome.Error = err.Error()
		return outcome
	}

	if err := s.indexing.IndexComponent(ctx, entity, component, payload.Documents); err != nil {
		s.logger.Warn().
			Str("ticker", entity.Ticker).
			Str("component", string(component)).
			Err(err).
			Msg("Component indexing failed")
		outcome.Error = err.Error()
		return outcome
	}

	record := &models.FreshnessRecord{
		Key:         models.FreshnessKey(entity.Ticker, component),
		Ticker:      entity.Namespace(),
		Component:   component,
		FetchedAt:   time.Now().UTC(),
		DataVersion: payload.DataVersion,
		Source:      payload.Source,
	}
	if err := s.freshness.Record(ctx, record); err != nil {
		outcome.Error = (&models.IndexingError{Component: component, Stage: "freshness", Err: err}).Error()
		return outcome
	}

	outcome.Refreshed = true
	return outcome
}

// retrieve embeds the query and runs similarity search in the entity's
// namespace, assembling the grouped retrieval context.
func (s *Service) retrieve(ctx context.Context, entity *models.Entity, query string, topK int) ([]models.RetrievalMatch, string, error) {
	if topK <= 0 {
		topK = s.topK
	}

	queryVector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, "", fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := s.vectors.Query(ctx, entity.Namespace(), queryVector, topK)
	if err != nil {
		return nil, "", fmt.Errorf("retrieval query failed: %w", err)
	}

	return matches, assembleContext(entity, matches), nil
}

// assembleContext renders ranked matches as grounding text, narrative
// disclosures first, then structured financials.
func assembleContext(entity *models.Entity, matches []models.RetrievalMatch) string {
	if len(matches) == 0 {
		return ""
	}

	grouped := map[string][]models.RetrievalMatch{}
	for _, match := range matches {
		category, _ := match.Metadata["category"].(string)
		if category != "narrative" {
			category = "structured"
		}
		grouped[category] = append(grouped[category], match)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Context for %s:\n", entity.Namespace())

	for _, section := range []struct {
		key   string
		title string
	}{
		{"narrative", "Narrative disclosures"},
		{"structured", "Structured financials"},
	} {
		sectionMatches := grouped[section.key]
		if len(sectionMatches) == 0 {
			continue
		}
		sort.SliceStable(sectionMatches, func(i, j int) bool {
			return sectionMatches[i].Score > sectionMatches[j].Score
		})

		fmt.Fprintf(&sb, "\n## %s\n", section.title)
		for _, match := range sectionMatches {
			text, _ := match.Metadata["text"].(string)
			if text == "" {
				continue
			}
			fmt.Fprintf(&sb, "\n[%.3f] %s\n", match.Score, strings.TrimSpace(text))
		}
	}

	return sb.String()
}
