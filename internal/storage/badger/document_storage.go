package badger

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lucrum/internal/interfaces"
	"github.com/ternarybob/lucrum/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// DocumentStorage implements the DocumentStorage interface for Badger
type DocumentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewDocumentStorage creates a new DocumentStorage instance
func NewDocumentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.DocumentStorage {
	return &DocumentStorage{
		db:     db,
		logger: logger,
	}
}

// ReplaceComponent replaces the document set for one (ticker, component)
// pair. The previous set is deleted first so documents removed by the
// new ingestion cycle do not linger.
func (s *DocumentStorage) ReplaceComponent(ctx context.Context, ticker string, component models.Component, docs []*models.Document) error {
	ticker = strings.ToUpper(ticker)

	err := s.db.Store().DeleteMatching(&models.Document{},
		badgerhold.Where("Ticker").Eq(ticker).And("Component").Eq(component))
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to clear previous documents: %w", err)
	}

	now := time.Now().UTC()
	for _, doc := range docs {
		if doc.ID == "" {
			return fmt.Errorf("document ID is required")
		}
		doc.Ticker = ticker
		doc.Component = component
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = now
		}
		if err := s.db.Store().Upsert(doc.ID, doc); err != nil {
			return fmt.Errorf("failed to save document %s: %w", doc.ID, err)
		}
	}

	s.logger.Debug().
		Str("ticker", ticker).
		Str("component", string(component)).
		Int("count", len(docs)).
		Msg("Replaced component documents")

	return nil
}

// GetByComponent returns the current documents for a (ticker, component)
// pair, ordered by id for stable downstream chunk ids.
func (s *DocumentStorage) GetByComponent(ctx context.Context, ticker string, component models.Component) ([]*models.Document, error) {
	var docs []models.Document
	err := s.db.Store().Find(&docs,
		badgerhold.Where("Ticker").Eq(strings.ToUpper(ticker)).And("Component").Eq(component))
	if err != nil {
		return nil, fmt.Errorf("failed to find documents: %w", err)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	result := make([]*models.Document, len(docs))
	for i := range docs {
		result[i] = &docs[i]
	}
	return result, nil
}

// CountByTicker returns the number of documents stored for a ticker.
func (s *DocumentStorage) CountByTicker(ctx context.Context, ticker string) (int, error) {
	count, err := s.db.Store().Count(&models.Document{},
		badgerhold.Where("Ticker").Eq(strings.ToUpper(ticker)))
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return int(count), nil
}

// DeleteByTicker removes all documents for a ticker.
func (s *DocumentStorage) DeleteByTicker(ctx context.Context, ticker string) error {
	err := s.db.Store().DeleteMatching(&models.Document{},
		badgerhold.Where("Ticker").Eq(strings.ToUpper(ticker)))
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to delete documents: %w", err)
	}
	return nil
}
