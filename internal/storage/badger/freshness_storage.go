package badger

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lucrum/internal/interfaces"
	"github.com/ternarybob/lucrum/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// FreshnessStorage implements the FreshnessStorage interface for Badger
type FreshnessStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewFreshnessStorage creates a new FreshnessStorage instance
func NewFreshnessStorage(db *BadgerDB, logger arbor.ILogger) interfaces.FreshnessStorage {
	return &FreshnessStorage{
		db:     db,
		logger: logger,
	}
}

// Get retrieves the freshness record for a (ticker, component) pair.
// Returns interfaces.ErrNotFound when the pair has never been ingested.
func (s *FreshnessStorage) Get(ctx context.Context, ticker string, component models.Component) (*models.FreshnessRecord, error) {
	key := models.FreshnessKey(ticker, component)

	var record models.FreshnessRecord
	err := s.db.Store().Get(key, &record)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get freshness record: %w", err)
	}

	return &record, nil
}

// Record writes a freshness record. FetchedAt must be monotonically
// non-decreasing per (ticker, component); regressions are rejected.
func (s *FreshnessStorage) Record(ctx context.Context, record *models.FreshnessRecord) error {
	if record.Ticker == "" || record.Component == "" {
		return fmt.Errorf("freshness record requires ticker and component")
	}
	if record.FetchedAt.IsZero() {
		return fmt.Errorf("freshness record requires fetched_at")
	}

	record.Ticker = strings.ToUpper(record.Ticker)
	record.Key = models.FreshnessKey(record.Ticker, record.Component)

	var existing models.FreshnessRecord
	err := s.db.Store().Get(record.Key, &existing)
	if err == nil && record.FetchedAt.Before(existing.FetchedAt) {
		return fmt.Errorf("fetched_at regression for %s: %s is before stored %s",
			record.Key,
			record.FetchedAt.Format("2006-01-02 15:04:05"),
			existing.FetchedAt.Format("2006-01-02 15:04:05"))
	}
	if err != nil && err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to check existing freshness record: %w", err)
	}

	if err := s.db.Store().Upsert(record.Key, record); err != nil {
		return fmt.Errorf("failed to record freshness: %w", err)
	}

	return nil
}

// ListByTicker returns all freshness records for a ticker.
func (s *FreshnessStorage) ListByTicker(ctx context.Context, ticker string) ([]models.FreshnessRecord, error) {
	var records []models.FreshnessRecord
	err := s.db.Store().Find(&records,
		badgerhold.Where("Ticker").Eq(strings.ToUpper(ticker)))
	if err != nil {
		return nil, fmt.Errorf("failed to list freshness records: %w", err)
	}
	return records, nil
}
