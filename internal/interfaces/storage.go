package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/lucrum/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// DocumentStorage persists normalized documents per (entity, component).
// Documents are superseded, not mutated: each successful ingestion
// replaces the component's document set.
type DocumentStorage interface {
	// ReplaceComponent atomically replaces all documents for the
	// (ticker, component) pair with the given set.
	ReplaceComponent(ctx context.Context, ticker string, component models.Component, docs []*models.Document) error

	// GetByComponent returns the current canonical documents for the
	// (ticker, component) pair, ordered by id.
	GetByComponent(ctx context.Context, ticker string, component models.Component) ([]*models.Document, error)

	// CountByTicker returns the number of documents stored for a ticker.
	CountByTicker(ctx context.Context, ticker string) (int, error)

	// DeleteByTicker removes all documents for a ticker.
	DeleteByTicker(ctx context.Context, ticker string) error
}

// FreshnessStorage persists per-(entity, component) ingestion records.
// FetchedAt is monotonically non-decreasing per pair: writes carrying
// an older timestamp than the stored record are rejected.
type FreshnessStorage interface {
	Get(ctx context.Context, ticker string, component models.Component) (*models.FreshnessRecord, error)
	Record(ctx context.Context, record *models.FreshnessRecord) error
	ListByTicker(ctx context.Context, ticker string) ([]models.FreshnessRecord, error)
}

// Artifact is a raw downloaded file (e.g. a filing PDF) kept for audit.
type Artifact struct {
	// Key is "{ticker}/{filename}"
	Key       string    `json:"key" badgerhold:"key"`
	Ticker    string    `json:"ticker" badgerhold:"index"`
	Filename  string    `json:"filename"`
	Content   []byte    `json:"content"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// ArtifactStorage persists raw downloaded artifacts. Dedup is by
// filename presence only (same-name skip), matching the provider's
// published-name semantics.
type ArtifactStorage interface {
	Put(ctx context.Context, artifact *Artifact) error
	Exists(ctx context.Context, ticker, filename string) (bool, error)
	Get(ctx context.Context, ticker, filename string) (*Artifact, error)
	ListByTicker(ctx context.Context, ticker string) ([]string, error)
}

// StorageManager provides access to all storage interfaces.
type StorageManager interface {
	DocumentStorage() DocumentStorage
	FreshnessStorage() FreshnessStorage
	ArtifactStorage() ArtifactStorage
	Close() error
}
