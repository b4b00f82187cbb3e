package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/lucrum/internal/models"
)

// RawTable is a provider's tabular payload for one structured
// component: ordered columns and one map per row. Statements may
// legitimately be empty for young or foreign entities.
type RawTable struct {
	Component models.Component
	Columns   []string
	Rows      []map[string]interface{}
	Source    string
	FetchedAt time.Time
}

// RawNarrative is a provider's narrative filing payload: the high
// signal text of the latest required filing plus its identity.
type RawNarrative struct {
	Ticker      string
	Source      string
	FilingType  string
	FilingDate  string
	Accession   string
	Text        string
	DataVersion string
	FetchedAt   time.Time
}

// StructuredProvider fetches tabular financial data. Jurisdiction
// independent: callers normalize the vendor symbol before invoking.
type StructuredProvider interface {
	// FetchTable returns the raw table for one structured component.
	// Returns *models.NoDataError when the provider has nothing for a
	// mandatory component (price); statements return empty tables.
	FetchTable(ctx context.Context, entity *models.Entity, component models.Component) (*RawTable, error)
}

// IngestionStrategy fetches narrative filing data for one
// jurisdiction. Adding a jurisdiction means adding an implementation,
// not modifying dispatch control flow.
type IngestionStrategy interface {
	// Jurisdiction returns the jurisdiction this strategy serves.
	Jurisdiction() models.Jurisdiction

	// FetchNarrative resolves, fetches and condenses the latest
	// required narrative filing for the entity.
	FetchNarrative(ctx context.Context, entity *models.Entity) (*RawNarrative, error)
}
