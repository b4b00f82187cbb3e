// Package common provides shared utilities across the application.
package common

import (
	"fmt"
	"time"

	"github.com/ternarybob/lucrum/internal/models"
)

// Default per-component staleness thresholds. Quoted prices go stale
// within a day; filed annual narratives last a quarter.
const (
	DefaultPriceMaxAge     = 24 * time.Hour
	DefaultStatementMaxAge = 30 * 24 * time.Hour
	DefaultInfoMaxAge      = 7 * 24 * time.Hour
	DefaultNarrativeMaxAge = 90 * 24 * time.Hour
)

// Thresholds holds the per-component maximum age before a component is
// considered stale.
type Thresholds struct {
	Price     time.Duration
	Statement time.Duration
	Info      time.Duration
	Narrative time.Duration
}

// DefaultThresholds returns the default staleness thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Price:     DefaultPriceMaxAge,
		Statement: DefaultStatementMaxAge,
		Info:      DefaultInfoMaxAge,
		Narrative: DefaultNarrativeMaxAge,
	}
}

// MaxAge returns the threshold for a component.
func (t Thresholds) MaxAge(component models.Component) time.Duration {
	switch component {
	case models.ComponentPrice:
		return t.Price
	case models.ComponentInfo:
		return t.Info
	case models.ComponentNarrative:
		return t.Narrative
	default:
		return t.Statement
	}
}

// StalenessResult contains the result of a staleness check.
type StalenessResult struct {
	// IsStale indicates whether the cached data is stale and needs refresh.
	IsStale bool
	// NextCheckTime is when the component would next go stale, if it is
	// currently fresh.
	NextCheckTime time.Time
	// Reason provides a human-readable explanation for the decision.
	Reason string
}

// CheckComponentStaleness decides whether a component needs
// re-ingestion. Pure and side-effect-free: it runs once per component
// per orchestration call without external I/O.
//
// Stale when force is set, when no record exists, or when
// now - fetched_at exceeds the component threshold.
func CheckComponentStaleness(record *models.FreshnessRecord, maxAge time.Duration, now time.Time, force bool) StalenessResult {
	if force {
		return StalenessResult{
			IsStale: true,
			Reason:  "force refresh requested",
		}
	}

	if record == nil {
		return StalenessResult{
			IsStale: true,
			Reason:  "no ingestion record, never fetched",
		}
	}

	age := now.UTC().Sub(record.FetchedAt.UTC())
	if age > maxAge {
		return StalenessResult{
			IsStale: true,
			Reason: fmt.Sprintf("fetched %s ago, threshold %s",
				age.Round(time.Minute), maxAge),
		}
	}

	return StalenessResult{
		IsStale:       false,
		NextCheckTime: record.FetchedAt.UTC().Add(maxAge),
		Reason: fmt.Sprintf("fetched %s ago, fresh until %s",
			age.Round(time.Minute),
			record.FetchedAt.UTC().Add(maxAge).Format("2006-01-02 15:04 MST")),
	}
}
