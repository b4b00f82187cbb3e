package models

import (
	"fmt"
	"strings"
	"time"
)

// Component is one category of data tracked per entity. Each component
// has an independent freshness lifecycle.
type Component string

const (
	ComponentPrice        Component = "price"
	ComponentIncomeStmt   Component = "income_stmt"
	ComponentBalanceSheet Component = "balance_sheet"
	ComponentCashFlow     Component = "cash_flow"
	ComponentInfo         Component = "info"
	ComponentNarrative    Component = "narrative"
)

// Data versions tag ingested records with the normalization scheme
// that produced them, so a version bump can invalidate stored data
// without a threshold change.
const (
	DataVersionStructured = "v1.0"
	DataVersionNarrative  = "v5.0"
)

// TrackedComponents lists every component the orchestrator evaluates
// per refresh cycle, in a stable order.
func TrackedComponents() []Component {
	return []Component{
		ComponentPrice,
		ComponentIncomeStmt,
		ComponentBalanceSheet,
		ComponentCashFlow,
		ComponentInfo,
		ComponentNarrative,
	}
}

// ParseComponent normalizes a component name string.
func ParseComponent(s string) (Component, error) {
	c := Component(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range TrackedComponents() {
		if c == known {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown component: %s", s)
}

// IsStructured reports whether the component is tabular financial data
// (fetched by the shared structured strategy) as opposed to narrative
// filing text (fetched by the jurisdiction strategy).
func (c Component) IsStructured() bool {
	return c != ComponentNarrative
}

// Category returns the retrieval grouping label for the component.
func (c Component) Category() string {
	if c == ComponentNarrative {
		return "narrative"
	}
	return "structured"
}

// FreshnessRecord records the last successful ingestion of one
// (entity, component) pair. Overwritten on each successful ingestion;
// FetchedAt is monotonically non-decreasing per pair.
type FreshnessRecord struct {
	// Key is "{ticker}/{component}"
	Key         string    `json:"key" badgerhold:"key"`
	Ticker      string    `json:"ticker" badgerhold:"index"`
	Component   Component `json:"component"`
	FetchedAt   time.Time `json:"fetched_at"`
	DataVersion string    `json:"data_version"`
	Source      string    `json:"source"`
}

// FreshnessKey builds the storage key for a freshness record.
func FreshnessKey(ticker string, component Component) string {
	return strings.ToUpper(ticker) + "/" + string(component)
}
