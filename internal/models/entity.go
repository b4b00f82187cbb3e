package models

import (
	"fmt"
	"strings"
)

// Jurisdiction identifies the regulatory home of a tracked company.
// Each jurisdiction carries its own narrative ingestion strategy.
type Jurisdiction string

const (
	JurisdictionUS    Jurisdiction = "US"
	JurisdictionIndia Jurisdiction = "INDIA"
)

// ParseJurisdiction normalizes a jurisdiction string.
// Accepts common aliases ("USA", "IN").
func ParseJurisdiction(s string) (Jurisdiction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "US", "USA", "UNITED STATES":
		return JurisdictionUS, nil
	case "INDIA", "IN":
		return JurisdictionIndia, nil
	case "":
		return "", fmt.Errorf("empty jurisdiction")
	default:
		return "", fmt.Errorf("unknown jurisdiction: %s", s)
	}
}

// Entity represents a tracked company, keyed by canonical ticker.
// Identity is immutable once resolved; the canonical ticker is the
// storage key and vector namespace for all of the entity's data.
type Entity struct {
	// Ticker is the canonical ticker code (uppercase, no exchange suffix)
	Ticker string `json:"ticker" badgerhold:"key"`
	// Name is the company display name
	Name string `json:"name,omitempty"`
	// Jurisdiction determines which narrative ingestion strategy applies
	Jurisdiction Jurisdiction `json:"jurisdiction"`
	// CIK is the SEC Central Index Key (US entities only, digits, unpadded)
	CIK string `json:"cik,omitempty"`
	// ScripCode is the BSE scrip code (Indian entities only)
	ScripCode string `json:"scrip_code,omitempty"`
}

// Validate checks that the entity carries the external ids its
// jurisdiction's ingestion strategy requires.
func (e *Entity) Validate() error {
	if e.Ticker == "" {
		return fmt.Errorf("entity has no ticker")
	}
	switch e.Jurisdiction {
	case JurisdictionUS:
		if e.CIK == "" {
			return fmt.Errorf("US entity %s has no CIK", e.Ticker)
		}
	case JurisdictionIndia:
		if e.ScripCode == "" {
			return fmt.Errorf("Indian entity %s has no scrip code", e.Ticker)
		}
	default:
		return fmt.Errorf("entity %s has unknown jurisdiction %q", e.Ticker, e.Jurisdiction)
	}
	return nil
}

// Namespace returns the vector-index namespace for this entity.
// Queries never cross namespaces.
func (e *Entity) Namespace() string {
	return strings.ToUpper(e.Ticker)
}
