// Package common provides shared utilities across the application.
package common

import (
	"strings"

	"github.com/ternarybob/lucrum/internal/models"
)

// Ticker represents a parsed canonical ticker. The canonical code is
// the storage key and vector namespace; vendor-specific symbols are
// derived from it per jurisdiction, never stored.
type Ticker struct {
	// Code is the canonical ticker code (e.g., "AAPL", "TCS")
	Code string
	// Raw is the original ticker string
	Raw string
}

// JurisdictionToSuffix maps jurisdictions to the market-data vendor's
// symbol suffix. Vendor symbols are CODE.EXCHANGE (e.g., "AAPL.US",
// "TCS.NSE").
var JurisdictionToSuffix = map[models.Jurisdiction]string{
	models.JurisdictionUS:    ".US",
	models.JurisdictionIndia: ".NSE",
}

// ParseTicker parses a ticker string into canonical form.
// Normalizes to uppercase and trims whitespace:
//   - "aapl"  -> Code="AAPL"
//   - " TCS " -> Code="TCS"
func ParseTicker(ticker string) Ticker {
	trimmed := strings.TrimSpace(ticker)
	return Ticker{
		Code: strings.ToUpper(trimmed),
		Raw:  ticker,
	}
}

// String returns the canonical ticker code.
func (t Ticker) String() string {
	return t.Code
}

// VendorSymbol returns the market-data vendor symbol for the ticker in
// the given jurisdiction. Example: ("TCS", INDIA) -> "TCS.NSE".
// Unknown jurisdictions default to the US suffix.
func (t Ticker) VendorSymbol(jurisdiction models.Jurisdiction) string {
	if t.Code == "" {
		return ""
	}
	suffix, ok := JurisdictionToSuffix[jurisdiction]
	if !ok {
		suffix = ".US"
	}
	return t.Code + suffix
}

// Namespace returns the vector-index namespace for the ticker.
func (t Ticker) Namespace() string {
	return t.Code
}

// PadCIK left-pads a SEC CIK to the 10 digits the submissions API
// requires. Example: "789019" -> "0000789019".
func PadCIK(cik string) string {
	cik = strings.TrimSpace(cik)
	for len(cik) < 10 {
		cik = "0" + cik
	}
	return cik
}
