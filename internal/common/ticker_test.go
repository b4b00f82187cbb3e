package common

import (
	"testing"

	"github.com/ternarybob/lucrum/internal/models"
)

func TestParseTicker(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantCode string
	}{
		{"lowercase", "aapl", "AAPL"},
		{"already canonical", "MSFT", "MSFT"},
		{"surrounding whitespace", "  tcs  ", "TCS"},
		{"mixed case", "InFy", "INFY"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticker := ParseTicker(tt.input)
			if ticker.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", ticker.Code, tt.wantCode)
			}
			if ticker.Raw != tt.input {
				t.Errorf("Raw = %q, want %q", ticker.Raw, tt.input)
			}
		})
	}
}

func TestVendorSymbol(t *testing.T) {
	tests := []struct {
		name         string
		ticker       string
		jurisdiction models.Jurisdiction
		want         string
	}{
		{"US entity", "AAPL", models.JurisdictionUS, "AAPL.US"},
		{"Indian entity", "TCS", models.JurisdictionIndia, "TCS.NSE"},
		{"unknown jurisdiction defaults to US", "XYZ", models.Jurisdiction("MARS"), "XYZ.US"},
		{"empty ticker", "", models.JurisdictionUS, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseTicker(tt.ticker).VendorSymbol(tt.jurisdiction)
			if got != tt.want {
				t.Errorf("VendorSymbol = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestVendorSymbolIsDerivedNotStored(t *testing.T) {
	ticker := ParseTicker("tcs")
	if ticker.Namespace() != "TCS" {
		t.Errorf("Namespace = %q, want TCS", ticker.Namespace())
	}

	// The same canonical ticker yields different vendor symbols per
	// jurisdiction without mutating the ticker itself.
	us := ticker.VendorSymbol(models.JurisdictionUS)
	in := ticker.VendorSymbol(models.JurisdictionIndia)
	if us != "TCS.US" || in != "TCS.NSE" {
		t.Errorf("got %q and %q", us, in)
	}
	if ticker.Code != "TCS" {
		t.Errorf("Code changed to %q", ticker.Code)
	}
}

func TestPadCIK(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"789019", "0000789019"},
		{"320193", "0000320193"},
		{"0000789019", "0000789019"},
		{" 1 ", "0000000001"},
	}

	for _, tt := range tests {
		if got := PadCIK(tt.input); got != tt.want {
			t.Errorf("PadCIK(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
