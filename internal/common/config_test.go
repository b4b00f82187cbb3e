package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	if err := config.Validate(); err != nil {
		t.Fatalf("default config does not validate: %v", err)
	}
	if config.Retrieval.TopK != 5 {
		t.Errorf("TopK = %d, want 5", config.Retrieval.TopK)
	}
	if config.Chunking.Size != 1200 || config.Chunking.Overlap != 150 {
		t.Errorf("chunking = %d/%d, want 1200/150", config.Chunking.Size, config.Chunking.Overlap)
	}
	if config.SEC.MinFilingChars != 100_000 {
		t.Errorf("MinFilingChars = %d, want 100000", config.SEC.MinFilingChars)
	}
}

func TestLoadFromFilesOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lucrum.toml")
	content := `
[retrieval]
top_k = 9

[freshness]
price = "1h"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadFromFiles(path)
	if err != nil {
		t.Fatalf("LoadFromFiles: %v", err)
	}

	if config.Retrieval.TopK != 9 {
		t.Errorf("TopK = %d, want 9", config.Retrieval.TopK)
	}
	if got := config.FreshnessThresholds().Price; got != time.Hour {
		t.Errorf("price threshold = %v, want 1h", got)
	}
	// Untouched sections keep defaults.
	if config.Chunking.Size != 1200 {
		t.Errorf("Size = %d, want default 1200", config.Chunking.Size)
	}
}

func TestValidateRejectsBadDurations(t *testing.T) {
	config := NewDefaultConfig()
	config.Freshness.Price = "one day"

	if err := config.Validate(); err == nil {
		t.Error("expected validation error for unparseable duration")
	}
}

func TestValidateRejectsOverlapNotSmallerThanSize(t *testing.T) {
	config := NewDefaultConfig()
	config.Chunking.Size = 100
	config.Chunking.Overlap = 100

	if err := config.Validate(); err == nil {
		t.Error("expected validation error for overlap >= size")
	}
}

func TestFreshnessThresholdsFallBackOnInvalid(t *testing.T) {
	config := NewDefaultConfig()
	config.Freshness.Narrative = ""

	thresholds := config.FreshnessThresholds()
	if thresholds.Narrative != DefaultNarrativeMaxAge {
		t.Errorf("narrative = %v, want default %v", thresholds.Narrative, DefaultNarrativeMaxAge)
	}
}
