package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string           `toml:"environment"` // "development" or "production"
	Storage     StorageConfig    `toml:"storage"`
	Registry    RegistryConfig   `toml:"registry"`
	MarketData  MarketDataConfig `toml:"marketdata"`
	SEC         SECConfig        `toml:"sec"`
	BSE         BSEConfig        `toml:"bse"`
	Embedding   EmbeddingConfig  `toml:"embedding"`
	Chunking    ChunkingConfig   `toml:"chunking"`
	Retrieval   RetrievalConfig  `toml:"retrieval"`
	Freshness   FreshnessConfig  `toml:"freshness"`
	Logging     LoggingConfig    `toml:"logging"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"` // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"`         // Delete database on startup for clean test runs
}

// RegistryConfig configures the company registry.
type RegistryConfig struct {
	Dir string `toml:"dir"` // Directory containing company registry files (TOML)
}

// MarketDataConfig configures the structured financial data vendor.
type MarketDataConfig struct {
	BaseURL        string `toml:"base_url" validate:"required,url"`
	APIKey         string `toml:"api_key"`
	RateLimit      int    `toml:"rate_limit"`      // Requests per second
	RequestTimeout string `toml:"request_timeout"` // e.g. "30s"
	PriceRange     string `toml:"price_range"`     // History window for price bars, e.g. "3mo"
}

// SECConfig configures the US regulatory filing source (EDGAR).
type SECConfig struct {
	SubmissionsURL  string `toml:"submissions_url" validate:"required,url"`
	ArchivesURL     string `toml:"archives_url" validate:"required,url"`
	UserAgent       string `toml:"user_agent" validate:"required"` // EDGAR requires an identity header
	MinFilingChars  int    `toml:"min_filing_chars"`               // Sanity floor for a full 10-K narrative
	MinSectionChars int    `toml:"min_section_chars"`              // Sanity floor for one extracted item section
	MaxOutputChars  int    `toml:"max_output_chars"`               // Cap on condensed narrative output
}

// BSEConfig configures the Indian regulatory filing source.
type BSEConfig struct {
	AnnouncementsURL string `toml:"announcements_url" validate:"required,url"`
	PDFBaseURL       string `toml:"pdf_base_url" validate:"required,url"`
	ArchivePDFURL    string `toml:"archive_pdf_url" validate:"required,url"`
	WindowDays       int    `toml:"window_days"`  // Query window chunk size (provider limit)
	HistoryDays      int    `toml:"history_days"` // Total lookback
}

// EmbeddingConfig configures the Gemini embedding model.
type EmbeddingConfig struct {
	APIKey    string `toml:"api_key"`
	Model     string `toml:"model" validate:"required"`
	Dimension int    `toml:"dimension" validate:"required,gt=0"`
	BatchSize int    `toml:"batch_size"` // Max texts per embed request
}

// ChunkingConfig configures document chunking.
type ChunkingConfig struct {
	Size    int `toml:"size" validate:"required,gt=0"` // Chunk window size in characters
	Overlap int `toml:"overlap" validate:"gte=0"`      // Overlap between consecutive chunks
}

// RetrievalConfig configures similarity search.
type RetrievalConfig struct {
	TopK int `toml:"top_k" validate:"required,gt=0"`
}

// FreshnessConfig holds per-component staleness thresholds as duration strings.
type FreshnessConfig struct {
	Price     string `toml:"price"`     // e.g. "24h"
	Statement string `toml:"statement"` // e.g. "720h" (30 days)
	Info      string `toml:"info"`      // e.g. "168h" (7 days)
	Narrative string `toml:"narrative"` // e.g. "2160h" (90 days)
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// NewDefaultConfig returns the default configuration.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/lucrum.db",
				ResetOnStartup: false,
			},
		},
		Registry: RegistryConfig{
			Dir: "./registry",
		},
		MarketData: MarketDataConfig{
			BaseURL:        "https://eodhd.com/api",
			RateLimit:      10,
			RequestTimeout: "30s",
			PriceRange:     "3mo",
		},
		SEC: SECConfig{
			SubmissionsURL:  "https://data.sec.gov/submissions",
			ArchivesURL:     "https://www.sec.gov/Archives/edgar/data",
			UserAgent:       "Lucrum/1.0 research@ternarybob.com",
			MinFilingChars:  100_000,
			MinSectionChars: 5_000,
			MaxOutputChars:  80_000,
		},
		BSE: BSEConfig{
			AnnouncementsURL: "https://api.bseindia.com/BseIndiaAPI/api/AnnSubCategoryGetData/w",
			PDFBaseURL:       "https://www.bseindia.com/xml-data/corpfiling/AttachLive/",
			ArchivePDFURL:    "https://www.bseindia.com/xml-data/corpfiling/AttachHis/",
			WindowDays:       90,
			HistoryDays:      365,
		},
		Embedding: EmbeddingConfig{
			Model:     "gemini-embedding-001",
			Dimension: 768,
			BatchSize: 64,
		},
		Chunking: ChunkingConfig{
			Size:    1200,
			Overlap: 150,
		},
		Retrieval: RetrievalConfig{
			TopK: 5,
		},
		Freshness: FreshnessConfig{
			Price:     "24h",
			Statement: "720h",
			Info:      "168h",
			Narrative: "2160h",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier
// files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("LUCRUM_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if key := os.Getenv("LUCRUM_MARKETDATA_API_KEY"); key != "" {
		config.MarketData.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Embedding.APIKey = key
	}
	if key := os.Getenv("LUCRUM_EMBEDDING_API_KEY"); key != "" {
		config.Embedding.APIKey = key
	}
	if path := os.Getenv("LUCRUM_BADGER_PATH"); path != "" {
		config.Storage.Badger.Path = path
	}
	if level := os.Getenv("LUCRUM_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if topK := os.Getenv("LUCRUM_TOP_K"); topK != "" {
		if k, err := strconv.Atoi(topK); err == nil && k > 0 {
			config.Retrieval.TopK = k
		}
	}
}

// Validate checks the configuration for structural errors.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Duration fields are strings in TOML; verify they parse.
	for name, value := range map[string]string{
		"freshness.price":            c.Freshness.Price,
		"freshness.statement":        c.Freshness.Statement,
		"freshness.info":             c.Freshness.Info,
		"freshness.narrative":        c.Freshness.Narrative,
		"marketdata.request_timeout": c.MarketData.RequestTimeout,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", name, err)
		}
	}

	if c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking overlap (%d) must be smaller than chunk size (%d)",
			c.Chunking.Overlap, c.Chunking.Size)
	}

	return nil
}

// FreshnessThresholds converts the configured duration strings into
// thresholds, falling back to defaults for missing or invalid values.
func (c *Config) FreshnessThresholds() Thresholds {
	t := DefaultThresholds()
	if d, err := time.ParseDuration(c.Freshness.Price); err == nil && d > 0 {
		t.Price = d
	}
	if d, err := time.ParseDuration(c.Freshness.Statement); err == nil && d > 0 {
		t.Statement = d
	}
	if d, err := time.ParseDuration(c.Freshness.Info); err == nil && d > 0 {
		t.Info = d
	}
	if d, err := time.ParseDuration(c.Freshness.Narrative); err == nil && d > 0 {
		t.Narrative = d
	}
	return t
}

// MarketDataTimeout returns the parsed request timeout.
func (c *Config) MarketDataTimeout() time.Duration {
	if d, err := time.ParseDuration(c.MarketData.RequestTimeout); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}
