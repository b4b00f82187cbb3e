package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lucrum/internal/common"
	"github.com/ternarybob/lucrum/internal/httpclient"
	"github.com/ternarybob/lucrum/internal/marketdata"
	"github.com/ternarybob/lucrum/internal/models"
	"github.com/ternarybob/lucrum/internal/services/chunker"
	"github.com/ternarybob/lucrum/internal/services/embeddings"
	"github.com/ternarybob/lucrum/internal/services/indexing"
	"github.com/ternarybob/lucrum/internal/services/ingestion"
	"github.com/ternarybob/lucrum/internal/services/orchestrator"
	"github.com/ternarybob/lucrum/internal/services/registry"
	"github.com/ternarybob/lucrum/internal/services/vectorstore"
	"github.com/ternarybob/lucrum/internal/storage/badger"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	ticker       = flag.String("ticker", "", "Company ticker to orchestrate (required)")
	query        = flag.String("query", "", "Retrieval query; omit to refresh without retrieval")
	force        = flag.Bool("force", false, "Refresh all components regardless of freshness")
	jurisdiction = flag.String("jurisdiction", "", "Jurisdiction hint for unregistered tickers (US, INDIA)")
	cik          = flag.String("cik", "", "SEC CIK hint for unregistered US tickers")
	scripCode    = flag.String("scrip", "", "BSE scrip code hint for unregistered Indian tickers")
	topK         = flag.Int("top-k", 0, "Retrieval depth (overrides config)")
	asJSON       = flag.Bool("json", false, "Print the orchestration result as JSON")
	showVersion  = flag.Bool("version", false, "Print version information")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Lucrum version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	if *ticker == "" {
		fmt.Fprintln(os.Stderr, "Usage: lucrum -ticker TICKER [-query \"...\"] [flags]")
		flag.PrintDefaults()
		os.Exit(2)
	}

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("lucrum.toml"); err == nil {
			configFiles = append(configFiles, "lucrum.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger := common.InitLogger(config)
	logger.Info().
		Str("version", common.GetVersion()).
		Str("environment", config.Environment).
		Msg("Lucrum starting")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := run(ctx, config, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Orchestration failed")
		os.Exit(1)
	}

	printResult(result, *asJSON)
}

func run(ctx context.Context, config *common.Config, logger arbor.ILogger) (*models.OrchestrationResult, error) {
	storage, err := badger.NewManager(logger, &config.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	defer storage.Close()

	reg, err := registry.NewService(&config.Registry, logger)
	if err != nil {
		return nil, err
	}

	marketClient := marketdata.NewClient(config.MarketData.APIKey,
		marketdata.WithBaseURL(config.MarketData.BaseURL),
		marketdata.WithHTTPClient(httpclient.New(
			httpclient.WithTimeout(config.MarketDataTimeout()),
			httpclient.WithRateLimit(config.MarketData.RateLimit),
			httpclient.WithLogger(logger),
		)),
		marketdata.WithLogger(logger),
	)

	ingestionService := ingestion.NewService(
		ingestion.NewStructuredProvider(marketClient, &config.MarketData, logger),
		logger,
	)
	ingestionService.RegisterStrategy(ingestion.NewSECStrategy(&config.SEC, logger))
	ingestionService.RegisterStrategy(ingestion.NewBSEStrategy(&config.BSE, storage.ArtifactStorage(), logger))

	coordinator := embeddings.NewCoordinator(&config.Embedding, logger)
	embedder := embeddings.NewEmbeddingService(coordinator, &config.Embedding, logger)

	vectors := vectorstore.NewService(storage.DB(), logger)

	indexingService := indexing.NewService(
		storage.DocumentStorage(),
		chunker.NewService(&config.Chunking),
		embedder,
		vectors,
		logger,
	)

	orchestratorService := orchestrator.NewService(
		reg,
		ingestionService,
		indexingService,
		storage.FreshnessStorage(),
		embedder,
		vectors,
		config.FreshnessThresholds(),
		config.Retrieval.TopK,
		logger,
	)

	started := time.Now()
	result, err := orchestratorService.Orchestrate(ctx, *ticker, *query, &orchestrator.Options{
		Force: *force,
		TopK:  *topK,
		Hint:  buildHint(),
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("run_id", result.RunID).
		Str("elapsed", time.Since(started).Round(time.Millisecond).String()).
		Msg("Run finished")

	return result, nil
}

// buildHint assembles a registry hint from the identity flags, if any
// were given.
func buildHint() *registry.Hint {
	if *jurisdiction == "" {
		return nil
	}
	parsed, err := models.ParseJurisdiction(*jurisdiction)
	if err != nil {
		return nil
	}
	return &registry.Hint{
		Jurisdiction: parsed,
		CIK:          *cik,
		ScripCode:    *scripCode,
	}
}

func printResult(result *models.OrchestrationResult, asJSON bool) {
	if asJSON {
		encoded, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to encode result: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(encoded))
		return
	}

	fmt.Printf("Run %s for %s\n", result.RunID, result.Ticker)
	for _, outcome := range result.Outcomes {
		switch {
		case outcome.Error != "":
			fmt.Printf("  %-14s failed: %s\n", outcome.Component, outcome.Error)
		case outcome.Refreshed:
			fmt.Printf("  %-14s refreshed\n", outcome.Component)
		default:
			fmt.Printf("  %-14s fresh\n", outcome.Component)
		}
	}

	if result.RetrievalContext != "" {
		fmt.Println()
		fmt.Println(result.RetrievalContext)
	}
}
