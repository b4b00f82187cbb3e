// Package embeddings provides the Gemini-backed embedding service and
// the process-wide coordinator that owns the shared model client.
package embeddings

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lucrum/internal/common"
	"google.golang.org/genai"
)

// Coordinator owns the process-wide genai client. The client is
// expensive to construct and safe for concurrent use, so it is
// initialized exactly once and never torn down mid-process; call sites
// receive the coordinator as an explicit handle rather than reaching
// for package-level state.
type Coordinator struct {
	config *common.EmbeddingConfig
	logger arbor.ILogger

	once    sync.Once
	client  *genai.Client
	initErr error
}

// NewCoordinator creates an embedding coordinator. The underlying
// client is created lazily on first use.
func NewCoordinator(config *common.EmbeddingConfig, logger arbor.ILogger) *Coordinator {
	return &Coordinator{
		config: config,
		logger: logger,
	}
}

// Client returns the shared genai client, initializing it on first
// call. Concurrent callers block until initialization completes; a
// failed initialization is returned to every caller.
func (c *Coordinator) Client(ctx context.Context) (*genai.Client, error) {
	c.once.Do(func() {
		if c.config.APIKey == "" {
			c.initErr = fmt.Errorf("embedding API key not configured")
			return
		}

		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  c.config.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			c.initErr = fmt.Errorf("failed to create embedding client: %w", err)
			return
		}

		c.logger.Info().
			Str("model", c.config.Model).
			Int("dimension", c.config.Dimension).
			Msg("Embedding client initialized")

		c.client = client
	})

	return c.client, c.initErr
}
