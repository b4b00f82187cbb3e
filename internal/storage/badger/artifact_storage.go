package badger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lucrum/internal/interfaces"
	"github.com/timshannon/badgerhold/v4"
)

// ArtifactStorage implements the ArtifactStorage interface for Badger.
// Raw downloaded filings (PDFs, HTML) are kept for audit alongside the
// normalized documents derived from them.
type ArtifactStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewArtifactStorage creates a new ArtifactStorage instance
func NewArtifactStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ArtifactStorage {
	return &ArtifactStorage{
		db:     db,
		logger: logger,
	}
}

func artifactKey(ticker, filename string) string {
	return strings.ToUpper(ticker) + "/" + filename
}

// Put stores an artifact. Existing content under the same filename is
// overwritten; same-name dedup is the caller's concern (Exists).
func (s *ArtifactStorage) Put(ctx context.Context, artifact *interfaces.Artifact) error {
	if artifact.Ticker == "" || artifact.Filename == "" {
		return fmt.Errorf("artifact requires ticker and filename")
	}

	artifact.Ticker = strings.ToUpper(artifact.Ticker)
	artifact.Key = artifactKey(artifact.Ticker, artifact.Filename)
	if artifact.FetchedAt.IsZero() {
		artifact.FetchedAt = time.Now().UTC()
	}

	if err := s.db.Store().Upsert(artifact.Key, artifact); err != nil {
		return fmt.Errorf("failed to store artifact %s: %w", artifact.Key, err)
	}

	s.logger.Debug().
		Str("key", artifact.Key).
		Int("bytes", len(artifact.Content)).
		Msg("Stored artifact")

	return nil
}

// Exists reports whether an artifact with the given filename is
// already stored for the ticker.
func (s *ArtifactStorage) Exists(ctx context.Context, ticker, filename string) (bool, error) {
	var artifact interfaces.Artifact
	err := s.db.Store().Get(artifactKey(ticker, filename), &artifact)
	if err == badgerhold.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check artifact: %w", err)
	}
	return true, nil
}

// Get retrieves an artifact by ticker and filename.
func (s *ArtifactStorage) Get(ctx context.Context, ticker, filename string) (*interfaces.Artifact, error) {
	var artifact interfaces.Artifact
	err := s.db.Store().Get(artifactKey(ticker, filename), &artifact)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}
	return &artifact, nil
}

// ListByTicker returns the filenames of all artifacts stored for a ticker.
func (s *ArtifactStorage) ListByTicker(ctx context.Context, ticker string) ([]string, error) {
	var artifacts []interfaces.Artifact
	err := s.db.Store().Find(&artifacts,
		badgerhold.Where("Ticker").Eq(strings.ToUpper(ticker)))
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}

	names := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		names = append(names, a.Filename)
	}
	return names, nil
}
