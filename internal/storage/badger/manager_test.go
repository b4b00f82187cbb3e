package badger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lucrum/internal/common"
	"github.com/ternarybob/lucrum/internal/interfaces"
	"github.com/ternarybob/lucrum/internal/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	manager, err := NewManager(arbor.NewLogger(), &common.BadgerConfig{
		Path: filepath.Join(t.TempDir(), "lucrum.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })
	return manager
}

func doc(id string, component models.Component) *models.Document {
	return &models.Document{
		ID:        id,
		Ticker:    "MSFT",
		Component: component,
		Text:      "text for " + id,
	}
}

func TestDocumentReplaceComponent(t *testing.T) {
	manager := newTestManager(t)
	storage := manager.DocumentStorage()
	ctx := context.Background()

	require.NoError(t, storage.ReplaceComponent(ctx, "msft", models.ComponentPrice, []*models.Document{
		doc("MSFT_price_0", models.ComponentPrice),
		doc("MSFT_price_1", models.ComponentPrice),
		doc("MSFT_price_2", models.ComponentPrice),
	}))

	// A later cycle with fewer rows supersedes the earlier set.
	require.NoError(t, storage.ReplaceComponent(ctx, "MSFT", models.ComponentPrice, []*models.Document{
		doc("MSFT_price_0", models.ComponentPrice),
	}))

	docs, err := storage.GetByComponent(ctx, "MSFT", models.ComponentPrice)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "MSFT_price_0", docs[0].ID)
}

func TestDocumentComponentsAreIndependent(t *testing.T) {
	manager := newTestManager(t)
	storage := manager.DocumentStorage()
	ctx := context.Background()

	require.NoError(t, storage.ReplaceComponent(ctx, "MSFT", models.ComponentPrice, []*models.Document{
		doc("MSFT_price_0", models.ComponentPrice),
	}))
	require.NoError(t, storage.ReplaceComponent(ctx, "MSFT", models.ComponentNarrative, []*models.Document{
		doc("MSFT_10-K", models.ComponentNarrative),
	}))

	// Replacing price must not touch the narrative set.
	require.NoError(t, storage.ReplaceComponent(ctx, "MSFT", models.ComponentPrice, nil))

	docs, err := storage.GetByComponent(ctx, "MSFT", models.ComponentNarrative)
	require.NoError(t, err)
	assert.Len(t, docs, 1)

	count, err := storage.CountByTicker(ctx, "MSFT")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestDocumentGetByComponentOrdersByID(t *testing.T) {
	manager := newTestManager(t)
	storage := manager.DocumentStorage()
	ctx := context.Background()

	require.NoError(t, storage.ReplaceComponent(ctx, "MSFT", models.ComponentIncomeStmt, []*models.Document{
		doc("MSFT_income_stmt_1", models.ComponentIncomeStmt),
		doc("MSFT_income_stmt_0", models.ComponentIncomeStmt),
	}))

	docs, err := storage.GetByComponent(ctx, "MSFT", models.ComponentIncomeStmt)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "MSFT_income_stmt_0", docs[0].ID)
	assert.Equal(t, "MSFT_income_stmt_1", docs[1].ID)
}

func TestFreshnessGetUnknownPair(t *testing.T) {
	manager := newTestManager(t)

	_, err := manager.FreshnessStorage().Get(context.Background(), "MSFT", models.ComponentPrice)
	assert.True(t, errors.Is(err, interfaces.ErrNotFound))
}

func TestFreshnessRecordAndGet(t *testing.T) {
	manager := newTestManager(t)
	storage := manager.FreshnessStorage()
	ctx := context.Background()

	fetchedAt := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, storage.Record(ctx, &models.FreshnessRecord{
		Ticker:      "msft",
		Component:   models.ComponentPrice,
		FetchedAt:   fetchedAt,
		DataVersion: models.DataVersionStructured,
		Source:      "eodhd",
	}))

	record, err := storage.Get(ctx, "MSFT", models.ComponentPrice)
	require.NoError(t, err)
	assert.Equal(t, "MSFT", record.Ticker)
	assert.Equal(t, "MSFT/price", record.Key)
	assert.True(t, record.FetchedAt.Equal(fetchedAt))
}

func TestFreshnessRejectsRegression(t *testing.T) {
	manager := newTestManager(t)
	storage := manager.FreshnessStorage()
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, storage.Record(ctx, &models.FreshnessRecord{
		Ticker:    "MSFT",
		Component: models.ComponentNarrative,
		FetchedAt: now,
	}))

	err := storage.Record(ctx, &models.FreshnessRecord{
		Ticker:    "MSFT",
		Component: models.ComponentNarrative,
		FetchedAt: now.Add(-time.Hour),
	})
	assert.Error(t, err)

	// Equal timestamps are allowed; the overwrite carries new metadata.
	assert.NoError(t, storage.Record(ctx, &models.FreshnessRecord{
		Ticker:    "MSFT",
		Component: models.ComponentNarrative,
		FetchedAt: now,
		Source:    "sec_edgar",
	}))
}

func TestFreshnessListByTicker(t *testing.T) {
	manager := newTestManager(t)
	storage := manager.FreshnessStorage()
	ctx := context.Background()

	now := time.Now().UTC()
	for _, component := range []models.Component{models.ComponentPrice, models.ComponentInfo} {
		require.NoError(t, storage.Record(ctx, &models.FreshnessRecord{
			Ticker:    "MSFT",
			Component: component,
			FetchedAt: now,
		}))
	}
	require.NoError(t, storage.Record(ctx, &models.FreshnessRecord{
		Ticker:    "TCS",
		Component: models.ComponentPrice,
		FetchedAt: now,
	}))

	records, err := storage.ListByTicker(ctx, "MSFT")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestArtifactPutExistsGet(t *testing.T) {
	manager := newTestManager(t)
	storage := manager.ArtifactStorage()
	ctx := context.Background()

	exists, err := storage.Exists(ctx, "TCS", "2026-01-15_Results.pdf")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, storage.Put(ctx, &interfaces.Artifact{
		Ticker:   "tcs",
		Filename: "2026-01-15_Results.pdf",
		Content:  []byte("%PDF-1.7 ..."),
		Source:   "bse_india",
	}))

	exists, err = storage.Exists(ctx, "TCS", "2026-01-15_Results.pdf")
	require.NoError(t, err)
	assert.True(t, exists)

	artifact, err := storage.Get(ctx, "TCS", "2026-01-15_Results.pdf")
	require.NoError(t, err)
	assert.Equal(t, "TCS", artifact.Ticker)
	assert.Equal(t, []byte("%PDF-1.7 ..."), artifact.Content)
	assert.False(t, artifact.FetchedAt.IsZero())

	names, err := storage.ListByTicker(ctx, "TCS")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-01-15_Results.pdf"}, names)
}
