package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/lucrum/internal/interfaces"
	"github.com/ternarybob/lucrum/internal/models"
)

func testEntity() *models.Entity {
	return &models.Entity{
		Ticker:       "MSFT",
		Name:         "Microsoft Corporation",
		Jurisdiction: models.JurisdictionUS,
		CIK:          "789019",
	}
}

func TestNormalizeTable(t *testing.T) {
	fetched := time.Date(2026, 3, 10, 18, 30, 0, 0, time.UTC)
	table := &interfaces.RawTable{
		Component: models.ComponentPrice,
		Columns:   []string{"date", "close", "volume"},
		Rows: []map[string]interface{}{
			{"date": "2026-03-09", "close": 420.5, "volume": int64(18000000)},
			{"date": "2026-03-10", "close": 425.0, "volume": int64(21000000)},
		},
		Source:    "eodhd",
		FetchedAt: fetched,
	}

	docs := NormalizeTable(testEntity(), table)
	require.Len(t, docs, 2)

	assert.Equal(t, "MSFT_price_0", docs[0].ID)
	assert.Equal(t, "MSFT_price_1", docs[1].ID)
	assert.Equal(t, "MSFT", docs[0].Ticker)
	assert.Equal(t, models.ComponentPrice, docs[0].Component)

	assert.Contains(t, docs[0].Text, "Financial Report for MSFT (price)")
	assert.Contains(t, docs[0].Text, "date: 2026-03-09")
	assert.Contains(t, docs[0].Text, "close: 420.5")
	assert.Contains(t, docs[0].Text, "volume: 18000000")

	assert.Equal(t, "structured", docs[0].Metadata["category"])
	assert.Equal(t, models.DataVersionStructured, docs[0].Metadata["data_version"])
	assert.Equal(t, 0, docs[0].Metadata["row"])

	// The row date and fetch time ride along so they survive into chunk
	// and vector metadata.
	assert.Equal(t, "2026-03-09", docs[0].Metadata["date"])
	assert.Equal(t, "2026-03-10", docs[1].Metadata["date"])
	assert.Equal(t, fetched.Format(time.RFC3339), docs[0].Metadata["fetched_at"])
}

func TestNormalizeTableDeterministicIDs(t *testing.T) {
	table := &interfaces.RawTable{
		Component: models.ComponentIncomeStmt,
		Columns:   []string{"date"},
		Rows: []map[string]interface{}{
			{"date": "2025-06-30", "totalRevenue": 245_122_000_000.0},
		},
		Source: "eodhd",
	}

	first := NormalizeTable(testEntity(), table)
	second := NormalizeTable(testEntity(), table)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, first[0].Text, second[0].Text)
}

func TestNormalizeTableEmpty(t *testing.T) {
	table := &interfaces.RawTable{
		Component: models.ComponentBalanceSheet,
		Columns:   []string{"date"},
		Source:    "eodhd",
	}
	assert.Empty(t, NormalizeTable(testEntity(), table))
	assert.Empty(t, NormalizeTable(testEntity(), nil))
}

func TestNormalizeNarrative(t *testing.T) {
	fetched := time.Date(2026, 3, 10, 18, 30, 0, 0, time.UTC)
	narrative := &interfaces.RawNarrative{
		Ticker:      "MSFT",
		Source:      "sec_edgar",
		FilingType:  "10-K",
		FilingDate:  "2025-07-30",
		Accession:   "000156459025012345",
		Text:        "Item 1. Business. We develop and license software.",
		DataVersion: models.DataVersionNarrative,
		FetchedAt:   fetched,
	}

	doc := NormalizeNarrative(testEntity(), narrative)
	require.NotNil(t, doc)

	assert.Equal(t, "MSFT_10-K", doc.ID)
	assert.Equal(t, models.ComponentNarrative, doc.Component)
	assert.Equal(t, "narrative", doc.Metadata["category"])
	assert.Equal(t, "2025-07-30", doc.Metadata["filing_date"])
	assert.Equal(t, "2025-07-30", doc.Metadata["date"])
	assert.Equal(t, fetched.Format(time.RFC3339), doc.Metadata["fetched_at"])
	assert.Equal(t, models.DataVersionNarrative, doc.Metadata["data_version"])
}

func TestNormalizeNarrativeEmptyText(t *testing.T) {
	narrative := &interfaces.RawNarrative{
		Ticker:     "TCS",
		Source:     "bse_india",
		FilingType: "announcements",
		Text:       "   ",
	}
	assert.Nil(t, NormalizeNarrative(testEntity(), narrative))
	assert.Nil(t, NormalizeNarrative(testEntity(), nil))
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name  string
		value interface{}
		want  string
	}{
		{"large float without exponent", 3_019_000_000_000.0, "3019000000000"},
		{"fractional float", 0.254, "0.254"},
		{"negative float", -12.5, "-12.5"},
		{"int64", int64(21000000), "21000000"},
		{"string trimmed", "  Technology ", "Technology"},
		{"nil", nil, ""},
		{"bool", true, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.value))
		})
	}
}

func TestValidText(t *testing.T) {
	assert.True(t, ValidText("Revenue grew 12%"))
	assert.True(t, ValidText("42"))
	assert.False(t, ValidText(""))
	assert.False(t, ValidText("   \n\t "))
	assert.False(t, ValidText("---- ... ----"))
}
