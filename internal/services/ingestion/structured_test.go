package ingestion

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lucrum/internal/common"
	"github.com/ternarybob/lucrum/internal/httpclient"
	"github.com/ternarybob/lucrum/internal/marketdata"
	"github.com/ternarybob/lucrum/internal/models"
)

func usEntity() *models.Entity {
	return &models.Entity{
		Ticker:       "MSFT",
		Jurisdiction: models.JurisdictionUS,
		CIK:          "789019",
	}
}

func newTestProvider(t *testing.T, handler http.Handler) (*StructuredProvider, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := marketdata.NewClient("test-key",
		marketdata.WithBaseURL(server.URL),
		marketdata.WithHTTPClient(httpclient.New(
			httpclient.WithRateLimit(1000),
			httpclient.WithMaxAttempts(1),
		)),
	)

	config := &common.MarketDataConfig{PriceRange: "3mo"}
	return NewStructuredProvider(client, config, arbor.NewLogger()), server
}

func TestFetchTablePrice(t *testing.T) {
	provider, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/eod/MSFT.US", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("api_token"))
		assert.NotEmpty(t, r.URL.Query().Get("from"))
		w.Write([]byte(`[
			{"date":"2026-03-09","open":418.0,"high":422.1,"low":417.2,"close":420.5,"adjusted_close":420.5,"volume":18000000},
			{"date":"2026-03-10","open":421.0,"high":426.0,"low":420.0,"close":425.0,"adjusted_close":425.0,"volume":21000000}
		]`))
	}))

	table, err := provider.FetchTable(context.Background(), usEntity(), models.ComponentPrice)
	require.NoError(t, err)

	assert.Equal(t, models.ComponentPrice, table.Component)
	assert.Equal(t, "eodhd", table.Source)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "2026-03-09", table.Rows[0]["date"])
	assert.Equal(t, 420.5, table.Rows[0]["close"])
}

func TestFetchTablePriceEmpty(t *testing.T) {
	provider, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))

	_, err := provider.FetchTable(context.Background(), usEntity(), models.ComponentPrice)

	var noData *models.NoDataError
	require.True(t, errors.As(err, &noData))
	assert.Equal(t, models.ComponentPrice, noData.Component)
}

func TestFetchTablePriceIndianSymbol(t *testing.T) {
	var gotPath string
	provider, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`[{"date":"2026-03-10","close":4100.0,"volume":900000}]`))
	}))

	entity := &models.Entity{Ticker: "TCS", Jurisdiction: models.JurisdictionIndia, ScripCode: "532540"}
	_, err := provider.FetchTable(context.Background(), entity, models.ComponentPrice)
	require.NoError(t, err)
	assert.Equal(t, "/eod/TCS.NSE", gotPath)
}

const fundamentalsBody = `{
	"General": {"Code":"MSFT","Name":"Microsoft Corporation","Sector":"Technology","Industry":"Software"},
	"Highlights": {"MarketCapitalization":3019000000000,"DividendYield":0.0071,"ProfitMargin":0.355,"RevenueTTM":245122000000},
	"Valuation": {"TrailingPE":36.1,"ForwardPE":31.2},
	"Financials": {
		"Income_Statement": {
			"currency": "USD",
			"yearly": {
				"2025-06-30": {"totalRevenue":245122000000,"netIncome":88136000000},
				"2024-06-30": {"totalRevenue":211915000000,"netIncome":72361000000}
			}
		},
		"Balance_Sheet": {"currency":"USD","yearly":{}},
		"Cash_Flow": {"currency":"USD","yearly":{}}
	}
}`

func TestFetchTableStatement(t *testing.T) {
	requests := 0
	provider, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "/fundamentals/MSFT.US", r.URL.Path)
		w.Write([]byte(fundamentalsBody))
	}))

	table, err := provider.FetchTable(context.Background(), usEntity(), models.ComponentIncomeStmt)
	require.NoError(t, err)

	require.Len(t, table.Rows, 2)
	// Newest fiscal year first.
	assert.Equal(t, "2025-06-30", table.Rows[0]["date"])
	assert.Equal(t, "2024-06-30", table.Rows[1]["date"])
	assert.Equal(t, 245122000000.0, table.Rows[0]["totalRevenue"])

	// The vendor response is cached across components.
	_, err = provider.FetchTable(context.Background(), usEntity(), models.ComponentBalanceSheet)
	require.NoError(t, err)
	assert.Equal(t, 1, requests)
}

func TestFetchTableStatementEmptyIsNotAnError(t *testing.T) {
	provider, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(fundamentalsBody))
	}))

	table, err := provider.FetchTable(context.Background(), usEntity(), models.ComponentCashFlow)
	require.NoError(t, err)
	assert.Empty(t, table.Rows)
}

func TestFetchTableInfo(t *testing.T) {
	provider, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(fundamentalsBody))
	}))

	table, err := provider.FetchTable(context.Background(), usEntity(), models.ComponentInfo)
	require.NoError(t, err)

	require.Len(t, table.Rows, 1)
	row := table.Rows[0]
	assert.Equal(t, "Microsoft Corporation", row["longName"])
	assert.Equal(t, "Technology", row["sector"])
	assert.Equal(t, 3019000000000.0, row["marketCap"])
	assert.Equal(t, 31.2, row["forwardPE"])
	assert.Equal(t, 0.355, row["profitMargins"])

	// Only the fixed key set is kept.
	assert.NotContains(t, row, "Description")
	assert.NotContains(t, row, "TrailingPE")
}

func TestFetchTableRejectsNarrative(t *testing.T) {
	provider, _ := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	_, err := provider.FetchTable(context.Background(), usEntity(), models.ComponentNarrative)
	assert.Error(t, err)
}

func TestPriceRangeStart(t *testing.T) {
	end := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		spec string
		want time.Time
	}{
		{"3mo", end.AddDate(0, -3, 0)},
		{"1mo", end.AddDate(0, -1, 0)},
		{"90d", end.AddDate(0, 0, -90)},
		{"1y", end.AddDate(-1, 0, 0)},
		{"", end.AddDate(0, -3, 0)},
		{"garbage", end.AddDate(0, -3, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			assert.Equal(t, tt.want, priceRangeStart(end, tt.spec))
		})
	}
}
