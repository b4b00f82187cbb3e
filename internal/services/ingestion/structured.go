package ingestion

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/lucrum/internal/common"
	"github.com/ternarybob/lucrum/internal/interfaces"
	"github.com/ternarybob/lucrum/internal/marketdata"
	"github.com/ternarybob/lucrum/internal/models"
)

const structuredSource = "eodhd"

// fundamentalsTTL bounds repeat fundamentals fetches within one refresh
// cycle; info and the three statements share a single vendor response.
const fundamentalsTTL = 15 * time.Minute

// infoKeys is the fixed set of company profile fields kept for the
// info component, in output order.
var infoKeys = []string{
	"longName", "sector", "industry", "marketCap",
	"forwardPE", "dividendYield", "profitMargins", "totalRevenue",
}

type cachedFundamentals struct {
	response  *marketdata.FundamentalsResponse
	fetchedAt time.Time
}

// StructuredProvider fetches tabular components from the market data
// vendor. One instance serves every jurisdiction; the vendor symbol is
// derived from the entity's canonical ticker.
type StructuredProvider struct {
	client     *marketdata.Client
	priceRange string
	logger     arbor.ILogger

	mu           sync.Mutex
	fundamentals map[string]cachedFundamentals
}

// NewStructuredProvider creates a structured data provider.
func NewStructuredProvider(client *marketdata.Client, config *common.MarketDataConfig, logger arbor.ILogger) *StructuredProvider {
	return &StructuredProvider{
		client:       client,
		priceRange:   config.PriceRange,
		logger:       logger,
		fundamentals: make(map[string]cachedFundamentals),
	}
}

// FetchTable retrieves the raw table for one structured component.
func (p *StructuredProvider) FetchTable(ctx context.Context, entity *models.Entity, component models.Component) (*interfaces.RawTable, error) {
	symbol := common.ParseTicker(entity.Ticker).VendorSymbol(entity.Jurisdiction)

	switch component {
	case models.ComponentPrice:
		return p.fetchPrice(ctx, entity, symbol)
	case models.ComponentIncomeStmt, models.ComponentBalanceSheet, models.ComponentCashFlow:
		return p.fetchStatement(ctx, symbol, component)
	case models.ComponentInfo:
		return p.fetchInfo(ctx, symbol)
	default:
		return nil, fmt.Errorf("component %s is not structured", component)
	}
}

// fetchPrice retrieves daily price bars over the configured history
// window. An empty response is terminal for price: an entity with no
// price history cannot be a real listed company.
func (p *StructuredProvider) fetchPrice(ctx context.Context, entity *models.Entity, symbol string) (*interfaces.RawTable, error) {
	to := time.Now().UTC()
	from := priceRangeStart(to, p.priceRange)

	bars, err := p.client.GetEOD(ctx, symbol, marketdata.WithDateRange(from, to))
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, &models.NoDataError{Ticker: entity.Ticker, Component: models.ComponentPrice}
	}

	rows := make([]map[string]interface{}, 0, len(bars))
	for _, bar := range bars {
		rows = append(rows, map[string]interface{}{
			"date":           bar.DateStr,
			"open":           bar.Open,
			"high":           bar.High,
			"low":            bar.Low,
			"close":          bar.Close,
			"adjusted_close": bar.AdjustedClose,
			"volume":         bar.Volume,
		})
	}

	return &interfaces.RawTable{
		Component: models.ComponentPrice,
		Columns:   []string{"date", "open", "high", "low", "close", "adjusted_close", "volume"},
		Rows:      rows,
		Source:    structuredSource,
		FetchedAt: to,
	}, nil
}

// fetchStatement retrieves one yearly financial statement. Statements
// may legitimately be empty (young listings, sparse foreign coverage);
// an empty table is returned, not an error.
func (p *StructuredProvider) fetchStatement(ctx context.Context, symbol string, component models.Component) (*interfaces.RawTable, error) {
	fundamentals, err := p.getFundamentals(ctx, symbol)
	if err != nil {
		return nil, err
	}

	statement := statementFor(fundamentals, component)

	table := &interfaces.RawTable{
		Component: component,
		Columns:   []string{"date"},
		Source:    structuredSource,
		FetchedAt: time.Now().UTC(),
	}
	if statement == nil || len(statement.Yearly) == 0 {
		return table, nil
	}

	dates := make([]string, 0, len(statement.Yearly))
	for date := range statement.Yearly {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	for _, date := range dates {
		row := make(map[string]interface{}, len(statement.Yearly[date])+1)
		for k, v := range statement.Yearly[date] {
			row[k] = v
		}
		row["date"] = date
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// fetchInfo retrieves the company profile, filtered to the fixed key
// set. Missing fields are omitted rather than rendered as empty.
func (p *StructuredProvider) fetchInfo(ctx context.Context, symbol string) (*interfaces.RawTable, error) {
	fundamentals, err := p.getFundamentals(ctx, symbol)
	if err != nil {
		return nil, err
	}

	row := map[string]interface{}{}
	if g := fundamentals.General; g != nil {
		row["longName"] = g.Name
		row["sector"] = g.Sector
		row["industry"] = g.Industry
	}
	if h := fundamentals.Highlights; h != nil {
		row["marketCap"] = h.MarketCapitalization
		row["dividendYield"] = h.DividendYield
		row["profitMargins"] = h.ProfitMargin
		row["totalRevenue"] = h.RevenueTTM
	}
	if v := fundamentals.Valuation; v != nil {
		row["forwardPE"] = v.ForwardPE
	}

	return &interfaces.RawTable{
		Component: models.ComponentInfo,
		Columns:   infoKeys,
		Rows:      []map[string]interface{}{row},
		Source:    structuredSource,
		FetchedAt: time.Now().UTC(),
	}, nil
}

func (p *StructuredProvider) getFundamentals(ctx context.Context, symbol string) (*marketdata.FundamentalsResponse, error) {
	p.mu.Lock()
	cached, ok := p.fundamentals[symbol]
	p.mu.Unlock()
	if ok && time.Since(cached.fetchedAt) < fundamentalsTTL {
		return cached.response, nil
	}

	response, err := p.client.GetFundamentals(ctx, symbol)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.fundamentals[symbol] = cachedFundamentals{response: response, fetchedAt: time.Now()}
	p.mu.Unlock()

	return response, nil
}

func statementFor(f *marketdata.FundamentalsResponse, component models.Component) *marketdata.FinancialStatement {
	if f == nil || f.Financials == nil {
		return nil
	}
	switch component {
	case models.ComponentIncomeStmt:
		return f.Financials.IncomeStatement
	case models.ComponentBalanceSheet:
		return f.Financials.BalanceSheet
	case models.ComponentCashFlow:
		return f.Financials.CashFlow
	default:
		return nil
	}
}

// priceRangeStart resolves a history window spec ("3mo", "90d", "1y")
// to its start date. Unrecognized specs default to three months.
func priceRangeStart(end time.Time, spec string) time.Time {
	spec = strings.ToLower(strings.TrimSpace(spec))

	var n int
	switch {
	case strings.HasSuffix(spec, "mo"):
		if _, err := fmt.Sscanf(spec, "%dmo", &n); err == nil && n > 0 {
			return end.AddDate(0, -n, 0)
		}
	case strings.HasSuffix(spec, "y"):
		if _, err := fmt.Sscanf(spec, "%dy", &n); err == nil && n > 0 {
			return end.AddDate(-n, 0, 0)
		}
	case strings.HasSuffix(spec, "d"):
		if _, err := fmt.Sscanf(spec, "%dd", &n); err == nil && n > 0 {
			return end.AddDate(0, 0, -n)
		}
	}

	return end.AddDate(0, -3, 0)
}
