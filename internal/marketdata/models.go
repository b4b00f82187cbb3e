package marketdata

import (
	"time"
)

// EODBar represents a single day's end-of-day price data.
type EODBar struct {
	Date          time.Time `json:"-"`
	DateStr       string    `json:"date"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	AdjustedClose float64   `json:"adjusted_close"`
	Volume        int64     `json:"volume"`
}

// EODResponse is a slice of EODBar.
type EODResponse []EODBar

// FundamentalsResponse represents the fundamentals data for a symbol.
type FundamentalsResponse struct {
	General    *GeneralInfo `json:"General"`
	Highlights *Highlights  `json:"Highlights"`
	Valuation  *Valuation   `json:"Valuation"`
	Financials *Financials  `json:"Financials"`
}

// GeneralInfo contains general company information.
type GeneralInfo struct {
	Code         string `json:"Code"`
	Name         string `json:"Name"`
	Exchange     string `json:"Exchange"`
	CurrencyCode string `json:"CurrencyCode"`
	CountryName  string `json:"CountryName"`
	CIK          string `json:"CIK"`
	Sector       string `json:"Sector"`
	Industry     string `json:"Industry"`
	Description  string `json:"Description"`
}

// Highlights contains key financial highlights.
type Highlights struct {
	MarketCapitalization float64 `json:"MarketCapitalization"`
	DividendYield        float64 `json:"DividendYield"`
	ProfitMargin         float64 `json:"ProfitMargin"`
	RevenueTTM           float64 `json:"RevenueTTM"`
}

// Valuation contains valuation metrics.
type Valuation struct {
	TrailingPE float64 `json:"TrailingPE"`
	ForwardPE  float64 `json:"ForwardPE"`
}

// Financials contains financial statements.
type Financials struct {
	BalanceSheet    *FinancialStatement `json:"Balance_Sheet"`
	CashFlow        *FinancialStatement `json:"Cash_Flow"`
	IncomeStatement *FinancialStatement `json:"Income_Statement"`
}

// FinancialStatement represents a financial statement with quarterly
// and yearly data, keyed by fiscal date.
type FinancialStatement struct {
	Currency  string                            `json:"currency"`
	Quarterly map[string]map[string]interface{} `json:"quarterly"`
	Yearly    map[string]map[string]interface{} `json:"yearly"`
}
