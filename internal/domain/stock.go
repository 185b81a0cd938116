package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// NormalizeSymbol upper-cases and trims a ticker symbol.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Stock is a known ticker with its last persisted price.
type Stock struct {
	ID            int64           `json:"id"`
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	LastPrice     decimal.Decimal `json:"last_price"`
	ChangePercent float64         `json:"change_percent"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Quote is a point-in-time market quote. Stale is set when the price comes
// from the last stored value instead of the provider.
type Quote struct {
	Symbol           string          `json:"symbol"`
	Name             string          `json:"name,omitempty"`
	Price            decimal.Decimal `json:"price"`
	Change           decimal.Decimal `json:"change"`
	ChangePercent    float64         `json:"change_percent"`
	Volume           int64           `json:"volume"`
	LatestTradingDay string          `json:"latest_trading_day,omitempty"`
	PreviousClose    decimal.Decimal `json:"previous_close"`
	Timestamp        time.Time       `json:"timestamp"`
	Stale            bool            `json:"stale,omitempty"`
}

// SymbolMatch is a single symbol search result.
type SymbolMatch struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Region   string `json:"region"`
	Currency string `json:"currency"`
}

// Interval selects the bar size of a price history.
type Interval string

const (
	IntervalDaily   Interval = "daily"
	IntervalWeekly  Interval = "weekly"
	IntervalMonthly Interval = "monthly"
)

// Valid reports whether i is a supported interval.
func (i Interval) Valid() bool {
	switch i {
	case IntervalDaily, IntervalWeekly, IntervalMonthly:
		return true
	}
	return false
}

// PriceBar is one OHLCV bar.
type PriceBar struct {
	Date   string          `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

var companyNames = map[string]string{
	"AAPL":  "Apple",
	"MSFT":  "Microsoft",
	"GOOGL": "Google",
	"AMZN":  "Amazon",
	"META":  "Meta",
	"TSLA":  "Tesla",
	"NVDA":  "NVIDIA",
}

// CompanyName returns the well-known company name for symbol, or "".
func CompanyName(symbol string) string {
	return companyNames[NormalizeSymbol(symbol)]
}
