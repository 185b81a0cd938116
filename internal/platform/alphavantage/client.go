// Package alphavantage is the REST client for the Alpha Vantage market data
// API: global quotes, symbol search and daily/weekly/monthly price series.
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

// DefaultBaseURL is the production query endpoint.
const DefaultBaseURL = "https://www.alphavantage.co/query"

// Client implements domain.QuoteProvider against Alpha Vantage.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	now        func() time.Time
}

// NewClient creates a new Alpha Vantage client. An empty baseURL selects
// DefaultBaseURL; a zero timeout selects 10s.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(apiKey),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

var _ domain.QuoteProvider = (*Client)(nil)

type globalQuote struct {
	Symbol           string `json:"01. symbol"`
	Price            string `json:"05. price"`
	Volume           string `json:"06. volume"`
	LatestTradingDay string `json:"07. latest trading day"`
	PreviousClose    string `json:"08. previous close"`
	Change           string `json:"09. change"`
	ChangePercent    string `json:"10. change percent"`
}

// Quote returns the latest GLOBAL_QUOTE for symbol.
func (c *Client) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	params := url.Values{}
	params.Set("function", "GLOBAL_QUOTE")
	params.Set("symbol", symbol)

	body, err := c.doGet(ctx, params)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("alphavantage: quote %s: %w", symbol, err)
	}

	var resp struct {
		GlobalQuote globalQuote `json:"Global Quote"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Quote{}, fmt.Errorf("alphavantage: decode quote: %w: %v", domain.ErrProviderUnavailable, err)
	}

	q := resp.GlobalQuote
	if q.Price == "" {
		return domain.Quote{}, fmt.Errorf("alphavantage: quote %s: %w", symbol, domain.ErrNotFound)
	}

	price, err := decimal.NewFromString(q.Price)
	if err != nil || !price.IsPositive() {
		return domain.Quote{}, fmt.Errorf("alphavantage: quote %s: %w: bad price %q", symbol, domain.ErrProviderUnavailable, q.Price)
	}

	pct, _ := strconv.ParseFloat(strings.TrimSuffix(q.ChangePercent, "%"), 64)
	vol, _ := strconv.ParseInt(q.Volume, 10, 64)

	return domain.Quote{
		Symbol:           symbol,
		Price:            price,
		Change:           parseDecimal(q.Change),
		ChangePercent:    pct,
		Volume:           vol,
		LatestTradingDay: q.LatestTradingDay,
		PreviousClose:    parseDecimal(q.PreviousClose),
		Timestamp:        c.now().UTC(),
	}, nil
}

// Search returns SYMBOL_SEARCH matches for a keyword. No matches is not an
// error.
func (c *Client) Search(ctx context.Context, query string) ([]domain.SymbolMatch, error) {
	params := url.Values{}
	params.Set("function", "SYMBOL_SEARCH")
	params.Set("keywords", query)

	body, err := c.doGet(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("alphavantage: search %q: %w", query, err)
	}

	var resp struct {
		BestMatches []struct {
			Symbol   string `json:"1. symbol"`
			Name     string `json:"2. name"`
			Type     string `json:"3. type"`
			Region   string `json:"4. region"`
			Currency string `json:"8. currency"`
		} `json:"bestMatches"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("alphavantage: decode search: %w: %v", domain.ErrProviderUnavailable, err)
	}

	matches := make([]domain.SymbolMatch, 0, len(resp.BestMatches))
	for _, m := range resp.BestMatches {
		matches = append(matches, domain.SymbolMatch{
			Symbol:   m.Symbol,
			Name:     m.Name,
			Type:     m.Type,
			Region:   m.Region,
			Currency: m.Currency,
		})
	}
	return matches, nil
}

var seriesFunctions = map[domain.Interval]string{
	domain.IntervalDaily:   "TIME_SERIES_DAILY",
	domain.IntervalWeekly:  "TIME_SERIES_WEEKLY",
	domain.IntervalMonthly: "TIME_SERIES_MONTHLY",
}

type seriesBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// History returns the compact price series for symbol, oldest bar first.
func (c *Client) History(ctx context.Context, symbol string, interval domain.Interval) ([]domain.PriceBar, error) {
	function, ok := seriesFunctions[interval]
	if !ok {
		return nil, fmt.Errorf("alphavantage: history: %w: interval %q", domain.ErrValidation, interval)
	}

	params := url.Values{}
	params.Set("function", function)
	params.Set("symbol", symbol)
	params.Set("outputsize", "compact")

	body, err := c.doGet(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("alphavantage: history %s: %w", symbol, err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("alphavantage: decode history: %w: %v", domain.ErrProviderUnavailable, err)
	}

	// "Time Series (Daily)", "Weekly Time Series", "Monthly Time Series".
	var series map[string]seriesBar
	for k, v := range raw {
		if !strings.Contains(k, "Time Series") {
			continue
		}
		if err := json.Unmarshal(v, &series); err != nil {
			return nil, fmt.Errorf("alphavantage: decode %s: %w: %v", k, domain.ErrProviderUnavailable, err)
		}
		break
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("alphavantage: history %s: %w", symbol, domain.ErrNotFound)
	}

	bars := make([]domain.PriceBar, 0, len(series))
	for date, b := range series {
		vol, _ := strconv.ParseInt(b.Volume, 10, 64)
		bars = append(bars, domain.PriceBar{
			Date:   date,
			Open:   parseDecimal(b.Open),
			High:   parseDecimal(b.High),
			Low:    parseDecimal(b.Low),
			Close:  parseDecimal(b.Close),
			Volume: vol,
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Date < bars[j].Date })

	return bars, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doGet sends a query with the API key attached and returns the body once
// the upstream status and in-band error fields are checked.
func (c *Client) doGet(ctx context.Context, params url.Values) ([]byte, error) {
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrProviderUnavailable, err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}
	if err := checkInBand(body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkHTTPStatus maps non-2xx status codes to domain errors.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	switch statusCode {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w: %s", domain.ErrProviderUnavailable, domain.ErrRateLimited, body)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", domain.ErrProviderUnavailable, statusCode, body)
	}
}

// checkInBand inspects the fields Alpha Vantage uses to report failures
// with a 200 status.
func checkInBand(body []byte) error {
	var env struct {
		Note         string `json:"Note"`
		Information  string `json:"Information"`
		ErrorMessage string `json:"Error Message"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil
	}
	switch {
	case env.ErrorMessage != "":
		return fmt.Errorf("%w: %s", domain.ErrNotFound, env.ErrorMessage)
	case env.Note != "":
		return fmt.Errorf("%w: %w: %s", domain.ErrProviderUnavailable, domain.ErrRateLimited, env.Note)
	case env.Information != "":
		return fmt.Errorf("%w: %s", domain.ErrProviderUnavailable, env.Information)
	}
	return nil
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}
