package alphavantage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(srv.URL, "demo", time.Second)
	c.now = func() time.Time { return time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC) }
	return c
}

func TestQuote(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GLOBAL_QUOTE", r.URL.Query().Get("function"))
		assert.Equal(t, "AAPL", r.URL.Query().Get("symbol"))
		assert.Equal(t, "demo", r.URL.Query().Get("apikey"))
		_, _ = w.Write([]byte(`{"Global Quote": {
			"01. symbol": "AAPL",
			"05. price": "187.4400",
			"06. volume": "51234567",
			"07. latest trading day": "2026-02-27",
			"08. previous close": "185.0000",
			"09. change": "2.4400",
			"10. change percent": "1.3189%"
		}}`))
	})

	q, err := c.Quote(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, "187.44", q.Price.String())
	assert.Equal(t, "2.44", q.Change.String())
	assert.Equal(t, "185", q.PreviousClose.String())
	assert.InDelta(t, 1.3189, q.ChangePercent, 1e-9)
	assert.Equal(t, int64(51234567), q.Volume)
	assert.Equal(t, "2026-02-27", q.LatestTradingDay)
	assert.False(t, q.Stale)
}

func TestQuote_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr []error
	}{
		{
			name:    "empty quote",
			status:  http.StatusOK,
			body:    `{"Global Quote": {}}`,
			wantErr: []error{domain.ErrNotFound},
		},
		{
			name:    "invalid symbol",
			status:  http.StatusOK,
			body:    `{"Error Message": "Invalid API call."}`,
			wantErr: []error{domain.ErrNotFound},
		},
		{
			name:    "throttled note",
			status:  http.StatusOK,
			body:    `{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute."}`,
			wantErr: []error{domain.ErrProviderUnavailable, domain.ErrRateLimited},
		},
		{
			name:    "information",
			status:  http.StatusOK,
			body:    `{"Information": "The demo API key is for demo purposes only."}`,
			wantErr: []error{domain.ErrProviderUnavailable},
		},
		{
			name:    "upstream 500",
			status:  http.StatusInternalServerError,
			body:    `oops`,
			wantErr: []error{domain.ErrProviderUnavailable},
		},
		{
			name:    "upstream 429",
			status:  http.StatusTooManyRequests,
			body:    `slow down`,
			wantErr: []error{domain.ErrProviderUnavailable, domain.ErrRateLimited},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.Quote(context.Background(), "ZZZZ")
			require.Error(t, err)
			for _, want := range tt.wantErr {
				assert.True(t, errors.Is(err, want), "want %v in %v", want, err)
			}
		})
	}
}

func TestQuote_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, "demo", time.Second)
	_, err := c.Quote(context.Background(), "AAPL")
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestSearch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "SYMBOL_SEARCH", r.URL.Query().Get("function"))
		assert.Equal(t, "micro", r.URL.Query().Get("keywords"))
		_, _ = w.Write([]byte(`{"bestMatches": [
			{"1. symbol": "MSFT", "2. name": "Microsoft Corporation", "3. type": "Equity",
			 "4. region": "United States", "8. currency": "USD", "9. matchScore": "0.6154"},
			{"1. symbol": "MU", "2. name": "Micron Technology Inc", "3. type": "Equity",
			 "4. region": "United States", "8. currency": "USD", "9. matchScore": "0.4"}
		]}`))
	})

	got, err := c.Search(context.Background(), "micro")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.SymbolMatch{
		Symbol: "MSFT", Name: "Microsoft Corporation", Type: "Equity",
		Region: "United States", Currency: "USD",
	}, got[0])
}

func TestSearch_NoMatches(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"bestMatches": []}`))
	})
	got, err := c.Search(context.Background(), "qqqqq")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestHistory(t *testing.T) {
	tests := []struct {
		interval domain.Interval
		function string
		key      string
	}{
		{domain.IntervalDaily, "TIME_SERIES_DAILY", "Time Series (Daily)"},
		{domain.IntervalWeekly, "TIME_SERIES_WEEKLY", "Weekly Time Series"},
		{domain.IntervalMonthly, "TIME_SERIES_MONTHLY", "Monthly Time Series"},
	}

	for _, tt := range tests {
		t.Run(string(tt.interval), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.function, r.URL.Query().Get("function"))
				assert.Equal(t, "compact", r.URL.Query().Get("outputsize"))
				_, _ = w.Write([]byte(`{
					"Meta Data": {"1. Information": "prices"},
					"` + tt.key + `": {
						"2026-02-27": {"1. open": "186", "2. high": "188", "3. low": "185", "4. close": "187.44", "5. volume": "100"},
						"2026-02-25": {"1. open": "180", "2. high": "182", "3. low": "179", "4. close": "181", "5. volume": "300"},
						"2026-02-26": {"1. open": "181", "2. high": "186", "3. low": "180", "4. close": "185", "5. volume": "200"}
					}
				}`))
			})

			bars, err := c.History(context.Background(), "AAPL", tt.interval)
			require.NoError(t, err)
			require.Len(t, bars, 3)
			assert.Equal(t, "2026-02-25", bars[0].Date)
			assert.Equal(t, "2026-02-26", bars[1].Date)
			assert.Equal(t, "2026-02-27", bars[2].Date)
			assert.Equal(t, "187.44", bars[2].Close.String())
			assert.Equal(t, int64(300), bars[0].Volume)
		})
	}
}

func TestHistory_Errors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Meta Data": {}}`))
	})

	_, err := c.History(context.Background(), "AAPL", domain.IntervalDaily)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = c.History(context.Background(), "AAPL", domain.Interval("hourly"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}
