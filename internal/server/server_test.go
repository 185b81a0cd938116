package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cachemem "github.com/alanyoungcy/portfoliod/internal/cache/memory"
	"github.com/alanyoungcy/portfoliod/internal/crypto"
	"github.com/alanyoungcy/portfoliod/internal/domain"
	"github.com/alanyoungcy/portfoliod/internal/ledger"
	"github.com/alanyoungcy/portfoliod/internal/server/handler"
	"github.com/alanyoungcy/portfoliod/internal/service"
	storemem "github.com/alanyoungcy/portfoliod/internal/store/memory"
)

type fixedQuotes map[string]string

func (q fixedQuotes) Quote(_ context.Context, symbol string) (domain.Quote, error) {
	p, ok := q[symbol]
	if !ok {
		return domain.Quote{}, fmt.Errorf("fixed: %s: %w", symbol, domain.ErrNotFound)
	}
	return domain.Quote{Symbol: symbol, Price: decimal.RequireFromString(p)}, nil
}

func (q fixedQuotes) Search(context.Context, string) ([]domain.SymbolMatch, error) {
	return nil, nil
}

func (q fixedQuotes) History(context.Context, string, domain.Interval) ([]domain.PriceBar, error) {
	return nil, nil
}

type noNews struct{}

func (noNews) Everything(context.Context, domain.NewsQuery) ([]domain.Article, int, error) {
	return nil, 0, nil
}

// newTestServer wires the full HTTP stack over the in-memory store.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := storemem.New()
	audit := storemem.NewAuditStore(db)
	txs := storemem.NewTransactionStore(db)

	tokens, err := crypto.NewTokenIssuer("0123456789abcdef0123456789abcdef", "portfoliod", time.Hour)
	require.NoError(t, err)

	auth := service.NewAuthService(storemem.NewUserStore(db), tokens, audit, 4, logger)
	stocks := service.NewStockService(storemem.NewStockStore(db), fixedQuotes{"AAPL": "130.00"}, cachemem.NewTTLCache(time.Minute), logger)
	portfolios := service.NewPortfolioService(storemem.NewPortfolioStore(db), txs, stocks, audit, nil, logger)
	accounts := service.NewSimulationService(storemem.NewSimulationStore(db), txs, storemem.NewLedger(db), stocks, decimal.NewFromInt(100000), audit, nil, logger)
	trades := service.NewTradeService(ledger.NewValidator(storemem.NewLedger(db), stocks), cachemem.NewEventBus(), audit, nil, logger)
	news := service.NewNewsService(noNews{}, cachemem.NewTTLCache(15*time.Minute), logger)

	srv := NewServer(Config{}, Handlers{
		Health:      handler.NewHealthHandler(nil, logger),
		Auth:        handler.NewAuthHandler(auth, logger),
		Portfolios:  handler.NewPortfolioHandler(portfolios, logger),
		Simulations: handler.NewSimulationHandler(accounts, logger),
		Trades:      handler.NewTradeHandler(trades, logger),
		Stocks:      handler.NewStockHandler(stocks, logger),
		News:        handler.NewNewsHandler(news, logger),
	}, nil, auth, nil, logger)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

type apiClient struct {
	t     *testing.T
	base  string
	token string
}

func (c *apiClient) do(method, path string, body any, out any) int {
	c.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, rd)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func login(t *testing.T, base, username string) *apiClient {
	t.Helper()
	c := &apiClient{t: t, base: base}
	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/auth/register", map[string]string{
		"email": username + "@example.com", "username": username, "password": "correct horse",
	}, nil))

	var tok service.Token
	require.Equal(t, http.StatusOK, c.do(http.MethodPost, "/api/auth/token", map[string]string{
		"username": username, "password": "correct horse",
	}, &tok))
	require.Equal(t, "bearer", tok.TokenType)
	c.token = tok.AccessToken
	return c
}

func TestServer_PublicAndProtectedRoutes(t *testing.T) {
	ts := newTestServer(t)
	anon := &apiClient{t: t, base: ts.URL}

	assert.Equal(t, http.StatusOK, anon.do(http.MethodGet, "/api/health", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodGet, "/api/portfolios", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodGet, "/api/auth/me", nil, nil))

	forged := &apiClient{t: t, base: ts.URL, token: "not.a.jwt"}
	assert.Equal(t, http.StatusUnauthorized, forged.do(http.MethodGet, "/api/portfolios", nil, nil))

	alice := login(t, ts.URL, "alice")
	var me domain.User
	require.Equal(t, http.StatusOK, alice.do(http.MethodGet, "/api/auth/me", nil, &me))
	assert.Equal(t, "alice", me.Username)
}

func TestServer_SimulationTradingFlow(t *testing.T) {
	ts := newTestServer(t)
	alice := login(t, ts.URL, "alice")

	var acct domain.SimulationAccount
	require.Equal(t, http.StatusCreated, alice.do(http.MethodPost, "/api/simulation/accounts", map[string]any{
		"name": "paper", "initial_balance": "10000",
	}, &acct))
	base := fmt.Sprintf("/api/simulation/accounts/%d", acct.ID)

	var trade struct {
		Transaction domain.Transaction `json:"transaction"`
		Balance     decimal.Decimal    `json:"balance"`
	}
	require.Equal(t, http.StatusCreated, alice.do(http.MethodPost, base+"/transactions", map[string]any{
		"symbol": "aapl", "side": "buy", "quantity": 10, "price": "120",
	}, &trade))
	assert.Equal(t, "AAPL", trade.Transaction.Symbol)
	assert.True(t, decimal.RequireFromString("8800").Equal(trade.Balance), trade.Balance.String())

	assert.Equal(t, http.StatusUnprocessableEntity, alice.do(http.MethodPost, base+"/transactions", map[string]any{
		"symbol": "AAPL", "side": "sell", "quantity": 11, "price": "130",
	}, nil), "selling more than held")
	assert.Equal(t, http.StatusUnprocessableEntity, alice.do(http.MethodPost, base+"/transactions", map[string]any{
		"symbol": "AAPL", "side": "buy", "quantity": 1000, "price": "120",
	}, nil), "buying beyond the cash balance")
	assert.Equal(t, http.StatusUnprocessableEntity, alice.do(http.MethodPost, base+"/transactions", map[string]any{
		"symbol": "NOPE", "side": "buy", "quantity": 1, "price": "1",
	}, nil), "unknown symbol")
	assert.Equal(t, http.StatusBadRequest, alice.do(http.MethodPost, base+"/transactions", map[string]any{
		"symbol": "AAPL", "side": "buy", "quantity": 0, "price": "1",
	}, nil))

	var detail service.SimulationDetail
	require.Equal(t, http.StatusOK, alice.do(http.MethodGet, base, nil, &detail))
	require.Len(t, detail.Holdings, 1)
	assert.True(t, decimal.RequireFromString("8800").Equal(detail.Performance.CurrentBalance))
	assert.True(t, decimal.RequireFromString("10100").Equal(detail.Performance.TotalPortfolioValue),
		detail.Performance.TotalPortfolioValue.String())

	var txs []domain.Transaction
	require.Equal(t, http.StatusOK, alice.do(http.MethodGet, base+"/transactions", nil, &txs))
	assert.Len(t, txs, 1)

	bob := login(t, ts.URL, "bob")
	assert.Equal(t, http.StatusForbidden, bob.do(http.MethodGet, base, nil, nil))
	assert.Equal(t, http.StatusForbidden, bob.do(http.MethodPost, base+"/transactions", map[string]any{
		"symbol": "AAPL", "side": "buy", "quantity": 1, "price": "1",
	}, nil))

	assert.Equal(t, http.StatusNoContent, alice.do(http.MethodDelete, base, nil, nil))
	assert.Equal(t, http.StatusNotFound, alice.do(http.MethodGet, base, nil, nil))
}

func TestServer_PortfolioCRUD(t *testing.T) {
	ts := newTestServer(t)
	alice := login(t, ts.URL, "alice")

	var p domain.Portfolio
	require.Equal(t, http.StatusCreated, alice.do(http.MethodPost, "/api/portfolios", map[string]string{
		"name": "Long term", "description": "index-ish",
	}, &p))
	assert.Equal(t, http.StatusConflict, alice.do(http.MethodPost, "/api/portfolios", map[string]string{
		"name": "Long term",
	}, nil))

	var second domain.Portfolio
	require.Equal(t, http.StatusCreated, alice.do(http.MethodPost, "/api/portfolios", map[string]string{"name": "Other"}, &second))
	assert.Equal(t, http.StatusConflict, alice.do(http.MethodPut, fmt.Sprintf("/api/portfolios/%d", second.ID), map[string]string{
		"name": "Long term",
	}, nil), "rename onto an existing name")

	var updated domain.Portfolio
	require.Equal(t, http.StatusOK, alice.do(http.MethodPut, fmt.Sprintf("/api/portfolios/%d", p.ID), map[string]string{
		"description": "dividends",
	}, &updated))
	assert.Equal(t, "Long term", updated.Name)
	assert.Equal(t, "dividends", updated.Description)

	require.Equal(t, http.StatusCreated, alice.do(http.MethodPost, fmt.Sprintf("/api/portfolios/%d/transactions", p.ID), map[string]any{
		"symbol": "AAPL", "side": "BUY", "quantity": 10, "price": 100,
	}, nil))

	var detail service.PortfolioDetail
	require.Equal(t, http.StatusOK, alice.do(http.MethodGet, fmt.Sprintf("/api/portfolios/%d", p.ID), nil, &detail))
	require.Len(t, detail.Holdings, 1)
	assert.True(t, decimal.RequireFromString("300").Equal(detail.Performance.ProfitLoss), detail.Performance.ProfitLoss.String())
	assert.InDelta(t, 30.0, detail.Performance.ProfitLossPercent, 1e-9)

	var list []domain.Portfolio
	require.Equal(t, http.StatusOK, alice.do(http.MethodGet, "/api/portfolios?limit=1", nil, &list))
	assert.Len(t, list, 1)

	assert.Equal(t, http.StatusNotFound, alice.do(http.MethodGet, "/api/portfolios/9999", nil, nil))
	assert.Equal(t, http.StatusBadRequest, alice.do(http.MethodGet, "/api/portfolios/abc", nil, nil))
}
