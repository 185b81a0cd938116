package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

// StockService defines the methods that the stock handler requires from the
// service layer.
type StockService interface {
	List(ctx context.Context, opts domain.ListOpts) ([]domain.Stock, error)
	Search(ctx context.Context, query string) ([]domain.SymbolMatch, error)
	Quote(ctx context.Context, symbol string) (domain.Quote, error)
	History(ctx context.Context, symbol string, interval domain.Interval) ([]domain.PriceBar, error)
}

// StockHandler serves market data endpoints.
type StockHandler struct {
	stocks StockService
	logger *slog.Logger
}

// NewStockHandler creates a StockHandler with the given service and logger.
func NewStockHandler(stocks StockService, logger *slog.Logger) *StockHandler {
	return &StockHandler{stocks: stocks, logger: logHandler(logger, "stock")}
}

type historyResponse struct {
	Symbol   string            `json:"symbol"`
	Interval domain.Interval   `json:"interval"`
	Bars     []domain.PriceBar `json:"bars"`
}

// List returns the known stocks with their last stored prices.
// GET /api/stocks?limit=100&offset=0
func (h *StockHandler) List(w http.ResponseWriter, r *http.Request) {
	stocks, err := h.stocks.List(r.Context(), parseListOpts(r))
	if err != nil {
		writeServiceError(w, r, h.logger, "list stocks", err)
		return
	}
	if stocks == nil {
		stocks = []domain.Stock{}
	}
	writeJSON(w, http.StatusOK, stocks)
}

// Search looks up symbols matching a keyword.
// GET /api/stocks/search?query=apple
func (h *StockHandler) Search(w http.ResponseWriter, r *http.Request) {
	matches, err := h.stocks.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		writeServiceError(w, r, h.logger, "search stocks", err)
		return
	}
	if matches == nil {
		matches = []domain.SymbolMatch{}
	}
	writeJSON(w, http.StatusOK, matches)
}

// Quote returns the current quote for a symbol.
// GET /api/stocks/quote/{symbol}
func (h *StockHandler) Quote(w http.ResponseWriter, r *http.Request) {
	q, err := h.stocks.Quote(r.Context(), r.PathValue("symbol"))
	if err != nil {
		writeServiceError(w, r, h.logger, "quote", err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// History returns OHLCV bars in ascending date order.
// GET /api/stocks/history/{symbol}?interval=daily
func (h *StockHandler) History(w http.ResponseWriter, r *http.Request) {
	symbol := domain.NormalizeSymbol(r.PathValue("symbol"))
	interval := domain.Interval(r.URL.Query().Get("interval"))
	if interval == "" {
		interval = domain.IntervalDaily
	}

	bars, err := h.stocks.History(r.Context(), symbol, interval)
	if err != nil {
		writeServiceError(w, r, h.logger, "history", err)
		return
	}
	if bars == nil {
		bars = []domain.PriceBar{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Symbol: symbol, Interval: interval, Bars: bars})
}
