package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/portfoliod/internal/domain"
	"github.com/alanyoungcy/portfoliod/internal/ledger"
)

// TradeService defines the method that the trade handler requires from the
// service layer.
type TradeService interface {
	Submit(ctx context.Context, userID int64, ref domain.ContainerRef, o ledger.Order) (ledger.Result, error)
}

// TradeHandler accepts trades against portfolios and simulation accounts.
type TradeHandler struct {
	trades TradeService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler with the given service and logger.
func NewTradeHandler(trades TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{trades: trades, logger: logHandler(logger, "trade")}
}

// tradeRequest accepts the side in any case and the price as a JSON number
// or string.
type tradeRequest struct {
	Symbol   string          `json:"symbol"`
	Side     string          `json:"side"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type tradeResponse struct {
	Transaction domain.Transaction `json:"transaction"`
	Balance     *decimal.Decimal   `json:"balance,omitempty"`
}

// SubmitPortfolio records a trade in a portfolio.
// POST /api/portfolios/{id}/transactions
func (h *TradeHandler) SubmitPortfolio(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, domain.ContainerPortfolio)
}

// SubmitSimulation executes a simulated trade against an account's cash.
// POST /api/simulation/accounts/{id}/transactions
func (h *TradeHandler) SubmitSimulation(w http.ResponseWriter, r *http.Request) {
	h.submit(w, r, domain.ContainerSimulation)
}

func (h *TradeHandler) submit(w http.ResponseWriter, r *http.Request, kind domain.ContainerKind) {
	userID, err := currentUser(r)
	if err != nil {
		writeServiceError(w, r, h.logger, "submit trade", err)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, h.logger, "submit trade", err)
		return
	}

	var req tradeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, "submit trade", err)
		return
	}
	side, err := domain.ParseSide(req.Side)
	if err != nil {
		writeServiceError(w, r, h.logger, "submit trade", err)
		return
	}

	res, err := h.trades.Submit(r.Context(), userID, domain.ContainerRef{Kind: kind, ID: id}, ledger.Order{
		Symbol:   req.Symbol,
		Side:     side,
		Quantity: req.Quantity,
		Price:    req.Price,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "submit trade", err)
		return
	}
	writeJSON(w, http.StatusCreated, tradeResponse{Transaction: res.Transaction, Balance: res.Balance})
}
