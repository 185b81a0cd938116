package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/portfoliod/internal/domain"
	"github.com/alanyoungcy/portfoliod/internal/service"
)

// PortfolioService defines the methods that the portfolio handler requires
// from the service layer.
type PortfolioService interface {
	Create(ctx context.Context, userID int64, name, description string) (domain.Portfolio, error)
	List(ctx context.Context, userID int64, opts domain.ListOpts) ([]domain.Portfolio, error)
	Detail(ctx context.Context, userID, id int64) (service.PortfolioDetail, error)
	Update(ctx context.Context, userID, id int64, upd service.PortfolioUpdate) (domain.Portfolio, error)
	Delete(ctx context.Context, userID, id int64) error
	Transactions(ctx context.Context, userID, id int64, opts domain.ListOpts) ([]domain.Transaction, error)
}

// PortfolioHandler serves portfolio CRUD and transaction history.
type PortfolioHandler struct {
	portfolios PortfolioService
	logger     *slog.Logger
}

// NewPortfolioHandler creates a PortfolioHandler with the given service and
// logger.
func NewPortfolioHandler(portfolios PortfolioService, logger *slog.Logger) *PortfolioHandler {
	return &PortfolioHandler{portfolios: portfolios, logger: logHandler(logger, "portfolio")}
}

type createPortfolioRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Create adds a portfolio for the caller.
// POST /api/portfolios
func (h *PortfolioHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeServiceError(w, r, h.logger, "create portfolio", err)
		return
	}

	var req createPortfolioRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, "create portfolio", err)
		return
	}

	p, err := h.portfolios.Create(r.Context(), userID, req.Name, req.Description)
	if err != nil {
		writeServiceError(w, r, h.logger, "create portfolio", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// List returns the caller's portfolios.
// GET /api/portfolios?limit=100&offset=0
func (h *PortfolioHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeServiceError(w, r, h.logger, "list portfolios", err)
		return
	}

	list, err := h.portfolios.List(r.Context(), userID, parseListOpts(r))
	if err != nil {
		writeServiceError(w, r, h.logger, "list portfolios", err)
		return
	}
	if list == nil {
		list = []domain.Portfolio{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Get returns a portfolio with its valued holdings and performance.
// GET /api/portfolios/{id}
func (h *PortfolioHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r, "get portfolio")
	if !ok {
		return
	}

	detail, err := h.portfolios.Detail(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, r, h.logger, "get portfolio", err)
		return
	}
	if detail.Holdings == nil {
		detail.Holdings = []domain.Holding{}
	}
	writeJSON(w, http.StatusOK, detail)
}

// Update renames a portfolio or changes its description.
// PUT /api/portfolios/{id}
func (h *PortfolioHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r, "update portfolio")
	if !ok {
		return
	}

	var upd service.PortfolioUpdate
	if err := decodeJSON(r, &upd); err != nil {
		writeServiceError(w, r, h.logger, "update portfolio", err)
		return
	}

	p, err := h.portfolios.Update(r.Context(), userID, id, upd)
	if err != nil {
		writeServiceError(w, r, h.logger, "update portfolio", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Delete removes a portfolio and its transactions.
// DELETE /api/portfolios/{id}
func (h *PortfolioHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r, "delete portfolio")
	if !ok {
		return
	}

	if err := h.portfolios.Delete(r.Context(), userID, id); err != nil {
		writeServiceError(w, r, h.logger, "delete portfolio", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Transactions lists a portfolio's transactions, newest first.
// GET /api/portfolios/{id}/transactions?limit=100&offset=0
func (h *PortfolioHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r, "list portfolio transactions")
	if !ok {
		return
	}

	txs, err := h.portfolios.Transactions(r.Context(), userID, id, parseListOpts(r))
	if err != nil {
		writeServiceError(w, r, h.logger, "list portfolio transactions", err)
		return
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

// target resolves the caller and the {id} path parameter, writing the error
// response itself when either is missing.
func (h *PortfolioHandler) target(w http.ResponseWriter, r *http.Request, op string) (int64, int64, bool) {
	userID, err := currentUser(r)
	if err != nil {
		writeServiceError(w, r, h.logger, op, err)
		return 0, 0, false
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, h.logger, op, err)
		return 0, 0, false
	}
	return userID, id, true
}
