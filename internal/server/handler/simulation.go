package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/portfoliod/internal/domain"
	"github.com/alanyoungcy/portfoliod/internal/service"
)

// SimulationService defines the methods that the simulation handler
// requires from the service layer.
type SimulationService interface {
	Create(ctx context.Context, userID int64, name string, initial *decimal.Decimal) (domain.SimulationAccount, error)
	List(ctx context.Context, userID int64, opts domain.ListOpts) ([]domain.SimulationAccount, error)
	Detail(ctx context.Context, userID, id int64) (service.SimulationDetail, error)
	Delete(ctx context.Context, userID, id int64) error
	Transactions(ctx context.Context, userID, id int64, opts domain.ListOpts) ([]domain.Transaction, error)
}

// SimulationHandler serves paper-trading account endpoints.
type SimulationHandler struct {
	accounts SimulationService
	logger   *slog.Logger
}

// NewSimulationHandler creates a SimulationHandler with the given service
// and logger.
func NewSimulationHandler(accounts SimulationService, logger *slog.Logger) *SimulationHandler {
	return &SimulationHandler{accounts: accounts, logger: logHandler(logger, "simulation")}
}

type createAccountRequest struct {
	Name           string           `json:"name"`
	InitialBalance *decimal.Decimal `json:"initial_balance"`
}

// Create opens a simulation account for the caller.
// POST /api/simulation/accounts
func (h *SimulationHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeServiceError(w, r, h.logger, "create account", err)
		return
	}

	var req createAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, "create account", err)
		return
	}

	acct, err := h.accounts.Create(r.Context(), userID, req.Name, req.InitialBalance)
	if err != nil {
		writeServiceError(w, r, h.logger, "create account", err)
		return
	}
	writeJSON(w, http.StatusCreated, acct)
}

// List returns the caller's simulation accounts.
// GET /api/simulation/accounts
func (h *SimulationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUser(r)
	if err != nil {
		writeServiceError(w, r, h.logger, "list accounts", err)
		return
	}

	list, err := h.accounts.List(r.Context(), userID, parseListOpts(r))
	if err != nil {
		writeServiceError(w, r, h.logger, "list accounts", err)
		return
	}
	if list == nil {
		list = []domain.SimulationAccount{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Get returns an account with holdings and the cash-aware performance.
// GET /api/simulation/accounts/{id}
func (h *SimulationHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r, "get account")
	if !ok {
		return
	}

	detail, err := h.accounts.Detail(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, r, h.logger, "get account", err)
		return
	}
	if detail.Holdings == nil {
		detail.Holdings = []domain.Holding{}
	}
	writeJSON(w, http.StatusOK, detail)
}

// Delete removes an account and its transactions.
// DELETE /api/simulation/accounts/{id}
func (h *SimulationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r, "delete account")
	if !ok {
		return
	}

	if err := h.accounts.Delete(r.Context(), userID, id); err != nil {
		writeServiceError(w, r, h.logger, "delete account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Transactions lists an account's transactions, newest first.
// GET /api/simulation/accounts/{id}/transactions
func (h *SimulationHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := h.target(w, r, "list account transactions")
	if !ok {
		return
	}

	txs, err := h.accounts.Transactions(r.Context(), userID, id, parseListOpts(r))
	if err != nil {
		writeServiceError(w, r, h.logger, "list account transactions", err)
		return
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *SimulationHandler) target(w http.ResponseWriter, r *http.Request, op string) (int64, int64, bool) {
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
