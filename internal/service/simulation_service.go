package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/portfoliod/internal/domain"
	"github.com/alanyoungcy/portfoliod/internal/ledger"
	"github.com/alanyoungcy/portfoliod/internal/notify"
)

// SimulationDetail is an account with valued holdings and the cash-aware
// performance block.
type SimulationDetail struct {
	domain.SimulationAccount
	Holdings    []domain.Holding             `json:"holdings"`
	Performance domain.SimulationPerformance `json:"performance"`
}

// SimulationService manages paper-trading accounts.
type SimulationService struct {
	accounts       domain.SimulationStore
	txs            domain.TransactionStore
	ledger         domain.Ledger
	prices         PriceSource
	defaultBalance decimal.Decimal
	effects        sideEffects
	logger         *slog.Logger
}

// NewSimulationService creates a SimulationService. defaultBalance seeds
// accounts created without an initial balance. l supplies the consistent
// balance and history snapshot behind Detail.
func NewSimulationService(
	accounts domain.SimulationStore,
	txs domain.TransactionStore,
	l domain.Ledger,
	prices PriceSource,
	defaultBalance decimal.Decimal,
	audit domain.AuditStore,
	notifier Notifier,
	logger *slog.Logger,
) *SimulationService {
	return &SimulationService{
		accounts:       accounts,
		txs:            txs,
		ledger:         l,
		prices:         prices,
		defaultBalance: defaultBalance,
		effects:        sideEffects{audit: audit, notifier: notifier, logger: logger},
		logger:         logger,
	}
}

// Create opens an account with initial as both initial and current
// balance. A nil initial selects the configured default.
func (s *SimulationService) Create(ctx context.Context, userID int64, name string, initial *decimal.Decimal) (domain.SimulationAccount, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.SimulationAccount{}, fmt.Errorf("simulation_service: create: %w: name is required", domain.ErrValidation)
	}
	balance := s.defaultBalance
	if initial != nil {
		balance = *initial
	}
	if !balance.IsPositive() {
		return domain.SimulationAccount{}, fmt.Errorf("simulation_service: create: %w: initial balance must be positive", domain.ErrValidation)
	}

	a, err := s.accounts.Create(ctx, domain.SimulationAccount{
		UserID:         userID,
		Name:           name,
		InitialBalance: balance,
		CurrentBalance: balance,
	})
	if err != nil {
		return domain.SimulationAccount{}, fmt.Errorf("simulation_service: create %q: %w", name, err)
	}

	s.effects.record(ctx, "simulation_created", map[string]any{
		"account_id": a.ID, "user_id": userID, "initial_balance": balance.String(),
	})
	s.effects.announce(ctx, notify.EventContainerCreated, "Simulation account created",
		fmt.Sprintf("%s %q for user %d", a.Ref(), a.Name, userID))
	s.logger.InfoContext(ctx, "simulation_service: created account",
		slog.Int64("account_id", a.ID),
		slog.Int64("user_id", userID),
	)
	return a, nil
}

// List returns the user's accounts.
func (s *SimulationService) List(ctx context.Context, userID int64, opts domain.ListOpts) ([]domain.SimulationAccount, error) {
	as, err := s.accounts.ListByUser(ctx, userID, listOpts(opts))
	if err != nil {
		return nil, fmt.Errorf("simulation_service: list: %w", err)
	}
	return as, nil
}

// Get returns an account owned by userID.
func (s *SimulationService) Get(ctx context.Context, userID, id int64) (domain.SimulationAccount, error) {
	a, err := s.accounts.Get(ctx, id)
	if err != nil {
		return domain.SimulationAccount{}, fmt.Errorf("simulation_service: get %d: %w", id, err)
	}
	if err := ownedBy(a.Ref(), a.UserID, userID); err != nil {
		return domain.SimulationAccount{}, fmt.Errorf("simulation_service: get: %w", err)
	}
	return a, nil
}

// Detail returns the account with holdings and simulation performance.
// The balance and the transaction history are read inside one ledger unit
// so a concurrent trade is either fully reflected or not at all.
func (s *SimulationService) Detail(ctx context.Context, userID, id int64) (SimulationDetail, error) {
	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return SimulationDetail{}, err
	}

	var txs []domain.Transaction
	err = s.ledger.WithinContainer(ctx, a.Ref(), func(ctx context.Context, tx domain.LedgerTx) error {
		a.CurrentBalance = tx.Container().Balance
		var err error
		txs, err = tx.Transactions(ctx, "")
		return err
	})
	if err != nil {
		return SimulationDetail{}, fmt.Errorf("simulation_service: detail %d: %w", id, err)
	}

	// Quotes are fetched after the unit so price lookups never hold the
	// container lock.
	holdings, perf, err := valuate(ctx, s.prices, txs)
	if err != nil {
		return SimulationDetail{}, fmt.Errorf("simulation_service: detail %d: %w", id, err)
	}
	return SimulationDetail{
		SimulationAccount: a,
		Holdings:          holdings,
		Performance:       ledger.Simulate(perf, a.CurrentBalance, a.InitialBalance),
	}, nil
}

// Delete removes an account and its transactions.
func (s *SimulationService) Delete(ctx context.Context, userID, id int64) error {
	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.accounts.Delete(ctx, id); err != nil {
		return fmt.Errorf("simulation_service: delete %d: %w", id, err)
	}

	s.effects.record(ctx, "simulation_deleted", map[string]any{"account_id": id, "user_id": userID})
	s.effects.announce(ctx, notify.EventContainerDeleted, "Simulation account deleted",
		fmt.Sprintf("%s %q for user %d", a.Ref(), a.Name, userID))
	return nil
}

// Transactions lists the account's transactions, newest first.
func (s *SimulationService) Transactions(ctx context.Context, userID, id int64, opts domain.ListOpts) ([]domain.Transaction, error) {
	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	txs, err := s.txs.ListRecent(ctx, a.Ref(), listOpts(opts))
	if err != nil {
		return nil, fmt.Errorf("simulation_service: transactions %d: %w", id, err)
	}
	return txs, nil
}
