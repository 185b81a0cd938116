package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/portfoliod/internal/domain"
	"github.com/alanyoungcy/portfoliod/internal/notify"
)

// PortfolioDetail is a portfolio with its valued holdings.
type PortfolioDetail struct {
	domain.Portfolio
	Holdings    []domain.Holding   `json:"holdings"`
	Performance domain.Performance `json:"performance"`
}

// PortfolioUpdate carries the fields a caller may change. Nil fields are
// left untouched.
type PortfolioUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// PortfolioService manages real-holdings portfolios.
type PortfolioService struct {
	portfolios domain.PortfolioStore
	txs        domain.TransactionStore
	prices     PriceSource
	effects    sideEffects
	logger     *slog.Logger
}

// NewPortfolioService creates a PortfolioService. notifier may be nil.
func NewPortfolioService(
	portfolios domain.PortfolioStore,
	txs domain.TransactionStore,
	prices PriceSource,
	audit domain.AuditStore,
	notifier Notifier,
	logger *slog.Logger,
) *PortfolioService {
	return &PortfolioService{
		portfolios: portfolios,
		txs:        txs,
		prices:     prices,
		effects:    sideEffects{audit: audit, notifier: notifier, logger: logger},
		logger:     logger,
	}
}

// Create adds a portfolio for userID. Names are unique per user.
func (s *PortfolioService) Create(ctx context.Context, userID int64, name, description string) (domain.Portfolio, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Portfolio{}, fmt.Errorf("portfolio_service: create: %w: name is required", domain.ErrValidation)
	}

	p, err := s.portfolios.Create(ctx, domain.Portfolio{
		UserID:      userID,
		Name:        name,
		Description: strings.TrimSpace(description),
	})
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("portfolio_service: create %q: %w", name, err)
	}

	s.effects.record(ctx, "portfolio_created", map[string]any{"portfolio_id": p.ID, "user_id": userID, "name": p.Name})
	s.effects.announce(ctx, notify.EventContainerCreated, "Portfolio created",
		fmt.Sprintf("%s %q for user %d", p.Ref(), p.Name, userID))
	s.logger.InfoContext(ctx, "portfolio_service: created portfolio",
		slog.Int64("portfolio_id", p.ID),
		slog.Int64("user_id", userID),
	)
	return p, nil
}

// List returns the user's portfolios.
func (s *PortfolioService) List(ctx context.Context, userID int64, opts domain.ListOpts) ([]domain.Portfolio, error) {
	ps, err := s.portfolios.ListByUser(ctx, userID, listOpts(opts))
	if err != nil {
		return nil, fmt.Errorf("portfolio_service: list: %w", err)
	}
	return ps, nil
}

// Get returns a portfolio owned by userID.
func (s *PortfolioService) Get(ctx context.Context, userID, id int64) (domain.Portfolio, error) {
	p, err := s.portfolios.Get(ctx, id)
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("portfolio_service: get %d: %w", id, err)
	}
	if err := ownedBy(p.Ref(), p.UserID, userID); err != nil {
		return domain.Portfolio{}, fmt.Errorf("portfolio_service: get: %w", err)
	}
	return p, nil
}

// Detail returns the portfolio with holdings and performance derived from
// its full transaction history.
func (s *PortfolioService) Detail(ctx context.Context, userID, id int64) (PortfolioDetail, error) {
	p, err := s.Get(ctx, userID, id)
	if err != nil {
		return PortfolioDetail{}, err
	}

	txs, err := s.txs.Query(ctx, p.Ref(), "")
	if err != nil {
		return PortfolioDetail{}, fmt.Errorf("portfolio_service: detail %d: %w", id, err)
	}
	holdings, perf, err := valuate(ctx, s.prices, txs)
	if err != nil {
		return PortfolioDetail{}, fmt.Errorf("portfolio_service: detail %d: %w", id, err)
	}
	return PortfolioDetail{Portfolio: p, Holdings: holdings, Performance: perf}, nil
}

// Update renames or re-describes a portfolio.
func (s *PortfolioService) Update(ctx context.Context, userID, id int64, upd PortfolioUpdate) (domain.Portfolio, error) {
	p, err := s.Get(ctx, userID, id)
	if err != nil {
		return domain.Portfolio{}, err
	}

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return domain.Portfolio{}, fmt.Errorf("portfolio_service: update: %w: name must not be empty", domain.ErrValidation)
		}
		p.Name = name
	}
	if upd.Description != nil {
		p.Description = strings.TrimSpace(*upd.Description)
	}

	p, err = s.portfolios.Update(ctx, p)
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("portfolio_service: update %d: %w", id, err)
	}
	return p, nil
}

// Delete removes a portfolio and its transactions.
func (s *PortfolioService) Delete(ctx context.Context, userID, id int64) error {
	p, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.portfolios.Delete(ctx, id); err != nil {
		return fmt.Errorf("portfolio_service: delete %d: %w", id, err)
	}

	s.effects.record(ctx, "portfolio_deleted", map[string]any{"portfolio_id": id, "user_id": userID})
	s.effects.announce(ctx, notify.EventContainerDeleted, "Portfolio deleted",
		fmt.Sprintf("%s %q for user %d", p.Ref(), p.Name, userID))
	return nil
}

// Transactions lists the portfolio's transactions, newest first.
func (s *PortfolioService) Transactions(ctx context.Context, userID, id int64, opts domain.ListOpts) ([]domain.Transaction, error) {
	p, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	txs, err := s.txs.ListRecent(ctx, p.Ref(), listOpts(opts))
	if err != nil {
		return nil, fmt.Errorf("portfolio_service: transactions %d: %w", id, err)
	}
	return txs, nil
}
