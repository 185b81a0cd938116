package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/portfoliod/internal/domain"
	"github.com/alanyoungcy/portfoliod/internal/ledger"
)

// TradeService submits trades through the ledger validator and fans out
// the committed result to the audit log, the event bus and operators.
type TradeService struct {
	validator *ledger.Validator
	bus       domain.EventBus
	effects   sideEffects
	notifier  Notifier
	logger    *slog.Logger
}

// NewTradeService creates a TradeService. bus and notifier may be nil.
func NewTradeService(
	validator *ledger.Validator,
	bus domain.EventBus,
	audit domain.AuditStore,
	notifier Notifier,
	logger *slog.Logger,
) *TradeService {
	return &TradeService{
		validator: validator,
		bus:       bus,
		effects:   sideEffects{audit: audit, notifier: notifier, logger: logger},
		notifier:  notifier,
		logger:    logger,
	}
}

// Submit validates and commits o against ref on behalf of userID. Side
// effects after the commit are best-effort.
func (s *TradeService) Submit(ctx context.Context, userID int64, ref domain.ContainerRef, o ledger.Order) (ledger.Result, error) {
	res, err := s.validator.Submit(ctx, userID, ref, o)
	if err != nil {
		s.logger.InfoContext(ctx, "trade_service: trade rejected",
			slog.String("container", ref.String()),
			slog.String("symbol", o.Symbol),
			slog.String("side", string(o.Side)),
			slog.Int64("quantity", o.Quantity),
			slog.String("reason", err.Error()),
		)
		return ledger.Result{}, fmt.Errorf("trade_service: submit: %w", err)
	}

	t := res.Transaction
	detail := map[string]any{
		"transaction_id": t.ID,
		"container":      ref.String(),
		"user_id":        userID,
		"symbol":         t.Symbol,
		"side":           string(t.Side),
		"quantity":       t.Quantity,
		"price":          t.Price.String(),
		"total_amount":   t.TotalAmount.String(),
	}
	if res.Balance != nil {
		detail["balance"] = res.Balance.String()
	}
	s.effects.record(ctx, "trade_executed", detail)

	evt := domain.TradeEvent{UserID: userID, Transaction: t, Balance: res.Balance}
	s.publish(ctx, evt)

	if s.notifier != nil {
		if err := s.notifier.NotifyTrade(ctx, evt); err != nil {
			s.logger.WarnContext(ctx, "trade_service: notify failed",
				slog.Int64("transaction_id", t.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "trade_service: trade executed",
		slog.Int64("transaction_id", t.ID),
		slog.String("container", ref.String()),
		slog.String("symbol", t.Symbol),
		slog.String("side", string(t.Side)),
		slog.Int64("quantity", t.Quantity),
		slog.String("total_amount", t.TotalAmount.String()),
	)
	return res, nil
}

func (s *TradeService) publish(ctx context.Context, evt domain.TradeEvent) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		s.logger.WarnContext(ctx, "trade_service: marshal event failed", slog.String("error", err.Error()))
		return
	}
	if err := s.bus.Publish(ctx, domain.TradesChannel, payload); err != nil {
		s.logger.WarnContext(ctx, "trade_service: publish event failed",
			slog.Int64("transaction_id", evt.Transaction.ID),
			slog.String("error", err.Error()),
		)
	}
}
