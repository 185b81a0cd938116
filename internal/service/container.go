package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/portfoliod/internal/domain"
	"github.com/alanyoungcy/portfoliod/internal/ledger"
)

// PriceSource prices a symbol for valuation and returns its display name.
// It never fails; unknown prices are zero.
type PriceSource interface {
	Price(ctx context.Context, symbol string) (decimal.Decimal, string)
}

// Notifier forwards lifecycle and trade events to operators.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
	NotifyTrade(ctx context.Context, evt domain.TradeEvent) error
}

const defaultListLimit = 100

// listOpts applies the default page size.
func listOpts(opts domain.ListOpts) domain.ListOpts {
	if opts.Limit <= 0 {
		opts.Limit = defaultListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return opts
}

// valuate folds txs into open positions and values them with prices.
func valuate(ctx context.Context, prices PriceSource, txs []domain.Transaction) ([]domain.Holding, domain.Performance, error) {
	return ledger.Valuate(ledger.Positions(txs), func(symbol string) (decimal.Decimal, string) {
		return prices.Price(ctx, symbol)
	})
}

// sideEffects records audit entries and operator notifications. Failures are
// logged and never propagate.
type sideEffects struct {
	audit    domain.AuditStore
	notifier Notifier
	logger   *slog.Logger
}

func (s sideEffects) record(ctx context.Context, event string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "service: audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func (s sideEffects) announce(ctx context.Context, event, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event, title, message); err != nil {
		s.logger.WarnContext(ctx, "service: notify failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func ownedBy(ref domain.ContainerRef, owner, userID int64) error {
	if owner != userID {
		return fmt.Errorf("%s: %w", ref, domain.ErrForbidden)
	}
	return nil
}
