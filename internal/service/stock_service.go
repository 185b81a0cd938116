package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

// StockService serves quotes, symbol search and price history through a
// short-lived cache, and keeps the stock table's last prices current.
type StockService struct {
	stocks domain.StockStore
	quotes domain.QuoteProvider
	cache  domain.Cache
	logger *slog.Logger
}

// NewStockService creates a StockService. cache holds quote, search and
// history responses.
func NewStockService(
	stocks domain.StockStore,
	quotes domain.QuoteProvider,
	cache domain.Cache,
	logger *slog.Logger,
) *StockService {
	return &StockService{
		stocks: stocks,
		quotes: quotes,
		cache:  cache,
		logger: logger,
	}
}

// List returns known stocks ordered by symbol.
func (s *StockService) List(ctx context.Context, opts domain.ListOpts) ([]domain.Stock, error) {
	stocks, err := s.stocks.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("stock_service: list: %w", err)
	}
	return stocks, nil
}

// Resolve returns the stored stock for symbol, materializing it from a
// provider quote on first reference. Any lookup failure for an unknown
// symbol is reported as domain.ErrInvalidSymbol.
func (s *StockService) Resolve(ctx context.Context, symbol string) (domain.Stock, error) {
	symbol = domain.NormalizeSymbol(symbol)

	st, err := s.stocks.GetBySymbol(ctx, symbol)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Stock{}, fmt.Errorf("stock_service: resolve %s: %w", symbol, err)
	}

	q, err := s.fetchQuote(ctx, symbol)
	if err != nil {
		return domain.Stock{}, fmt.Errorf("stock_service: resolve %s: %w: %v", symbol, domain.ErrInvalidSymbol, err)
	}

	st, err = s.stocks.Upsert(ctx, domain.Stock{
		Symbol:        symbol,
		Name:          displayName(symbol, q.Name),
		LastPrice:     q.Price,
		ChangePercent: q.ChangePercent,
	})
	if err != nil {
		return domain.Stock{}, fmt.Errorf("stock_service: materialize %s: %w", symbol, err)
	}

	s.logger.InfoContext(ctx, "stock_service: materialized symbol",
		slog.String("symbol", symbol),
		slog.String("price", q.Price.String()),
	)
	return st, nil
}

// Quote returns the current quote for symbol and records it as the stock's
// last price. When the provider fails and a last price is stored, that price
// is returned with Stale set.
func (s *StockService) Quote(ctx context.Context, symbol string) (domain.Quote, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return domain.Quote{}, fmt.Errorf("stock_service: quote: %w: symbol is required", domain.ErrValidation)
	}

	q, err := s.fetchQuote(ctx, symbol)
	if err != nil {
		st, stErr := s.stocks.GetBySymbol(ctx, symbol)
		if stErr != nil || !st.LastPrice.IsPositive() {
			return domain.Quote{}, fmt.Errorf("stock_service: quote %s: %w", symbol, err)
		}
		s.logger.WarnContext(ctx, "stock_service: serving stored price",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		return domain.Quote{
			Symbol:        st.Symbol,
			Name:          st.Name,
			Price:         st.LastPrice,
			ChangePercent: st.ChangePercent,
			Timestamp:     st.UpdatedAt,
			Stale:         true,
		}, nil
	}

	st, err := s.stocks.Upsert(ctx, domain.Stock{
		Symbol:        symbol,
		Name:          displayName(symbol, q.Name),
		LastPrice:     q.Price,
		ChangePercent: q.ChangePercent,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "stock_service: record last price failed",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
		q.Name = displayName(symbol, q.Name)
	} else {
		q.Name = st.Name
	}
	return q, nil
}

// Price implements PriceSource for valuation: the quote price, the stored
// last price when the provider fails, or zero when neither is available.
func (s *StockService) Price(ctx context.Context, symbol string) (decimal.Decimal, string) {
	q, err := s.Quote(ctx, symbol)
	if err == nil {
		return q.Price, q.Name
	}

	s.logger.WarnContext(ctx, "stock_service: no price for valuation",
		slog.String("symbol", symbol),
		slog.String("error", err.Error()),
	)
	if st, err := s.stocks.GetBySymbol(ctx, symbol); err == nil {
		return st.LastPrice, st.Name
	}
	return decimal.Zero, ""
}

// Search returns symbol matches for query.
func (s *StockService) Search(ctx context.Context, query string) ([]domain.SymbolMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("stock_service: search: %w: query is required", domain.ErrValidation)
	}

	matches, err := cached(ctx, s.cache, s.logger, "search:"+strings.ToLower(query), func() ([]domain.SymbolMatch, error) {
		return s.quotes.Search(ctx, query)
	})
	if err != nil {
		return nil, fmt.Errorf("stock_service: search %q: %w", query, err)
	}
	return matches, nil
}

// History returns price bars for symbol in ascending date order.
func (s *StockService) History(ctx context.Context, symbol string, interval domain.Interval) ([]domain.PriceBar, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, fmt.Errorf("stock_service: history: %w: symbol is required", domain.ErrValidation)
	}
	if interval == "" {
		interval = domain.IntervalDaily
	}
	if !interval.Valid() {
		return nil, fmt.Errorf("stock_service: history: %w: invalid interval %q", domain.ErrValidation, interval)
	}

	key := fmt.Sprintf("history:%s:%s", symbol, interval)
	bars, err := cached(ctx, s.cache, s.logger, key, func() ([]domain.PriceBar, error) {
		return s.quotes.History(ctx, symbol, interval)
	})
	if err != nil {
		return nil, fmt.Errorf("stock_service: history %s: %w", symbol, err)
	}
	return bars, nil
}

// fetchQuote is the cache-through provider call without any fallback.
func (s *StockService) fetchQuote(ctx context.Context, symbol string) (domain.Quote, error) {
	return cached(ctx, s.cache, s.logger, "quote:"+symbol, func() (domain.Quote, error) {
		return s.quotes.Quote(ctx, symbol)
	})
}

func displayName(symbol, name string) string {
	if name != "" {
		return name
	}
	if n := domain.CompanyName(symbol); n != "" {
		return n
	}
	return symbol
}
