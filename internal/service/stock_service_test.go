package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

func TestStockService_Quote(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, map[string]string{"AAPL": "187.44"})

	q, err := e.stocks.Quote(ctx, " aapl ")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.Equal(t, "Apple", q.Name)
	assert.True(t, q.Price.Equal(dec("187.44")))
	assert.False(t, q.Stale)

	_, err = e.stocks.Quote(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 1, e.quotes.count("quote:AAPL"), "second quote served from cache")

	stocks, err := e.stocks.List(ctx, domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, stocks, 1)
	assert.True(t, stocks[0].LastPrice.Equal(dec("187.44")))
	assert.Equal(t, 1.5, stocks[0].ChangePercent)
}

func TestStockService_QuoteFallsBackToStoredPrice(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)
	_, err := e.stocks.stocks.Upsert(ctx, domain.Stock{Symbol: "MSFT", Name: "Microsoft", LastPrice: dec("410.5")})
	require.NoError(t, err)
	e.quotes.setErr(domain.ErrProviderUnavailable)

	q, err := e.stocks.Quote(ctx, "MSFT")
	require.NoError(t, err)
	assert.True(t, q.Stale)
	assert.True(t, q.Price.Equal(dec("410.5")))
	assert.Equal(t, "Microsoft", q.Name)

	_, err = e.stocks.Quote(ctx, "NVDA")
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}

func TestStockService_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("materializes unknown symbol", func(t *testing.T) {
		e := newEnv(t, map[string]string{"TSLA": "250"})
		st, err := e.stocks.Resolve(ctx, "tsla")
		require.NoError(t, err)
		assert.Equal(t, "TSLA", st.Symbol)
		assert.Equal(t, "Tesla", st.Name)
		assert.True(t, st.LastPrice.Equal(dec("250")))

		_, err = e.stocks.Resolve(ctx, "TSLA")
		require.NoError(t, err)
		assert.Equal(t, 1, e.quotes.count("quote:TSLA"))
	})

	t.Run("unknown name falls back to symbol", func(t *testing.T) {
		e := newEnv(t, map[string]string{"IBM": "190"})
		st, err := e.stocks.Resolve(ctx, "IBM")
		require.NoError(t, err)
		assert.Equal(t, "IBM", st.Name)
	})

	t.Run("known symbol skips provider", func(t *testing.T) {
		e := newEnv(t, nil)
		_, err := e.stocks.stocks.Upsert(ctx, domain.Stock{Symbol: "AMZN", LastPrice: dec("180")})
		require.NoError(t, err)
		e.quotes.setErr(domain.ErrProviderUnavailable)

		_, err = e.stocks.Resolve(ctx, "AMZN")
		require.NoError(t, err)
		assert.Zero(t, e.quotes.count("quote:AMZN"))
	})

	for _, provErr := range []error{domain.ErrNotFound, domain.ErrProviderUnavailable} {
		t.Run("lookup failure "+provErr.Error(), func(t *testing.T) {
			e := newEnv(t, nil)
			e.quotes.setErr(provErr)
			_, err := e.stocks.Resolve(ctx, "ZZZZ")
			assert.ErrorIs(t, err, domain.ErrInvalidSymbol)
		})
	}
}

func TestStockService_Price(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, map[string]string{"AAPL": "130"})

	p, name := e.stocks.Price(ctx, "AAPL")
	assert.True(t, p.Equal(dec("130")))
	assert.Equal(t, "Apple", name)

	p, name = e.stocks.Price(ctx, "GONE")
	assert.True(t, p.IsZero())
	assert.Empty(t, name)
}

func TestStockService_SearchAndHistory(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)
	e.quotes.matches = []domain.SymbolMatch{{Symbol: "MSFT", Name: "Microsoft Corporation"}}
	e.quotes.bars = []domain.PriceBar{{Date: "2026-02-27", Close: dec("1")}}

	_, err := e.stocks.Search(ctx, "  ")
	assert.ErrorIs(t, err, domain.ErrValidation)

	for range 2 {
		got, err := e.stocks.Search(ctx, "micro")
		require.NoError(t, err)
		assert.Len(t, got, 1)
	}
	assert.Equal(t, 1, e.quotes.count("search:micro"))

	bars, err := e.stocks.History(ctx, "msft", "")
	require.NoError(t, err)
	assert.Len(t, bars, 1)
	assert.Equal(t, 1, e.quotes.count("history:MSFT:daily"))

	_, err = e.stocks.History(ctx, "MSFT", domain.Interval("hourly"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	e.quotes.setErr(errors.Join(domain.ErrProviderUnavailable, errors.New("down")))
	_, err = e.stocks.History(ctx, "MSFT", domain.IntervalWeekly)
	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
}
