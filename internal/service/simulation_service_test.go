package service

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

func TestSimulationService_Create(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, nil)

	a, err := e.simulations.Create(ctx, 1, "Paper", nil)
	require.NoError(t, err)
	assert.True(t, a.InitialBalance.Equal(dec("100000")))
	assert.True(t, a.CurrentBalance.Equal(dec("100000")))

	custom := dec("2500.50")
	b, err := e.simulations.Create(ctx, 1, "Small", &custom)
	require.NoError(t, err)
	assert.True(t, b.CurrentBalance.Equal(custom))

	_, err = e.simulations.Create(ctx, 1, "Paper", nil)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	zero := dec("0")
	_, err = e.simulations.Create(ctx, 1, "Broke", &zero)
	assert.ErrorIs(t, err, domain.ErrValidation)

	list, err := e.simulations.List(ctx, 1, domain.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestSimulationService_Detail(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, map[string]string{"AAPL": "130"})

	a, err := e.simulations.Create(ctx, 1, "Paper", nil)
	require.NoError(t, err)

	for _, o := range []struct {
		side  domain.Side
		qty   int64
		price string
	}{
		{domain.SideBuy, 10, "100"},
		{domain.SideBuy, 10, "120"},
		{domain.SideSell, 5, "150"},
	} {
		_, err := e.trades.Submit(ctx, 1, a.Ref(), order("AAPL", o.side, o.qty, o.price))
		require.NoError(t, err)
	}

	d, err := e.simulations.Detail(ctx, 1, a.ID)
	require.NoError(t, err)
	assert.True(t, d.CurrentBalance.Equal(dec("98550")))
	require.Len(t, d.Holdings, 1)

	perf := d.Performance
	assert.True(t, perf.InitialBalance.Equal(dec("100000")))
	assert.True(t, perf.CurrentBalance.Equal(dec("98550")))
	assert.True(t, perf.InvestedValue.Equal(dec("1650")))
	assert.True(t, perf.CurrentInvestmentValue.Equal(dec("1950")))
	assert.True(t, perf.TotalPortfolioValue.Equal(dec("100500")))
	assert.True(t, perf.TotalProfitLoss.Equal(dec("500")))
	assert.InDelta(t, 0.5, perf.ProfitLossPercent, 1e-9)
}

func TestSimulationService_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, map[string]string{"AAPL": "100"})

	a, err := e.simulations.Create(ctx, 1, "Paper", nil)
	require.NoError(t, err)
	_, err = e.trades.Submit(ctx, 1, a.Ref(), order("AAPL", domain.SideBuy, 1, "100"))
	require.NoError(t, err)

	assert.ErrorIs(t, e.simulations.Delete(ctx, 2, a.ID), domain.ErrForbidden)
	require.NoError(t, e.simulations.Delete(ctx, 1, a.ID))

	_, err = e.simulations.Transactions(ctx, 1, a.ID, domain.ListOpts{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	txs, err := e.stocks.stocks.List(ctx, domain.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, txs, 1, "stocks survive container deletion")
}

func TestSimulationService_DetailIsConsistentUnderConcurrentTrades(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, map[string]string{"AAPL": "10"})

	a, err := e.simulations.Create(ctx, 1, "Paper", nil)
	require.NoError(t, err)

	const buys = 200
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < buys; i++ {
			_, err := e.trades.Submit(ctx, 1, a.Ref(), order("AAPL", domain.SideBuy, 1, "10"))
			assert.NoError(t, err)
		}
	}()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	// Every buy moves cash into cost basis, so the two must always sum to
	// the initial balance in any snapshot.
	check := func() SimulationDetail {
		d, err := e.simulations.Detail(ctx, 1, a.ID)
		require.NoError(t, err)
		cost := decimal.Zero
		for _, h := range d.Holdings {
			cost = cost.Add(h.TotalCost)
		}
		require.Truef(t, d.CurrentBalance.Add(cost).Equal(d.InitialBalance),
			"balance %s + cost %s != initial %s", d.CurrentBalance, cost, d.InitialBalance)
		return d
	}

	for running := true; running; {
		select {
		case <-done:
			running = false
		default:
			check()
		}
	}

	d := check()
	require.Len(t, d.Holdings, 1)
	assert.Equal(t, int64(buys), d.Holdings[0].Quantity)
	assert.True(t, d.CurrentBalance.Equal(dec("98000")))
}
