package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

// PriceLookup returns the price used to value symbol and the display name
// of the company, if known.
type PriceLookup func(symbol string) (price decimal.Decimal, name string)

// Valuate values every open position with lookup and aggregates the result.
func Valuate(positions []domain.Position, lookup PriceLookup) ([]domain.Holding, domain.Performance, error) {
	holdings := make([]domain.Holding, 0, len(positions))
	perf := domain.Performance{
		TotalInvestment: decimal.Zero,
		CurrentValue:    decimal.Zero,
		ProfitLoss:      decimal.Zero,
	}

	for _, pos := range positions {
		if pos.Quantity <= 0 {
			continue
		}
		price, name := lookup(pos.Symbol)
		h, err := domain.NewHolding(pos, name, price)
		if err != nil {
			return nil, domain.Performance{}, fmt.Errorf("ledger: value %s: %w", pos.Symbol, err)
		}
		holdings = append(holdings, h)
		perf.TotalInvestment = perf.TotalInvestment.Add(h.TotalCost)
		perf.CurrentValue = perf.CurrentValue.Add(h.CurrentValue)
	}

	perf.ProfitLoss = perf.CurrentValue.Sub(perf.TotalInvestment)
	perf.ProfitLossPercent = domain.Percent(perf.ProfitLoss, perf.TotalInvestment)
	return holdings, perf, nil
}

// Simulate wraps perf with the cash side of a simulation account.
func Simulate(perf domain.Performance, cash, initial decimal.Decimal) domain.SimulationPerformance {
	total := cash.Add(perf.CurrentValue)
	pl := total.Sub(initial)
	return domain.SimulationPerformance{
		InitialBalance:         initial,
		CurrentBalance:         cash,
		InvestedValue:          perf.TotalInvestment,
		CurrentInvestmentValue: perf.CurrentValue,
		TotalPortfolioValue:    total,
		TotalProfitLoss:        pl,
		ProfitLossPercent:      domain.Percent(pl, initial),
	}
}
