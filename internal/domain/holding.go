package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Position is the folded state of one symbol within one container.
type Position struct {
	Symbol      string          `json:"symbol"`
	Quantity    int64           `json:"quantity"`
	AverageCost decimal.Decimal `json:"average_cost"`
	TotalCost   decimal.Decimal `json:"total_cost"`
}

// Holding is an open position valued at a current price.
type Holding struct {
	Symbol            string          `json:"symbol"`
	Name              string          `json:"name,omitempty"`
	Quantity          int64           `json:"quantity"`
	AvgPrice          decimal.Decimal `json:"avg_price"`
	CurrentPrice      decimal.Decimal `json:"current_price"`
	TotalCost         decimal.Decimal `json:"total_cost"`
	CurrentValue      decimal.Decimal `json:"current_value"`
	ProfitLoss        decimal.Decimal `json:"profit_loss"`
	ProfitLossPercent float64         `json:"profit_loss_percent"`
}

// NewHolding values pos at price. Closed positions and negative prices are
// rejected.
func NewHolding(pos Position, name string, price decimal.Decimal) (Holding, error) {
	if pos.Symbol == "" {
		return Holding{}, fmt.Errorf("%w: holding without symbol", ErrValidation)
	}
	if pos.Quantity <= 0 {
		return Holding{}, fmt.Errorf("%w: holding %s has quantity %d", ErrValidation, pos.Symbol, pos.Quantity)
	}
	if price.IsNegative() {
		return Holding{}, fmt.Errorf("%w: holding %s has negative price %s", ErrValidation, pos.Symbol, price)
	}
	if pos.TotalCost.IsNegative() {
		return Holding{}, fmt.Errorf("%w: holding %s has negative cost %s", ErrValidation, pos.Symbol, pos.TotalCost)
	}

	value := price.Mul(decimal.NewFromInt(pos.Quantity))
	pl := value.Sub(pos.TotalCost)
	return Holding{
		Symbol:            pos.Symbol,
		Name:              name,
		Quantity:          pos.Quantity,
		AvgPrice:          pos.AverageCost,
		CurrentPrice:      price,
		TotalCost:         pos.TotalCost,
		CurrentValue:      value,
		ProfitLoss:        pl,
		ProfitLossPercent: Percent(pl, pos.TotalCost),
	}, nil
}

// Performance aggregates a container's holdings.
type Performance struct {
	TotalInvestment   decimal.Decimal `json:"total_investment"`
	CurrentValue      decimal.Decimal `json:"current_value"`
	ProfitLoss        decimal.Decimal `json:"profit_loss"`
	ProfitLossPercent float64         `json:"profit_loss_percent"`
}

// SimulationPerformance wraps Performance with the cash side of a
// simulation account.
type SimulationPerformance struct {
	InitialBalance         decimal.Decimal `json:"initial_balance"`
	CurrentBalance         decimal.Decimal `json:"current_balance"`
	InvestedValue          decimal.Decimal `json:"invested_value"`
	CurrentInvestmentValue decimal.Decimal `json:"current_investment_value"`
	TotalPortfolioValue    decimal.Decimal `json:"total_portfolio_value"`
	TotalProfitLoss        decimal.Decimal `json:"total_profit_loss"`
	ProfitLossPercent      float64         `json:"profit_loss_percent"`
}

var hundred = decimal.NewFromInt(100)

// Percent returns part/base*100 as a display float, or 0 when base <= 0.
func Percent(part, base decimal.Decimal) float64 {
	if !base.IsPositive() {
		return 0
	}
	return part.Div(base).Mul(hundred).InexactFloat64()
}
