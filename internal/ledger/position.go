// Package ledger derives positions, holdings and performance from the
// append-only transaction ledger and validates new trades against it.
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

// Apply folds one transaction into pos using average-cost bookkeeping.
//
// A BUY adds q*p to the cost and recomputes the average. A SELL removes
// q*average from the cost but leaves the average itself untouched until
// the next BUY; the sale price only moves cash. Once the quantity reaches
// zero or below, the cost is reset to zero.
func Apply(pos domain.Position, tx domain.Transaction) domain.Position {
	q := decimal.NewFromInt(tx.Quantity)

	switch tx.Side {
	case domain.SideBuy:
		pos.TotalCost = pos.TotalCost.Add(q.Mul(tx.Price))
		pos.Quantity += tx.Quantity
		if pos.Quantity > 0 {
			pos.AverageCost = pos.TotalCost.Div(decimal.NewFromInt(pos.Quantity))
		} else {
			pos.AverageCost = decimal.Zero
		}
	case domain.SideSell:
		pos.TotalCost = pos.TotalCost.Sub(q.Mul(pos.AverageCost))
		pos.Quantity -= tx.Quantity
	}

	if pos.Quantity <= 0 {
		pos.TotalCost = decimal.Zero
	}
	return pos
}

// Fold replays txs in order. Callers pass the transactions of a single
// symbol; entries for other symbols are skipped.
func Fold(symbol string, txs []domain.Transaction) domain.Position {
	pos := domain.Position{Symbol: symbol}
	for _, tx := range txs {
		if tx.Symbol != symbol {
			continue
		}
		pos = Apply(pos, tx)
	}
	return pos
}

// HeldQuantity returns the folded quantity of symbol, never below zero.
func HeldQuantity(symbol string, txs []domain.Transaction) int64 {
	pos := Fold(symbol, txs)
	if pos.Quantity < 0 {
		return 0
	}
	return pos.Quantity
}

// Positions folds every symbol in txs and returns the open ones in order of
// first appearance. Symbols whose quantity folds to zero or below are left
// out.
func Positions(txs []domain.Transaction) []domain.Position {
	var order []string
	folded := make(map[string]domain.Position)

	for _, tx := range txs {
		pos, seen := folded[tx.Symbol]
		if !seen {
			order = append(order, tx.Symbol)
			pos = domain.Position{Symbol: tx.Symbol}
		}
		folded[tx.Symbol] = Apply(pos, tx)
	}

	out := make([]domain.Position, 0, len(order))
	for _, sym := range order {
		if pos := folded[sym]; pos.Quantity > 0 {
			out = append(out, pos)
		}
	}
	return out
}
