package ledger

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

// Order is a proposed trade against one container.
type Order struct {
	Symbol   string          `json:"symbol"`
	Side     domain.Side     `json:"side"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Validate rejects malformed orders with domain.ErrValidation.
func (o Order) Validate() error {
	if domain.NormalizeSymbol(o.Symbol) == "" {
		return fmt.Errorf("%w: symbol is required", domain.ErrValidation)
	}
	if o.Side != domain.SideBuy && o.Side != domain.SideSell {
		return fmt.Errorf("%w: unrecognized side %q", domain.ErrValidation, o.Side)
	}
	if o.Quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive, got %d", domain.ErrValidation, o.Quantity)
	}
	if !o.Price.IsPositive() {
		return fmt.Errorf("%w: price must be positive, got %s", domain.ErrValidation, o.Price)
	}
	return nil
}

// Total returns quantity*price.
func (o Order) Total() decimal.Decimal {
	return o.Price.Mul(decimal.NewFromInt(o.Quantity))
}

// Check applies the cash and share rules to o given the container state and
// the quantity currently held. A BUY that would overflow the held quantity
// is rejected with domain.ErrValidation. It returns the balance delta to apply, which
// is always zero for containers without cash.
func Check(c domain.Container, held int64, o Order) (decimal.Decimal, error) {
	total := o.Total()

	var delta decimal.Decimal
	switch o.Side {
	case domain.SideBuy:
		if held > math.MaxInt64-o.Quantity {
			return decimal.Zero, fmt.Errorf("%w: buying %d %s on top of %d held exceeds the maximum position size",
				domain.ErrValidation, o.Quantity, o.Symbol, held)
		}
		if c.HasCash() && total.GreaterThan(c.Balance) {
			return decimal.Zero, fmt.Errorf("%w: order total %s exceeds balance %s",
				domain.ErrInsufficientFunds, total, c.Balance)
		}
		delta = total.Neg()
	case domain.SideSell:
		if o.Quantity > held {
			return decimal.Zero, fmt.Errorf("%w: selling %d %s but only %d held",
				domain.ErrInsufficientShares, o.Quantity, o.Symbol, held)
		}
		delta = total
	default:
		return decimal.Zero, fmt.Errorf("%w: unrecognized side %q", domain.ErrValidation, o.Side)
	}

	if !c.HasCash() {
		return decimal.Zero, nil
	}
	return delta, nil
}

// SymbolResolver returns the stored record for a symbol, creating it from an
// external quote on first reference. It fails with domain.ErrInvalidSymbol
// when the symbol cannot be materialized.
type SymbolResolver interface {
	Resolve(ctx context.Context, symbol string) (domain.Stock, error)
}

// Result is the outcome of an accepted trade.
type Result struct {
	Transaction domain.Transaction
	// Balance is the cash balance after the trade, nil for containers
	// without cash.
	Balance *decimal.Decimal
}

// Validator runs proposed trades through validation and commits accepted
// ones to the ledger.
type Validator struct {
	ledger  domain.Ledger
	symbols SymbolResolver
	now     func() time.Time
}

// NewValidator creates a Validator over the given ledger and symbol resolver.
func NewValidator(l domain.Ledger, symbols SymbolResolver) *Validator {
	return &Validator{
		ledger:  l,
		symbols: symbols,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Submit validates o on behalf of userID and, when accepted, appends it to
// the container's ledger together with the balance change. Rejections carry
// one of the domain sentinel errors and leave no trace in the ledger.
func (v *Validator) Submit(ctx context.Context, userID int64, ref domain.ContainerRef, o Order) (Result, error) {
	o.Symbol = domain.NormalizeSymbol(o.Symbol)
	if err := o.Validate(); err != nil {
		return Result{}, err
	}

	c, err := v.ledger.GetContainer(ctx, ref)
	if err != nil {
		return Result{}, fmt.Errorf("ledger: resolve %s: %w", ref, err)
	}
	if c.UserID != userID {
		return Result{}, fmt.Errorf("ledger: %s: %w", ref, domain.ErrForbidden)
	}

	// Resolved outside the atomic unit so the external lookup never holds
	// the container lock.
	stock, err := v.symbols.Resolve(ctx, o.Symbol)
	if err != nil {
		return Result{}, fmt.Errorf("ledger: resolve symbol %s: %w", o.Symbol, err)
	}
	o.Symbol = stock.Symbol

	var res Result
	err = v.ledger.WithinContainer(ctx, ref, func(ctx context.Context, tx domain.LedgerTx) error {
		current := tx.Container()

		txs, err := tx.Transactions(ctx, o.Symbol)
		if err != nil {
			return fmt.Errorf("query transactions: %w", err)
		}
		held := HeldQuantity(o.Symbol, txs)

		delta, err := Check(current, held, o)
		if err != nil {
			return err
		}

		appended, err := tx.Append(ctx, domain.Transaction{
			Container:   ref,
			Symbol:      o.Symbol,
			Side:        o.Side,
			Quantity:    o.Quantity,
			Price:       o.Price,
			TotalAmount: o.Total(),
			ExecutedAt:  v.now(),
		})
		if err != nil {
			return fmt.Errorf("append transaction: %w", err)
		}
		res.Transaction = appended

		if current.HasCash() {
			balance, err := tx.UpdateBalance(ctx, delta)
			if err != nil {
				return fmt.Errorf("update balance: %w", err)
			}
			res.Balance = &balance
		}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("ledger: submit %s %d %s to %s: %w", o.Side, o.Quantity, o.Symbol, ref, err)
	}
	return res, nil
}
