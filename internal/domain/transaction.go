package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a transaction.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide accepts "buy"/"sell" in any case.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToUpper(strings.TrimSpace(s))) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	default:
		return "", fmt.Errorf("%w: unrecognized side %q", ErrValidation, s)
	}
}

// Transaction is an immutable ledger entry. It is only created by the trade
// validator and only removed together with its container.
type Transaction struct {
	ID          int64           `json:"id"`
	Container   ContainerRef    `json:"container"`
	Symbol      string          `json:"symbol"`
	Side        Side            `json:"side"`
	Quantity    int64           `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ExecutedAt  time.Time       `json:"executed_at"`
}
