package ledger

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

func buy(sym string, q int64, p string) domain.Transaction {
	return domain.Transaction{Symbol: sym, Side: domain.SideBuy, Quantity: q, Price: decimal.RequireFromString(p)}
}

func sell(sym string, q int64, p string) domain.Transaction {
	return domain.Transaction{Symbol: sym, Side: domain.SideSell, Quantity: q, Price: decimal.RequireFromString(p)}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, label ...string) {
	t.Helper()
	assert.Truef(t, decimal.RequireFromString(want).Equal(got),
		"%s: want %s, got %s", strings.Join(label, " "), want, got)
}

func TestFold_AverageCostScenarios(t *testing.T) {
	tests := []struct {
		name      string
		txs       []domain.Transaction
		wantQty   int64
		wantAvg   string
		wantTotal string
	}{
		{
			name:      "first buy",
			txs:       []domain.Transaction{buy("AAPL", 10, "100")},
			wantQty:   10,
			wantAvg:   "100",
			wantTotal: "1000",
		},
		{
			name:      "second buy averages",
			txs:       []domain.Transaction{buy("AAPL", 10, "100"), buy("AAPL", 10, "120")},
			wantQty:   20,
			wantAvg:   "110",
			wantTotal: "2200",
		},
		{
			name:      "sell removes cost at average and keeps average",
			txs:       []domain.Transaction{buy("AAPL", 10, "100"), buy("AAPL", 10, "120"), sell("AAPL", 5, "150")},
			wantQty:   15,
			wantAvg:   "110",
			wantTotal: "1650",
		},
		{
			name:      "average is stale until the next buy",
			txs:       []domain.Transaction{buy("AAPL", 10, "100"), sell("AAPL", 5, "200"), buy("AAPL", 5, "130")},
			wantQty:   10,
			wantAvg:   "115",
			wantTotal: "1150",
		},
		{
			name:      "selling out clamps cost to zero",
			txs:       []domain.Transaction{buy("AAPL", 3, "33.33"), sell("AAPL", 3, "40")},
			wantQty:   0,
			wantAvg:   "33.33",
			wantTotal: "0",
		},
		{
			name:      "re-entry after close starts fresh",
			txs:       []domain.Transaction{buy("AAPL", 3, "10"), sell("AAPL", 3, "12"), buy("AAPL", 2, "50")},
			wantQty:   2,
			wantAvg:   "50",
			wantTotal: "100",
		},
		{
			name:      "other symbols are ignored",
			txs:       []domain.Transaction{buy("MSFT", 7, "300"), buy("AAPL", 1, "100")},
			wantQty:   1,
			wantAvg:   "100",
			wantTotal: "100",
		},
		{
			name:      "empty history",
			txs:       nil,
			wantQty:   0,
			wantAvg:   "0",
			wantTotal: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := Fold("AAPL", tt.txs)
			assert.Equal(t, "AAPL", pos.Symbol)
			assert.Equal(t, tt.wantQty, pos.Quantity)
			assertDecimal(t, tt.wantAvg, pos.AverageCost, "average cost")
			assertDecimal(t, tt.wantTotal, pos.TotalCost, "total cost")
		})
	}
}

func TestFold_ReplayIsDeterministic(t *testing.T) {
	txs := []domain.Transaction{
		buy("AAPL", 3, "101.17"),
		buy("AAPL", 7, "99.03"),
		sell("AAPL", 4, "120"),
		buy("AAPL", 11, "87.5"),
		sell("AAPL", 2, "90"),
	}

	first := Fold("AAPL", txs)
	second := Fold("AAPL", txs)

	assert.Equal(t, first.Quantity, second.Quantity)
	assert.True(t, first.AverageCost.Equal(second.AverageCost))
	assert.True(t, first.TotalCost.Equal(second.TotalCost))
}

func TestPositions_ExcludesClosedAndKeepsFirstAppearanceOrder(t *testing.T) {
	txs := []domain.Transaction{
		buy("TSLA", 2, "200"),
		buy("AAPL", 10, "100"),
		buy("MSFT", 1, "300"),
		sell("TSLA", 2, "250"),
		buy("AAPL", 10, "120"),
	}

	positions := Positions(txs)
	require.Len(t, positions, 2)
	assert.Equal(t, "AAPL", positions[0].Symbol)
	assert.Equal(t, int64(20), positions[0].Quantity)
	assertDecimal(t, "2200", positions[0].TotalCost)
	assert.Equal(t, "MSFT", positions[1].Symbol)
}

func TestHeldQuantity(t *testing.T) {
	txs := []domain.Transaction{buy("AAPL", 10, "1"), sell("AAPL", 4, "1"), buy("MSFT", 5, "1")}
	assert.Equal(t, int64(6), HeldQuantity("AAPL", txs))
	assert.Equal(t, int64(5), HeldQuantity("MSFT", txs))
	assert.Equal(t, int64(0), HeldQuantity("NVDA", txs))
}
