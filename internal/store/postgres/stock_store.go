package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

const stockCols = `id, symbol, name, last_price, change_percent, updated_at`

// StockStore implements domain.StockStore using PostgreSQL.
type StockStore struct {
	pool *pgxpool.Pool
}

// NewStockStore creates a StockStore backed by the given pool.
func NewStockStore(pool *pgxpool.Pool) *StockStore {
	return &StockStore{pool: pool}
}

func scanStock(row pgx.Row) (domain.Stock, error) {
	var st domain.Stock
	err := row.Scan(&st.ID, &st.Symbol, &st.Name, &st.LastPrice, &st.ChangePercent, &st.UpdatedAt)
	return st, err
}

// GetBySymbol returns the stock with the given symbol.
func (s *StockStore) GetBySymbol(ctx context.Context, symbol string) (domain.Stock, error) {
	symbol = domain.NormalizeSymbol(symbol)
	st, err := scanStock(s.pool.QueryRow(ctx, `SELECT `+stockCols+` FROM stocks WHERE symbol = $1`, symbol))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Stock{}, domain.ErrNotFound
		}
		return domain.Stock{}, fmt.Errorf("postgres: get stock %s: %w", symbol, err)
	}
	return st, nil
}

// Upsert inserts st or refreshes the price of an existing symbol. An empty
// name never overwrites a stored one.
func (s *StockStore) Upsert(ctx context.Context, st domain.Stock) (domain.Stock, error) {
	const query = `
		INSERT INTO stocks (symbol, name, last_price, change_percent, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (symbol) DO UPDATE SET
			name = COALESCE(NULLIF(EXCLUDED.name, ''), stocks.name),
			last_price = EXCLUDED.last_price,
			change_percent = EXCLUDED.change_percent,
			updated_at = NOW()
		RETURNING ` + stockCols

	symbol := domain.NormalizeSymbol(st.Symbol)
	out, err := scanStock(s.pool.QueryRow(ctx, query, symbol, st.Name, st.LastPrice, st.ChangePercent))
	if err != nil {
		return domain.Stock{}, fmt.Errorf("postgres: upsert stock %s: %w", symbol, err)
	}
	return out, nil
}

// List returns stocks ordered by symbol.
func (s *StockStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Stock, error) {
	query, args := paging(`SELECT `+stockCols+` FROM stocks ORDER BY symbol`, nil, 1, opts)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list stocks: %w", err)
	}
	defer rows.Close()

	stocks := []domain.Stock{}
	for rows.Next() {
		st, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan stock: %w", err)
		}
		stocks = append(stocks, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list stocks rows: %w", err)
	}
	return stocks, nil
}

var _ domain.StockStore = (*StockStore)(nil)
