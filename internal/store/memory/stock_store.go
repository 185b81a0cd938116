package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

// StockStore implements domain.StockStore.
type StockStore struct {
	db *DB
}

// NewStockStore creates a StockStore backed by db.
func NewStockStore(db *DB) *StockStore {
	return &StockStore{db: db}
}

// GetBySymbol returns the stock with the given symbol.
func (s *StockStore) GetBySymbol(_ context.Context, symbol string) (domain.Stock, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	st, ok := s.db.stocks[domain.NormalizeSymbol(symbol)]
	if !ok {
		return domain.Stock{}, fmt.Errorf("memory: get stock %s: %w", symbol, domain.ErrNotFound)
	}
	return st, nil
}

// Upsert inserts st or refreshes the name and price of an existing symbol.
// An empty name never overwrites a known one.
func (s *StockStore) Upsert(_ context.Context, st domain.Stock) (domain.Stock, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	st.Symbol = domain.NormalizeSymbol(st.Symbol)
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = s.db.now()
	}
	if existing, ok := s.db.stocks[st.Symbol]; ok {
		st.ID = existing.ID
		if st.Name == "" {
			st.Name = existing.Name
		}
	} else {
		st.ID = s.db.nextID("stocks")
	}
	s.db.stocks[st.Symbol] = st
	return st, nil
}

// List returns stocks ordered by symbol.
func (s *StockStore) List(_ context.Context, opts domain.ListOpts) ([]domain.Stock, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	out := make([]domain.Stock, 0, len(s.db.stocks))
	for _, st := range s.db.stocks {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return paginate(out, opts), nil
}

var _ domain.StockStore = (*StockStore)(nil)
