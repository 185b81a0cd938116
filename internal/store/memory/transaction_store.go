package memory

import (
	"context"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

// TransactionStore implements domain.TransactionStore.
type TransactionStore struct {
	db *DB
}

// NewTransactionStore creates a TransactionStore backed by db.
func NewTransactionStore(db *DB) *TransactionStore {
	return &TransactionStore{db: db}
}

// Query returns the container's transactions in commit order, which is
// ascending id.
func (s *TransactionStore) Query(_ context.Context, ref domain.ContainerRef, symbol string) ([]domain.Transaction, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return filterSymbol(s.db.txs[ref], symbol), nil
}

// ListRecent returns the container's transactions newest first.
func (s *TransactionStore) ListRecent(_ context.Context, ref domain.ContainerRef, opts domain.ListOpts) ([]domain.Transaction, error) {
	s.db.mu.RLock()
	all := s.db.txs[ref]
	out := make([]domain.Transaction, len(all))
	for i, tx := range all {
		out[len(all)-1-i] = tx
	}
	s.db.mu.RUnlock()
	return paginate(out, opts), nil
}

func filterSymbol(txs []domain.Transaction, symbol string) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(txs))
	for _, tx := range txs {
		if symbol == "" || tx.Symbol == symbol {
			out = append(out, tx)
		}
	}
	return out
}

var _ domain.TransactionStore = (*TransactionStore)(nil)
