package memory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

// Ledger implements domain.Ledger with one mutex per container. Writes made
// inside an atomic unit are buffered and only published on success.
type Ledger struct {
	db *DB
}

// NewLedger creates a Ledger backed by db.
func NewLedger(db *DB) *Ledger {
	return &Ledger{db: db}
}

// GetContainer returns the current state of the container.
func (l *Ledger) GetContainer(_ context.Context, ref domain.ContainerRef) (domain.Container, error) {
	l.db.mu.RLock()
	defer l.db.mu.RUnlock()
	return l.container(ref)
}

// container must be called with mu held.
func (l *Ledger) container(ref domain.ContainerRef) (domain.Container, error) {
	switch ref.Kind {
	case domain.ContainerPortfolio:
		if p, ok := l.db.portfolios[ref.ID]; ok {
			return domain.Container{Ref: ref, UserID: p.UserID}, nil
		}
	case domain.ContainerSimulation:
		if a, ok := l.db.accounts[ref.ID]; ok {
			return domain.Container{Ref: ref, UserID: a.UserID, Balance: a.CurrentBalance}, nil
		}
	default:
		return domain.Container{}, fmt.Errorf("memory: container kind %q: %w", ref.Kind, domain.ErrValidation)
	}
	return domain.Container{}, fmt.Errorf("memory: container %s: %w", ref, domain.ErrNotFound)
}

// WithinContainer runs fn while holding the container's lock.
func (l *Ledger) WithinContainer(ctx context.Context, ref domain.ContainerRef, fn func(ctx context.Context, tx domain.LedgerTx) error) error {
	lock := l.db.containerLock(ref)
	lock.Lock()
	defer lock.Unlock()

	c, err := l.GetContainer(ctx, ref)
	if err != nil {
		return err
	}

	tx := &ledgerTx{db: l.db, container: c}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	l.db.mu.Lock()
	defer l.db.mu.Unlock()
	l.db.txs[ref] = append(l.db.txs[ref], tx.pending...)
	if tx.balanceChanged {
		a := l.db.accounts[ref.ID]
		a.CurrentBalance = tx.container.Balance
		l.db.accounts[ref.ID] = a
	}
	return nil
}

type ledgerTx struct {
	db             *DB
	container      domain.Container
	pending        []domain.Transaction
	balanceChanged bool
}

func (t *ledgerTx) Container() domain.Container {
	return t.container
}

func (t *ledgerTx) Transactions(_ context.Context, symbol string) ([]domain.Transaction, error) {
	t.db.mu.RLock()
	committed := filterSymbol(t.db.txs[t.container.Ref], symbol)
	t.db.mu.RUnlock()
	return append(committed, filterSymbol(t.pending, symbol)...), nil
}

func (t *ledgerTx) Append(_ context.Context, tx domain.Transaction) (domain.Transaction, error) {
	t.db.mu.Lock()
	tx.ID = t.db.nextID("transactions")
	t.db.mu.Unlock()
	tx.Container = t.container.Ref
	t.pending = append(t.pending, tx)
	return tx, nil
}

func (t *ledgerTx) UpdateBalance(_ context.Context, delta decimal.Decimal) (decimal.Decimal, error) {
	if !t.container.HasCash() {
		return decimal.Zero, fmt.Errorf("memory: %s has no cash balance: %w", t.container.Ref, domain.ErrValidation)
	}
	t.container.Balance = t.container.Balance.Add(delta)
	t.balanceChanged = true
	return t.container.Balance, nil
}

var _ domain.Ledger = (*Ledger)(nil)
