package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

// Ledger implements domain.Ledger. Each atomic unit is a database
// transaction that starts by locking the container row, so units on the
// same container queue behind each other and units on other containers do
// not block.
type Ledger struct {
	pool *pgxpool.Pool
}

// NewLedger creates a Ledger backed by the given pool.
func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func loadContainer(ctx context.Context, q rowQuerier, ref domain.ContainerRef, forUpdate bool) (domain.Container, error) {
	tables, err := tablesFor(ref.Kind)
	if err != nil {
		return domain.Container{}, err
	}

	cols := "user_id, 0::numeric"
	if ref.Kind == domain.ContainerSimulation {
		cols = "user_id, current_balance"
	}
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, cols, tables.container)
	if forUpdate {
		query += ` FOR UPDATE`
	}

	c := domain.Container{Ref: ref}
	if err := q.QueryRow(ctx, query, ref.ID).Scan(&c.UserID, &c.Balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Container{}, fmt.Errorf("postgres: container %s: %w", ref, domain.ErrNotFound)
		}
		return domain.Container{}, fmt.Errorf("postgres: load container %s: %w", ref, err)
	}
	return c, nil
}

// GetContainer returns the current state of the container.
func (l *Ledger) GetContainer(ctx context.Context, ref domain.ContainerRef) (domain.Container, error) {
	return loadContainer(ctx, l.pool, ref, false)
}

// WithinContainer runs fn inside a transaction holding the container's row
// lock. The transaction commits only if fn returns nil.
func (l *Ledger) WithinContainer(ctx context.Context, ref domain.ContainerRef, fn func(ctx context.Context, tx domain.LedgerTx) error) error {
	tables, err := tablesFor(ref.Kind)
	if err != nil {
		return err
	}

	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("postgres: begin ledger tx %s: %w", ref, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	c, err := loadContainer(ctx, tx, ref, true)
	if err != nil {
		return err
	}

	if err := fn(ctx, &ledgerTx{tx: tx, tables: tables, container: c}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit ledger tx %s: %w", ref, err)
	}
	return nil
}

type ledgerTx struct {
	tx        pgx.Tx
	tables    containerTables
	container domain.Container
}

func (t *ledgerTx) Container() domain.Container {
	return t.container
}

func (t *ledgerTx) Transactions(ctx context.Context, symbol string) ([]domain.Transaction, error) {
	return chronological(ctx, t.tx, t.container.Ref, symbol)
}

// appendQuery inserts a transaction. executed_at is stamped by the database
// so every node shares one clock.
func appendQuery(tables containerTables) string {
	return fmt.Sprintf(`INSERT INTO %s (%s, symbol, side, quantity, price, total_amount)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING %s`, tables.transactions, tables.fk, txCols)
}

func (t *ledgerTx) Append(ctx context.Context, tr domain.Transaction) (domain.Transaction, error) {
	ref := t.container.Ref
	out, err := scanTransaction(t.tx.QueryRow(ctx, appendQuery(t.tables),
		ref.ID, tr.Symbol, string(tr.Side), tr.Quantity, tr.Price, tr.TotalAmount,
	), ref)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("postgres: append transaction %s: %w", ref, err)
	}
	return out, nil
}

func (t *ledgerTx) UpdateBalance(ctx context.Context, delta decimal.Decimal) (decimal.Decimal, error) {
	if !t.container.HasCash() {
		return decimal.Zero, fmt.Errorf("postgres: %s has no cash balance: %w", t.container.Ref, domain.ErrValidation)
	}

	var balance decimal.Decimal
	err := t.tx.QueryRow(ctx,
		`UPDATE simulation_accounts SET current_balance = current_balance + $2 WHERE id = $1 RETURNING current_balance`,
		t.container.Ref.ID, delta,
	).Scan(&balance)
	if err != nil {
		return decimal.Zero, fmt.Errorf("postgres: update balance %s: %w", t.container.Ref, err)
	}
	t.container.Balance = balance
	return balance, nil
}

// deleteContainer removes a container and its transactions in one
// transaction. The container row is locked first so an in-flight trade
// either commits before the delete or fails with ErrNotFound.
func deleteContainer(ctx context.Context, pool *pgxpool.Pool, ref domain.ContainerRef) error {
	tables, err := tablesFor(ref.Kind)
	if err != nil {
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin delete %s: %w", ref, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := loadContainer(ctx, tx, ref, true); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, tables.transactions, tables.fk), ref.ID); err != nil {
		return fmt.Errorf("postgres: delete transactions %s: %w", ref, err)
	}
	tag, err := tx.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, tables.container), ref.ID)
	if err != nil {
		return fmt.Errorf("postgres: delete container %s: %w", ref, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit delete %s: %w", ref, err)
	}
	return nil
}

var _ domain.Ledger = (*Ledger)(nil)
