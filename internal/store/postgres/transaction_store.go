package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

const txCols = `id, symbol, side, quantity, price, total_amount, executed_at`

// containerTables names the container table, its transaction table and the
// transaction column referencing the container.
type containerTables struct {
	container    string
	transactions string
	fk           string
}

func tablesFor(kind domain.ContainerKind) (containerTables, error) {
	switch kind {
	case domain.ContainerPortfolio:
		return containerTables{"portfolios", "portfolio_transactions", "portfolio_id"}, nil
	case domain.ContainerSimulation:
		return containerTables{"simulation_accounts", "simulation_transactions", "account_id"}, nil
	default:
		return containerTables{}, fmt.Errorf("postgres: container kind %q: %w", kind, domain.ErrValidation)
	}
}

func scanTransaction(row pgx.Row, ref domain.ContainerRef) (domain.Transaction, error) {
	var (
		t    domain.Transaction
		side string
	)
	if err := row.Scan(&t.ID, &t.Symbol, &side, &t.Quantity, &t.Price, &t.TotalAmount, &t.ExecutedAt); err != nil {
		return domain.Transaction{}, err
	}
	t.Side = domain.Side(side)
	t.Container = ref
	return t, nil
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryTransactions(ctx context.Context, q querier, ref domain.ContainerRef, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query transactions %s: %w", ref, err)
	}
	defer rows.Close()

	txs := []domain.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows, ref)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: query transactions %s rows: %w", ref, err)
	}
	return txs, nil
}

// chronologicalQuery selects a container's transactions in ledger order,
// optionally restricted to one symbol. Appends to a container are serialized
// by its row lock, so id order is commit order regardless of which node
// wrote the row.
func chronologicalQuery(tables containerTables, id int64, symbol string) (string, []any) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`, txCols, tables.transactions, tables.fk)
	args := []any{id}
	if symbol != "" {
		query += ` AND symbol = $2`
		args = append(args, symbol)
	}
	return query + ` ORDER BY id`, args
}

func chronological(ctx context.Context, q querier, ref domain.ContainerRef, symbol string) ([]domain.Transaction, error) {
	tables, err := tablesFor(ref.Kind)
	if err != nil {
		return nil, err
	}
	query, args := chronologicalQuery(tables, ref.ID, symbol)
	return queryTransactions(ctx, q, ref, query, args...)
}

// TransactionStore implements domain.TransactionStore using PostgreSQL.
type TransactionStore struct {
	pool *pgxpool.Pool
}

// NewTransactionStore creates a TransactionStore backed by the given pool.
func NewTransactionStore(pool *pgxpool.Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// Query returns the container's transactions oldest first.
func (s *TransactionStore) Query(ctx context.Context, ref domain.ContainerRef, symbol string) ([]domain.Transaction, error) {
	return chronological(ctx, s.pool, ref, symbol)
}

// ListRecent returns the container's transactions newest first.
func (s *TransactionStore) ListRecent(ctx context.Context, ref domain.ContainerRef, opts domain.ListOpts) ([]domain.Transaction, error) {
	tables, err := tablesFor(ref.Kind)
	if err != nil {
		return nil, err
	}
	query, args := paging(
		fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY id DESC`, txCols, tables.transactions, tables.fk),
		[]any{ref.ID}, 2, opts)
	return queryTransactions(ctx, s.pool, ref, query, args...)
}

var _ domain.TransactionStore = (*TransactionStore)(nil)
