package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

const accountCols = `id, user_id, name, initial_balance, current_balance, created_at`

// SimulationStore implements domain.SimulationStore using PostgreSQL.
type SimulationStore struct {
	pool *pgxpool.Pool
}

// NewSimulationStore creates a SimulationStore backed by the given pool.
func NewSimulationStore(pool *pgxpool.Pool) *SimulationStore {
	return &SimulationStore{pool: pool}
}

func scanAccount(row pgx.Row) (domain.SimulationAccount, error) {
	var a domain.SimulationAccount
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.InitialBalance, &a.CurrentBalance, &a.CreatedAt)
	return a, err
}

// Create inserts a. A duplicate name for the user yields
// domain.ErrAlreadyExists.
func (s *SimulationStore) Create(ctx context.Context, a domain.SimulationAccount) (domain.SimulationAccount, error) {
	const query = `INSERT INTO simulation_accounts (user_id, name, initial_balance, current_balance)
		VALUES ($1, $2, $3, $4) RETURNING ` + accountCols

	created, err := scanAccount(s.pool.QueryRow(ctx, query, a.UserID, a.Name, a.InitialBalance, a.CurrentBalance))
	if err != nil {
		return domain.SimulationAccount{}, fmt.Errorf("postgres: create account %q: %w", a.Name, mapWriteErr(err))
	}
	return created, nil
}

// Get returns the account with the given id.
func (s *SimulationStore) Get(ctx context.Context, id int64) (domain.SimulationAccount, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx, `SELECT `+accountCols+` FROM simulation_accounts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SimulationAccount{}, domain.ErrNotFound
		}
		return domain.SimulationAccount{}, fmt.Errorf("postgres: get account %d: %w", id, err)
	}
	return a, nil
}

// GetByName returns the user's account with the given name.
func (s *SimulationStore) GetByName(ctx context.Context, userID int64, name string) (domain.SimulationAccount, error) {
	const query = `SELECT ` + accountCols + ` FROM simulation_accounts WHERE user_id = $1 AND name = $2`
	a, err := scanAccount(s.pool.QueryRow(ctx, query, userID, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SimulationAccount{}, domain.ErrNotFound
		}
		return domain.SimulationAccount{}, fmt.Errorf("postgres: get account %q: %w", name, err)
	}
	return a, nil
}

// ListByUser returns the user's accounts ordered by id.
func (s *SimulationStore) ListByUser(ctx context.Context, userID int64, opts domain.ListOpts) ([]domain.SimulationAccount, error) {
	query, args := paging(`SELECT `+accountCols+` FROM simulation_accounts WHERE user_id = $1 ORDER BY id`,
		[]any{userID}, 2, opts)
	return s.list(ctx, query, args)
}

// ListAll returns every account ordered by id.
func (s *SimulationStore) ListAll(ctx context.Context, opts domain.ListOpts) ([]domain.SimulationAccount, error) {
	query, args := paging(`SELECT `+accountCols+` FROM simulation_accounts ORDER BY id`, nil, 1, opts)
	return s.list(ctx, query, args)
}

func (s *SimulationStore) list(ctx context.Context, query string, args []any) ([]domain.SimulationAccount, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list accounts: %w", err)
	}
	defer rows.Close()

	accounts := []domain.SimulationAccount{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list accounts rows: %w", err)
	}
	return accounts, nil
}

// Delete removes the account and its transactions in one transaction.
func (s *SimulationStore) Delete(ctx context.Context, id int64) error {
	return deleteContainer(ctx, s.pool, domain.ContainerRef{Kind: domain.ContainerSimulation, ID: id})
}

var _ domain.SimulationStore = (*SimulationStore)(nil)
