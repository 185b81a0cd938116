package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

const portfolioCols = `id, user_id, name, description, created_at`

// PortfolioStore implements domain.PortfolioStore using PostgreSQL.
type PortfolioStore struct {
	pool *pgxpool.Pool
}

// NewPortfolioStore creates a PortfolioStore backed by the given pool.
func NewPortfolioStore(pool *pgxpool.Pool) *PortfolioStore {
	return &PortfolioStore{pool: pool}
}

func scanPortfolio(row pgx.Row) (domain.Portfolio, error) {
	var p domain.Portfolio
	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.CreatedAt)
	return p, err
}

// Create inserts p. A duplicate name for the user yields
// domain.ErrAlreadyExists.
func (s *PortfolioStore) Create(ctx context.Context, p domain.Portfolio) (domain.Portfolio, error) {
	const query = `INSERT INTO portfolios (user_id, name, description)
		VALUES ($1, $2, $3) RETURNING ` + portfolioCols

	created, err := scanPortfolio(s.pool.QueryRow(ctx, query, p.UserID, p.Name, p.Description))
	if err != nil {
		return domain.Portfolio{}, fmt.Errorf("postgres: create portfolio %q: %w", p.Name, mapWriteErr(err))
	}
	return created, nil
}

// Get returns the portfolio with the given id.
func (s *PortfolioStore) Get(ctx context.Context, id int64) (domain.Portfolio, error) {
	p, err := scanPortfolio(s.pool.QueryRow(ctx, `SELECT `+portfolioCols+` FROM portfolios WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Portfolio{}, domain.ErrNotFound
		}
		return domain.Portfolio{}, fmt.Errorf("postgres: get portfolio %d: %w", id, err)
	}
	return p, nil
}

// GetByName returns the user's portfolio with the given name.
func (s *PortfolioStore) GetByName(ctx context.Context, userID int64, name string) (domain.Portfolio, error) {
	const query = `SELECT ` + portfolioCols + ` FROM portfolios WHERE user_id = $1 AND name = $2`
	p, err := scanPortfolio(s.pool.QueryRow(ctx, query, userID, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Portfolio{}, domain.ErrNotFound
		}
		return domain.Portfolio{}, fmt.Errorf("postgres: get portfolio %q: %w", name, err)
	}
	return p, nil
}

// ListByUser returns the user's portfolios ordered by id.
func (s *PortfolioStore) ListByUser(ctx context.Context, userID int64, opts domain.ListOpts) ([]domain.Portfolio, error) {
	query, args := paging(`SELECT `+portfolioCols+` FROM portfolios WHERE user_id = $1 ORDER BY id`,
		[]any{userID}, 2, opts)
	return s.list(ctx, query, args)
}

// ListAll returns every portfolio ordered by id.
func (s *PortfolioStore) ListAll(ctx context.Context, opts domain.ListOpts) ([]domain.Portfolio, error) {
	query, args := paging(`SELECT `+portfolioCols+` FROM portfolios ORDER BY id`, nil, 1, opts)
	return s.list(ctx, query, args)
}

func (s *PortfolioStore) list(ctx context.Context, query string, args []any) ([]domain.Portfolio, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list portfolios: %w", err)
	}
	defer rows.Close()

	portfolios := []domain.Portfolio{}
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan portfolio: %w", err)
		}
		portfolios = append(portfolios, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list portfolios rows: %w", err)
	}
	return portfolios, nil
}

// Update replaces the name and description of an existing portfolio.
func (s *PortfolioStore) Update(ctx context.Context, p domain.Portfolio) (domain.Portfolio, error) {
	const query = `UPDATE portfolios SET name = $2, description = $3 WHERE id = $1 RETURNING ` + portfolioCols

	updated, err := scanPortfolio(s.pool.QueryRow(ctx, query, p.ID, p.Name, p.Description))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Portfolio{}, domain.ErrNotFound
		}
		return domain.Portfolio{}, fmt.Errorf("postgres: update portfolio %d: %w", p.ID, mapWriteErr(err))
	}
	return updated, nil
}

// Delete removes the portfolio and its transactions in one transaction.
func (s *PortfolioStore) Delete(ctx context.Context, id int64) error {
	return deleteContainer(ctx, s.pool, domain.ContainerRef{Kind: domain.ContainerPortfolio, ID: id})
}

var _ domain.PortfolioStore = (*PortfolioStore)(nil)
