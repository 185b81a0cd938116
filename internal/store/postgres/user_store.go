package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

const userCols = `id, email, username, hashed_password, is_active, created_at`

// UserStore implements domain.UserStore using PostgreSQL.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a UserStore backed by the given pool.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.IsActive, &u.CreatedAt)
	return u, err
}

// Create inserts u. A taken email or username yields domain.ErrAlreadyExists.
func (s *UserStore) Create(ctx context.Context, u domain.User) (domain.User, error) {
	const query = `INSERT INTO users (email, username, hashed_password, is_active)
		VALUES ($1, $2, $3, $4) RETURNING ` + userCols

	created, err := scanUser(s.pool.QueryRow(ctx, query, u.Email, u.Username, u.PasswordHash, u.IsActive))
	if err != nil {
		return domain.User{}, fmt.Errorf("postgres: create user %s: %w", u.Username, mapWriteErr(err))
	}
	return created, nil
}

// GetByID returns the user with the given id.
func (s *UserStore) GetByID(ctx context.Context, id int64) (domain.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("postgres: get user %d: %w", id, err)
	}
	return u, nil
}

// GetByUsername returns the user with the given username.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE username = $1`, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrNotFound
		}
		return domain.User{}, fmt.Errorf("postgres: get user %s: %w", username, err)
	}
	return u, nil
}

var _ domain.UserStore = (*UserStore)(nil)
