package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

// UserStore implements domain.UserStore.
type UserStore struct {
	db *DB
}

// NewUserStore creates a UserStore backed by db.
func NewUserStore(db *DB) *UserStore {
	return &UserStore{db: db}
}

// Create inserts u and assigns its id.
func (s *UserStore) Create(_ context.Context, u domain.User) (domain.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, existing := range s.db.users {
		if strings.EqualFold(existing.Email, u.Email) || existing.Username == u.Username {
			return domain.User{}, fmt.Errorf("memory: create user %s: %w", u.Username, domain.ErrAlreadyExists)
		}
	}
	u.ID = s.db.nextID("users")
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.db.now()
	}
	s.db.users[u.ID] = u
	return u, nil
}

// GetByID returns the user with the given id.
func (s *UserStore) GetByID(_ context.Context, id int64) (domain.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	u, ok := s.db.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("memory: get user %d: %w", id, domain.ErrNotFound)
	}
	return u, nil
}

// GetByUsername returns the user with the given username.
func (s *UserStore) GetByUsername(_ context.Context, username string) (domain.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	for _, u := range s.db.users {
		if u.Username == username {
			return u, nil
		}
	}
	return domain.User{}, fmt.Errorf("memory: get user %s: %w", username, domain.ErrNotFound)
}

var _ domain.UserStore = (*UserStore)(nil)
