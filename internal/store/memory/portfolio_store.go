package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

// PortfolioStore implements domain.PortfolioStore.
type PortfolioStore struct {
	db *DB
}

// NewPortfolioStore creates a PortfolioStore backed by db.
func NewPortfolioStore(db *DB) *PortfolioStore {
	return &PortfolioStore{db: db}
}

// Create inserts p. The name must be unique for the user.
func (s *PortfolioStore) Create(_ context.Context, p domain.Portfolio) (domain.Portfolio, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if s.nameTaken(p.UserID, p.Name, 0) {
		return domain.Portfolio{}, fmt.Errorf("memory: create portfolio %q: %w", p.Name, domain.ErrAlreadyExists)
	}
	p.ID = s.db.nextID("portfolios")
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.db.now()
	}
	s.db.portfolios[p.ID] = p
	return p, nil
}

// Get returns the portfolio with the given id.
func (s *PortfolioStore) Get(_ context.Context, id int64) (domain.Portfolio, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	p, ok := s.db.portfolios[id]
	if !ok {
		return domain.Portfolio{}, fmt.Errorf("memory: get portfolio %d: %w", id, domain.ErrNotFound)
	}
	return p, nil
}

// GetByName returns the user's portfolio with the given name.
func (s *PortfolioStore) GetByName(_ context.Context, userID int64, name string) (domain.Portfolio, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	for _, p := range s.db.portfolios {
		if p.UserID == userID && p.Name == name {
			return p, nil
		}
	}
	return domain.Portfolio{}, fmt.Errorf("memory: get portfolio %q: %w", name, domain.ErrNotFound)
}

// ListByUser returns the user's portfolios ordered by id.
func (s *PortfolioStore) ListByUser(_ context.Context, userID int64, opts domain.ListOpts) ([]domain.Portfolio, error) {
	return s.list(func(p domain.Portfolio) bool { return p.UserID == userID }, opts), nil
}

// ListAll returns every portfolio ordered by id.
func (s *PortfolioStore) ListAll(_ context.Context, opts domain.ListOpts) ([]domain.Portfolio, error) {
	return s.list(func(domain.Portfolio) bool { return true }, opts), nil
}

func (s *PortfolioStore) list(keep func(domain.Portfolio) bool, opts domain.ListOpts) []domain.Portfolio {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var out []domain.Portfolio
	for _, p := range s.db.portfolios {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, opts)
}

// Update replaces the name and description of an existing portfolio.
func (s *PortfolioStore) Update(_ context.Context, p domain.Portfolio) (domain.Portfolio, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	existing, ok := s.db.portfolios[p.ID]
	if !ok {
		return domain.Portfolio{}, fmt.Errorf("memory: update portfolio %d: %w", p.ID, domain.ErrNotFound)
	}
	if s.nameTaken(existing.UserID, p.Name, p.ID) {
		return domain.Portfolio{}, fmt.Errorf("memory: update portfolio %q: %w", p.Name, domain.ErrAlreadyExists)
	}
	existing.Name = p.Name
	existing.Description = p.Description
	s.db.portfolios[p.ID] = existing
	return existing, nil
}

// Delete removes the portfolio and its transactions.
func (s *PortfolioStore) Delete(_ context.Context, id int64) error {
	ref := domain.ContainerRef{Kind: domain.ContainerPortfolio, ID: id}
	lock := s.db.containerLock(ref)
	lock.Lock()
	defer lock.Unlock()

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.portfolios[id]; !ok {
		return fmt.Errorf("memory: delete portfolio %d: %w", id, domain.ErrNotFound)
	}
	delete(s.db.txs, ref)
	delete(s.db.portfolios, id)
	return nil
}

// nameTaken must be called with mu held.
func (s *PortfolioStore) nameTaken(userID int64, name string, exceptID int64) bool {
	for _, p := range s.db.portfolios {
		if p.UserID == userID && p.Name == name && p.ID != exceptID {
			return true
		}
	}
	return false
}

var _ domain.PortfolioStore = (*PortfolioStore)(nil)
