package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

// SimulationStore implements domain.SimulationStore.
type SimulationStore struct {
	db *DB
}

// NewSimulationStore creates a SimulationStore backed by db.
func NewSimulationStore(db *DB) *SimulationStore {
	return &SimulationStore{db: db}
}

// Create inserts a. The name must be unique for the user.
func (s *SimulationStore) Create(_ context.Context, a domain.SimulationAccount) (domain.SimulationAccount, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, existing := range s.db.accounts {
		if existing.UserID == a.UserID && existing.Name == a.Name {
			return domain.SimulationAccount{}, fmt.Errorf("memory: create account %q: %w", a.Name, domain.ErrAlreadyExists)
		}
	}
	a.ID = s.db.nextID("simulation_accounts")
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.db.now()
	}
	s.db.accounts[a.ID] = a
	return a, nil
}

// Get returns the account with the given id.
func (s *SimulationStore) Get(_ context.Context, id int64) (domain.SimulationAccount, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	a, ok := s.db.accounts[id]
	if !ok {
		return domain.SimulationAccount{}, fmt.Errorf("memory: get account %d: %w", id, domain.ErrNotFound)
	}
	return a, nil
}

// GetByName returns the user's account with the given name.
func (s *SimulationStore) GetByName(_ context.Context, userID int64, name string) (domain.SimulationAccount, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	for _, a := range s.db.accounts {
		if a.UserID == userID && a.Name == name {
			return a, nil
		}
	}
	return domain.SimulationAccount{}, fmt.Errorf("memory: get account %q: %w", name, domain.ErrNotFound)
}

// ListByUser returns the user's accounts ordered by id.
func (s *SimulationStore) ListByUser(_ context.Context, userID int64, opts domain.ListOpts) ([]domain.SimulationAccount, error) {
	return s.list(func(a domain.SimulationAccount) bool { return a.UserID == userID }, opts), nil
}

// ListAll returns every account ordered by id.
func (s *SimulationStore) ListAll(_ context.Context, opts domain.ListOpts) ([]domain.SimulationAccount, error) {
	return s.list(func(domain.SimulationAccount) bool { return true }, opts), nil
}

func (s *SimulationStore) list(keep func(domain.SimulationAccount) bool, opts domain.ListOpts) []domain.SimulationAccount {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	var out []domain.SimulationAccount
	for _, a := range s.db.accounts {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return paginate(out, opts)
}

// Delete removes the account and its transactions.
func (s *SimulationStore) Delete(_ context.Context, id int64) error {
	ref := domain.ContainerRef{Kind: domain.ContainerSimulation, ID: id}
	lock := s.db.containerLock(ref)
	lock.Lock()
	defer lock.Unlock()

	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.accounts[id]; !ok {
		return fmt.Errorf("memory: delete account %d: %w", id, domain.ErrNotFound)
	}
	delete(s.db.txs, ref)
	delete(s.db.accounts, id)
	return nil
}

var _ domain.SimulationStore = (*SimulationStore)(nil)
