// Package memory implements the domain store interfaces in process memory.
// It backs tests and single-node development runs; nothing survives a
// restart.
package memory

import (
	"sync"
	"time"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

// DB holds every table. Stores created from the same DB see each other's
// writes.
type DB struct {
	mu         sync.RWMutex
	seq        map[string]int64
	users      map[int64]domain.User
	stocks     map[string]domain.Stock
	portfolios map[int64]domain.Portfolio
	accounts   map[int64]domain.SimulationAccount
	txs        map[domain.ContainerRef][]domain.Transaction
	audit      []domain.AuditEntry

	lockMu sync.Mutex
	locks  map[domain.ContainerRef]*sync.Mutex

	now func() time.Time
}

// New returns an empty DB.
func New() *DB {
	return &DB{
		seq:        make(map[string]int64),
		users:      make(map[int64]domain.User),
		stocks:     make(map[string]domain.Stock),
		portfolios: make(map[int64]domain.Portfolio),
		accounts:   make(map[int64]domain.SimulationAccount),
		txs:        make(map[domain.ContainerRef][]domain.Transaction),
		locks:      make(map[domain.ContainerRef]*sync.Mutex),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// nextID must be called with mu held.
func (db *DB) nextID(table string) int64 {
	db.seq[table]++
	return db.seq[table]
}

// containerLock returns the mutex serializing atomic units on ref.
func (db *DB) containerLock(ref domain.ContainerRef) *sync.Mutex {
	db.lockMu.Lock()
	defer db.lockMu.Unlock()
	m, ok := db.locks[ref]
	if !ok {
		m = &sync.Mutex{}
		db.locks[ref] = m
	}
	return m
}

func paginate[T any](items []T, opts domain.ListOpts) []T {
	if opts.Offset >= len(items) {
		return []T{}
	}
	items = items[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(items) {
		items = items[:opts.Limit]
	}
	return items
}
