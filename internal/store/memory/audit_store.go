package memory

import (
	"context"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

// AuditStore implements domain.AuditStore.
type AuditStore struct {
	db *DB
}

// NewAuditStore creates an AuditStore backed by db.
func NewAuditStore(db *DB) *AuditStore {
	return &AuditStore{db: db}
}

// Log appends an entry.
func (s *AuditStore) Log(_ context.Context, event string, detail map[string]any) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.audit = append(s.db.audit, domain.AuditEntry{
		ID:        s.db.nextID("audit_log"),
		Event:     event,
		Detail:    detail,
		CreatedAt: s.db.now(),
	})
	return nil
}

// List returns entries newest first.
func (s *AuditStore) List(_ context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	s.db.mu.RLock()
	out := make([]domain.AuditEntry, len(s.db.audit))
	for i, e := range s.db.audit {
		out[len(s.db.audit)-1-i] = e
	}
	s.db.mu.RUnlock()
	return paginate(out, opts), nil
}

var _ domain.AuditStore = (*AuditStore)(nil)
