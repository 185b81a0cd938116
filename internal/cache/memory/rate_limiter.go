package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

// RateLimiter is a sliding-window limiter over request timestamps kept in
// process memory.
type RateLimiter struct {
	now func() time.Time

	mu   sync.Mutex
	hits map[string][]time.Time
}

// NewRateLimiter creates an empty RateLimiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{now: time.Now, hits: make(map[string][]time.Time)}
}

// Allow reports whether another request for key fits within limit requests
// per window, counting it if so.
func (rl *RateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := rl.now()
	cutoff := now.Add(-window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	kept := rl.hits[key][:0]
	for _, ts := range rl.hits[key] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= limit {
		rl.hits[key] = kept
		return false, nil
	}
	rl.hits[key] = append(kept, now)
	return true, nil
}

var _ domain.RateLimiter = (*RateLimiter)(nil)
