package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Cache is a time-boxed key/value cache. Get returns ErrCacheMiss for
// absent or expired keys and otherwise reports how old the entry is. The
// TTL is fixed when the cache is constructed; entries are never evicted
// before it elapses.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, age time.Duration, err error)
	Put(ctx context.Context, key string, value []byte) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// EventBus is fire-and-forget pub/sub for application events.
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// TradeEvent is published on the trades channel after a trade commits.
type TradeEvent struct {
	UserID      int64            `json:"user_id"`
	Transaction Transaction      `json:"transaction"`
	Balance     *decimal.Decimal `json:"balance,omitempty"`
}

// TradesChannel carries TradeEvent payloads.
const TradesChannel = "trades"
