package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

// TTLCache implements domain.Cache with one Redis hash per entry.
//
// Key schema:
//
//	{prefix}:cache:{namespace}:{key} - hash {v: payload, ts: unix millis}
//
// The hash expires after the TTL, so Redis does the eviction and Get only
// has to report the age.
type TTLCache struct {
	client    *Client
	namespace string
	ttl       time.Duration
	now       func() time.Time
}

// NewTTLCache creates a cache whose entries live for ttl.
func NewTTLCache(c *Client, namespace string, ttl time.Duration) *TTLCache {
	return &TTLCache{
		client:    c,
		namespace: namespace,
		ttl:       ttl,
		now:       time.Now,
	}
}

func (tc *TTLCache) entryKey(key string) string {
	return tc.client.key("cache", tc.namespace, key)
}

// Get returns the stored payload and its age, or domain.ErrCacheMiss.
func (tc *TTLCache) Get(ctx context.Context, key string) ([]byte, time.Duration, error) {
	fields, err := tc.client.rdb.HMGet(ctx, tc.entryKey(key), "v", "ts").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, 0, domain.ErrCacheMiss
		}
		return nil, 0, fmt.Errorf("redis: cache get %s: %w", key, err)
	}

	raw, ok := fields[0].(string)
	if !ok {
		return nil, 0, domain.ErrCacheMiss
	}
	tsStr, _ := fields[1].(string)
	ms, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return nil, 0, domain.ErrCacheMiss
	}

	age := tc.now().Sub(time.UnixMilli(ms))
	if age >= tc.ttl {
		return nil, 0, domain.ErrCacheMiss
	}
	if age < 0 {
		age = 0
	}
	return []byte(raw), age, nil
}

// Put stores value under key for the cache TTL.
func (tc *TTLCache) Put(ctx context.Context, key string, value []byte) error {
	k := tc.entryKey(key)

	pipe := tc.client.rdb.TxPipeline()
	pipe.HSet(ctx, k, "v", value, "ts", tc.now().UnixMilli())
	pipe.PExpire(ctx, k, tc.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: cache put %s: %w", key, err)
	}
	return nil
}

var _ domain.Cache = (*TTLCache)(nil)
