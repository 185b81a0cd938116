package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/alanyoungcy/portfoliod/internal/domain"
)

// cached returns the value stored under key or calls fetch and stores its
// result. Cache failures are logged and never fail the call; fetch errors
// are returned unchanged and not cached.
func cached[T any](ctx context.Context, c domain.Cache, logger *slog.Logger, key string, fetch func() (T, error)) (T, error) {
	raw, _, err := c.Get(ctx, key)
	switch {
	case err == nil:
		var v T
		if jsonErr := json.Unmarshal(raw, &v); jsonErr == nil {
			return v, nil
		}
		logger.WarnContext(ctx, "service: discard undecodable cache entry", slog.String("key", key))
	case !errors.Is(err, domain.ErrCacheMiss):
		logger.WarnContext(ctx, "service: cache get failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	v, err := fetch()
	if err != nil {
		return v, err
	}

	if raw, err := json.Marshal(v); err == nil {
		if putErr := c.Put(ctx, key, raw); putErr != nil {
			logger.WarnContext(ctx, "service: cache put failed",
				slog.String("key", key),
				slog.String("error", putErr.Error()),
			)
		}
	}
	return v, nil
}
