package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cachemem "github.com/alanyoungcy/portfoliod/internal/cache/memory"
	"github.com/alanyoungcy/portfoliod/internal/config"
)

func memoryConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Store = "memory"
	cfg.Cache.Backend = "memory"
	cfg.Auth.JWTSecret = "0123456789abcdef0123456789abcdef"
	cfg.AlphaVantage.APIKey = "demo"
	return &cfg
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWire_Memory(t *testing.T) {
	cfg := memoryConfig()
	require.NoError(t, cfg.Validate())

	deps, cleanup, err := Wire(context.Background(), cfg, "serve", discard())
	require.NoError(t, err)
	defer cleanup()

	assert.Nil(t, deps.Postgres)
	assert.NotNil(t, deps.Ledger)
	assert.NotNil(t, deps.QuoteCache)
	assert.NotNil(t, deps.NewsCache)
	assert.NotNil(t, deps.Bus)
	assert.NotNil(t, deps.RateLimiter)
	assert.Len(t, deps.MemoryCaches, 2)
	assert.Nil(t, deps.BlobWriter)
	assert.Nil(t, deps.Notifier, "no channels configured")
	assert.Empty(t, deps.Health)
}

func TestWire_Notifier(t *testing.T) {
	cfg := memoryConfig()
	cfg.Notify.DiscordWebhookURL = "https://discord.example/hook"

	deps, cleanup, err := Wire(context.Background(), cfg, "serve", discard())
	require.NoError(t, err)
	defer cleanup()
	assert.NotNil(t, deps.Notifier)
}

func TestBuildServer_Health(t *testing.T) {
	cfg := memoryConfig()
	a := New(cfg, discard())

	deps, cleanup, err := Wire(context.Background(), cfg, "serve", discard())
	require.NoError(t, err)
	defer cleanup()

	srv, hub, err := a.buildServer(deps)
	require.NoError(t, err)
	require.NotNil(t, hub)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/portfolios", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBuildServer_BadSecret(t *testing.T) {
	cfg := memoryConfig()
	cfg.Auth.JWTSecret = ""
	a := New(cfg, discard())
	_, _, err := a.buildServer(&Dependencies{})
	assert.Error(t, err)
}

func TestOneShotModesNeedBackends(t *testing.T) {
	a := New(memoryConfig(), discard())
	assert.ErrorContains(t, a.MigrateMode(context.Background(), &Dependencies{}), "postgres")
	assert.ErrorContains(t, a.ExportMode(context.Background(), &Dependencies{}), "blob storage")
}

func TestRun_UnknownMode(t *testing.T) {
	cfg := memoryConfig()
	cfg.Mode = "trade"
	a := New(cfg, discard())
	defer a.Close()
	assert.ErrorContains(t, a.Run(context.Background()), "unsupported mode")
}

func TestSweepCache_RemovesUnreadExpiredEntries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache := cachemem.NewTTLCache(20 * time.Millisecond)
	for _, k := range []string{"AAPL", "MSFT", "GOOG"} {
		require.NoError(t, cache.Put(ctx, k, []byte("{}")))
	}
	require.Equal(t, 3, cache.Len())

	a := New(memoryConfig(), discard())
	done := make(chan error, 1)
	go func() { done <- a.sweepCache(ctx, cache, cache.TTL()) }()

	// Nothing calls Get, so only the sweeper can reclaim the entries.
	assert.Eventually(t, func() bool { return cache.Len() == 0 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestSweepCache_ZeroIntervalReturns(t *testing.T) {
	a := New(memoryConfig(), discard())
	err := a.sweepCache(context.Background(), cachemem.NewTTLCache(0), 0)
	assert.NoError(t, err)
}
