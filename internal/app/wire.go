package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/alanyoungcy/portfoliod/internal/blob/s3"
	cachemem "github.com/alanyoungcy/portfoliod/internal/cache/memory"
	"github.com/alanyoungcy/portfoliod/internal/cache/redis"
	"github.com/alanyoungcy/portfoliod/internal/config"
	"github.com/alanyoungcy/portfoliod/internal/domain"
	"github.com/alanyoungcy/portfoliod/internal/notify"
	"github.com/alanyoungcy/portfoliod/internal/server/handler"
	"github.com/alanyoungcy/portfoliod/internal/service"
	storemem "github.com/alanyoungcy/portfoliod/internal/store/memory"
	"github.com/alanyoungcy/portfoliod/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application modes
// need to operate. It is constructed by Wire and torn down by the returned
// cleanup function.
type Dependencies struct {
	// Stores
	Users      domain.UserStore
	Stocks     domain.StockStore
	Portfolios domain.PortfolioStore
	Accounts   domain.SimulationStore
	Txs        domain.TransactionStore
	Ledger     domain.Ledger
	Audit      domain.AuditStore

	// Postgres is nil when the memory store is selected.
	Postgres *postgres.Client

	// Caches and messaging
	QuoteCache  domain.Cache
	NewsCache   domain.Cache
	Bus         domain.EventBus
	RateLimiter domain.RateLimiter

	// MemoryCaches lists the in-process caches that serve mode sweeps.
	MemoryCaches []*cachemem.TTLCache

	// Blob storage, export mode only.
	BlobWriter domain.BlobWriter

	// Notifier is nil when no channel is configured.
	Notifier service.Notifier

	// Health checks reported by GET /api/health.
	Health map[string]handler.HealthCheck
}

// needsCache returns true for modes that serve requests.
func needsCache(mode string) bool {
	return mode == "serve"
}

// needsS3 returns true for modes that require object storage.
func needsS3(mode string) bool {
	return mode == "export"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, mode string, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{Health: make(map[string]handler.HealthCheck)}

	// --- Persistence ---
	if strings.EqualFold(cfg.Store, "memory") {
		logger.WarnContext(ctx, "wire: using in-memory store, data is lost on exit")
		db := storemem.New()
		deps.Users = storemem.NewUserStore(db)
		deps.Stocks = storemem.NewStockStore(db)
		deps.Portfolios = storemem.NewPortfolioStore(db)
		deps.Accounts = storemem.NewSimulationStore(db)
		deps.Txs = storemem.NewTransactionStore(db)
		deps.Ledger = storemem.NewLedger(db)
		deps.Audit = storemem.NewAuditStore(db)
	} else {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:            cfg.Database.DSN,
			Host:           cfg.Database.Host,
			Port:           cfg.Database.Port,
			Database:       cfg.Database.Database,
			User:           cfg.Database.User,
			Password:       cfg.Database.Password,
			SSLMode:        cfg.Database.SSLMode,
			MaxConns:       cfg.Database.PoolMaxConns,
			MinConns:       cfg.Database.PoolMinConns,
			ConnectTimeout: cfg.Database.ConnectTimeout.Duration,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)
		deps.Postgres = pgClient
		deps.Health["postgres"] = pgClient.Ping

		// migrate mode applies migrations itself.
		if mode == "serve" && cfg.Database.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.Users = postgres.NewUserStore(pool)
		deps.Stocks = postgres.NewStockStore(pool)
		deps.Portfolios = postgres.NewPortfolioStore(pool)
		deps.Accounts = postgres.NewSimulationStore(pool)
		deps.Txs = postgres.NewTransactionStore(pool)
		deps.Ledger = postgres.NewLedger(pool)
		deps.Audit = postgres.NewAuditStore(pool)
	}

	// --- Cache, event bus and rate limiter ---
	if needsCache(mode) {
		if strings.EqualFold(cfg.Cache.Backend, "memory") {
			quotes := cachemem.NewTTLCache(cfg.Cache.QuoteTTL.Duration)
			news := cachemem.NewTTLCache(cfg.Cache.NewsTTL.Duration)
			deps.QuoteCache, deps.NewsCache = quotes, news
			deps.MemoryCaches = []*cachemem.TTLCache{quotes, news}
			deps.Bus = cachemem.NewEventBus()
			deps.RateLimiter = cachemem.NewRateLimiter()
		} else {
			redisClient, err := redis.New(ctx, redis.ClientConfig{
				Addr:       cfg.Redis.Addr,
				Password:   cfg.Redis.Password,
				DB:         cfg.Redis.DB,
				PoolSize:   cfg.Redis.PoolSize,
				MaxRetries: cfg.Redis.MaxRetries,
				TLSEnabled: cfg.Redis.TLSEnabled,
				KeyPrefix:  cfg.Redis.KeyPrefix,
			})
			if err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: redis: %w", err)
			}
			closers = append(closers, func() { _ = redisClient.Close() })
			deps.Health["redis"] = redisClient.Ping

			deps.QuoteCache = redis.NewTTLCache(redisClient, "quotes", cfg.Cache.QuoteTTL.Duration)
			deps.NewsCache = redis.NewTTLCache(redisClient, "news", cfg.Cache.NewsTTL.Duration)
			deps.Bus = redis.NewEventBus(redisClient)
			deps.RateLimiter = redis.NewRateLimiter(redisClient)
		}
	}

	// --- S3 blob storage ---
	if needsS3(mode) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		if err := s3Client.Health(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		deps.BlobWriter = s3blob.NewWriter(s3Client, int64(cfg.Export.PartSizeMB)<<20)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(
			cfg.Notify.DiscordWebhookURL,
			cfg.Notify.DiscordUsername,
		))
	}
	if len(senders) > 0 {
		deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, cfg.Notify.Currency, logger)
	}

	return deps, cleanup, nil
}
