package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	cachemem "github.com/alanyoungcy/portfoliod/internal/cache/memory"
	"github.com/alanyoungcy/portfoliod/internal/crypto"
	"github.com/alanyoungcy/portfoliod/internal/ledger"
	"github.com/alanyoungcy/portfoliod/internal/platform/alphavantage"
	"github.com/alanyoungcy/portfoliod/internal/platform/newsapi"
	"github.com/alanyoungcy/portfoliod/internal/server"
	"github.com/alanyoungcy/portfoliod/internal/server/handler"
	"github.com/alanyoungcy/portfoliod/internal/server/ws"
	"github.com/alanyoungcy/portfoliod/internal/service"
)

// ServeMode starts the HTTP API and the websocket hub and blocks until ctx
// is cancelled, then shuts the server down gracefully.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	srv, hub, err := a.buildServer(deps)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return hub.Run(ctx)
	})

	g.Go(func() error {
		return srv.Start()
	})

	for _, c := range deps.MemoryCaches {
		g.Go(func() error {
			return a.sweepCache(ctx, c, c.TTL())
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("serve: shutdown failed", slog.String("error", err.Error()))
		}
		return ctx.Err()
	})

	return g.Wait()
}

// sweepCache drops expired entries from c every interval until ctx is
// cancelled. Lazy eviction on Get never reaches keys that are not read again.
func (a *App) sweepCache(ctx context.Context, c *cachemem.TTLCache, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := c.Sweep(); n > 0 {
				a.logger.DebugContext(ctx, "serve: swept expired cache entries",
					slog.Int("removed", n),
					slog.Int("remaining", c.Len()),
				)
			}
		}
	}
}

// buildServer assembles services, handlers and the websocket hub.
func (a *App) buildServer(deps *Dependencies) (*server.Server, *ws.Hub, error) {
	tokens, err := crypto.NewTokenIssuer(a.cfg.Auth.JWTSecret, a.cfg.Auth.Issuer, a.cfg.Auth.TokenTTL.Duration)
	if err != nil {
		return nil, nil, fmt.Errorf("serve: token issuer: %w", err)
	}

	quotes := alphavantage.NewClient(a.cfg.AlphaVantage.BaseURL, a.cfg.AlphaVantage.APIKey, a.cfg.AlphaVantage.Timeout.Duration)
	news := newsapi.NewClient(a.cfg.NewsAPI.BaseURL, a.cfg.NewsAPI.APIKey, a.cfg.NewsAPI.Timeout.Duration).
		WithLanguage(a.cfg.NewsAPI.Language)

	authSvc := service.NewAuthService(deps.Users, tokens, deps.Audit, a.cfg.Auth.BcryptCost, a.logger)
	stockSvc := service.NewStockService(deps.Stocks, quotes, deps.QuoteCache, a.logger)
	newsSvc := service.NewNewsService(news, deps.NewsCache, a.logger)
	portfolioSvc := service.NewPortfolioService(deps.Portfolios, deps.Txs, stockSvc, deps.Audit, deps.Notifier, a.logger)
	simulationSvc := service.NewSimulationService(
		deps.Accounts, deps.Txs, deps.Ledger, stockSvc,
		a.cfg.Simulation.DefaultBalanceDecimal(),
		deps.Audit, deps.Notifier, a.logger,
	)
	tradeSvc := service.NewTradeService(
		ledger.NewValidator(deps.Ledger, stockSvc),
		deps.Bus, deps.Audit, deps.Notifier, a.logger,
	)

	hub := ws.NewHub(deps.Bus, a.logger)

	srv := server.NewServer(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			RateLimit:   a.cfg.Server.RateLimit,
			RateWindow:  a.cfg.Server.RateWindow.Duration,
		},
		server.Handlers{
			Health:      handler.NewHealthHandler(deps.Health, a.logger),
			Auth:        handler.NewAuthHandler(authSvc, a.logger),
			Portfolios:  handler.NewPortfolioHandler(portfolioSvc, a.logger),
			Simulations: handler.NewSimulationHandler(simulationSvc, a.logger),
			Trades:      handler.NewTradeHandler(tradeSvc, a.logger),
			Stocks:      handler.NewStockHandler(stockSvc, a.logger),
			News:        handler.NewNewsHandler(newsSvc, a.logger),
		},
		hub,
		authSvc,
		deps.RateLimiter,
		a.logger,
	)
	return srv, hub, nil
}

func (a *App) shutdownTimeout() time.Duration {
	if d := a.cfg.Server.ShutdownTimeout.Duration; d > 0 {
		return d
	}
	return 10 * time.Second
}

// MigrateMode applies the embedded schema migrations and exits.
func (a *App) MigrateMode(ctx context.Context, deps *Dependencies) error {
	if deps.Postgres == nil {
		return errors.New("migrate: postgres store is not configured")
	}
	start := time.Now()
	if err := deps.Postgres.RunMigrations(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	a.logger.InfoContext(ctx, "migrate: schema up to date",
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// ExportMode writes every container's ledger to object storage once and
// exits.
func (a *App) ExportMode(ctx context.Context, deps *Dependencies) error {
	if deps.BlobWriter == nil {
		return errors.New("export: blob storage is not configured")
	}
	svc := service.NewExportService(
		deps.Portfolios, deps.Accounts, deps.Txs,
		deps.BlobWriter, a.cfg.Export.Prefix,
		deps.Audit, a.logger,
	)

	start := time.Now()
	sum, err := svc.Run(ctx)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	a.logger.InfoContext(ctx, "export: complete",
		slog.String("batch_id", sum.BatchID),
		slog.Int("containers", sum.Containers),
		slog.Int("transactions", sum.Transactions),
		slog.Duration("elapsed", time.Since(start)),
	)
	return nil
}
