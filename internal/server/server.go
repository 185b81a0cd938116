package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/portfoliod/internal/domain"
	"github.com/alanyoungcy/portfoliod/internal/server/handler"
	"github.com/alanyoungcy/portfoliod/internal/server/middleware"
	"github.com/alanyoungcy/portfoliod/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	// RateLimit is the number of requests a client IP may make per
	// RateWindow. Zero disables rate limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health      *handler.HealthHandler
	Auth        *handler.AuthHandler
	Portfolios  *handler.PortfolioHandler
	Simulations *handler.SimulationHandler
	Trades      *handler.TradeHandler
	Stocks      *handler.StockHandler
	News        *handler.NewsHandler
}

// publicPaths are served without a bearer token.
var publicPaths = []string{
	"/api/health",
	"/api/auth/register",
	"/api/auth/token",
}

// Server is the HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (CORS, logging, rate limiting, auth) and attaches
// the WebSocket hub. limiter may be nil when cfg.RateLimit is zero.
func NewServer(
	cfg Config,
	handlers Handlers,
	wsHub *ws.Hub,
	identifier middleware.Identifier,
	limiter domain.RateLimiter,
	logger *slog.Logger,
) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Auth endpoints.
	mux.HandleFunc("POST /api/auth/register", handlers.Auth.Register)
	mux.HandleFunc("POST /api/auth/token", handlers.Auth.Token)
	mux.HandleFunc("GET /api/auth/me", handlers.Auth.Me)

	// Portfolio endpoints.
	mux.HandleFunc("POST /api/portfolios", handlers.Portfolios.Create)
	mux.HandleFunc("GET /api/portfolios", handlers.Portfolios.List)
	mux.HandleFunc("GET /api/portfolios/{id}", handlers.Portfolios.Get)
	mux.HandleFunc("PUT /api/portfolios/{id}", handlers.Portfolios.Update)
	mux.HandleFunc("DELETE /api/portfolios/{id}", handlers.Portfolios.Delete)
	mux.HandleFunc("POST /api/portfolios/{id}/transactions", handlers.Trades.SubmitPortfolio)
	mux.HandleFunc("GET /api/portfolios/{id}/transactions", handlers.Portfolios.Transactions)

	// Simulation endpoints.
	mux.HandleFunc("POST /api/simulation/accounts", handlers.Simulations.Create)
	mux.HandleFunc("GET /api/simulation/accounts", handlers.Simulations.List)
	mux.HandleFunc("GET /api/simulation/accounts/{id}", handlers.Simulations.Get)
	mux.HandleFunc("DELETE /api/simulation/accounts/{id}", handlers.Simulations.Delete)
	mux.HandleFunc("POST /api/simulation/accounts/{id}/transactions", handlers.Trades.SubmitSimulation)
	mux.HandleFunc("GET /api/simulation/accounts/{id}/transactions", handlers.Simulations.Transactions)

	// Market data endpoints.
	mux.HandleFunc("GET /api/stocks", handlers.Stocks.List)
	mux.HandleFunc("GET /api/stocks/search", handlers.Stocks.Search)
	mux.HandleFunc("GET /api/stocks/quote/{symbol}", handlers.Stocks.Quote)
	mux.HandleFunc("GET /api/stocks/history/{symbol}", handlers.Stocks.History)
	mux.HandleFunc("GET /api/news/market", handlers.News.Market)
	mux.HandleFunc("GET /api/news/stock/{symbol}", handlers.News.Stock)

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux
	h = middleware.Auth(identifier, publicPaths...)(h)
	if limiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow, logger)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		handler:    h,
		logger:     logger,
	}
}

// Handler returns the fully wrapped request handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
