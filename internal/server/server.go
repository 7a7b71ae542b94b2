package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/curvemarket/internal/domain"
	"github.com/alanyoungcy/curvemarket/internal/server/handler"
	"github.com/alanyoungcy/curvemarket/internal/server/middleware"
	"github.com/alanyoungcy/curvemarket/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// Per-IP request throttling. Disabled when RateLimit <= 0 or the
	// limiter is nil.
	RateLimiter     domain.RateLimiter
	RateLimit       int
	RateLimitWindow time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health     *handler.HealthHandler
	Admin      *handler.AdminHandler
	Markets    *handler.MarketHandler
	Trades     *handler.TradeHandler
	Liquidity  *handler.LiquidityHandler
	Resolution *handler.ResolutionHandler
}

// Server is the HTTP + WebSocket API surface of the market engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, rate limiting) and attaches
// the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Engine params.
	mux.HandleFunc("GET /api/params", handlers.Admin.GetParams)
	mux.HandleFunc("PUT /api/params", handlers.Admin.ApplyParams)
	mux.HandleFunc("POST /api/params/nominate", handlers.Admin.NominateAuthority)
	mux.HandleFunc("POST /api/params/accept", handlers.Admin.AcceptAuthority)

	// Markets.
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("POST /api/markets", handlers.Markets.CreateMarket)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("GET /api/markets/{id}/user", handlers.Markets.GetUserInfo)
	mux.HandleFunc("GET /api/markets/{id}/events", handlers.Markets.ListEvents)

	// Trading.
	mux.HandleFunc("POST /api/markets/{id}/swap", handlers.Trades.Swap)

	// Liquidity.
	mux.HandleFunc("POST /api/markets/{id}/liquidity", handlers.Liquidity.AddLiquidity)
	mux.HandleFunc("DELETE /api/markets/{id}/liquidity", handlers.Liquidity.WithdrawLiquidity)

	// Resolution and settlement.
	mux.HandleFunc("POST /api/markets/{id}/resolve", handlers.Resolution.Resolve)
	mux.HandleFunc("POST /api/markets/{id}/redeem", handlers.Resolution.Redeem)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux

	h = middleware.Auth(cfg.APIKey)(h)
	if cfg.RateLimiter != nil && cfg.RateLimit > 0 {
		h = middleware.RateLimit(cfg.RateLimiter, cfg.RateLimit, cfg.RateLimitWindow)(h)
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
		mux:        mux,
		logger:     logger,
	}
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
