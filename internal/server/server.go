// Package server exposes the dashboard REST API and the WebSocket endpoint.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/carmandale/trade-strategies-sub001/internal/domain"
	"github.com/carmandale/trade-strategies-sub001/internal/server/handler"
	"github.com/carmandale/trade-strategies-sub001/internal/server/middleware"
	"github.com/carmandale/trade-strategies-sub001/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimiter throttles API clients per IP when non-nil (Redis-backed).
	RateLimiter domain.RateLimiter
	RateLimit   int           // requests per window; defaults to 120
	RateWindow  time.Duration // defaults to 1 minute
}

// Handlers aggregates all HTTP handlers that the server needs to register.
// Settings and TradeLog may be nil when their backends are not configured;
// their routes then respond 503.
type Handlers struct {
	Health     *handler.HealthHandler
	Strategies *handler.StrategiesHandler
	Stream     *handler.StreamHandler
	Settings   *handler.SettingsHandler
	Analysis   *handler.AnalysisHandler
	TradeLog   *handler.TradeLogHandler
}

// Server is the HTTP + WebSocket API server for the spread dashboard.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, optional rate limiting) and
// attaches the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Strategy subscription endpoints.
	mux.HandleFunc("GET /api/strategies", handlers.Strategies.List)
	mux.HandleFunc("POST /api/strategies", handlers.Strategies.Subscribe)
	mux.HandleFunc("DELETE /api/strategies/{id}", handlers.Strategies.Unsubscribe)
	mux.HandleFunc("GET /api/strategies/{id}/snapshot", handlers.Strategies.Snapshot)

	// Stream connection control.
	mux.HandleFunc("GET /api/stream/status", handlers.Stream.Status)
	mux.HandleFunc("POST /api/stream/connect", handlers.Stream.Connect)
	mux.HandleFunc("POST /api/stream/disconnect", handlers.Stream.Disconnect)

	// Strategy settings (postgres-backed).
	if handlers.Settings != nil {
		mux.HandleFunc("GET /api/settings/{strategy}", handlers.Settings.Get)
		mux.HandleFunc("PUT /api/settings/{strategy}", handlers.Settings.Put)
	} else {
		mux.HandleFunc("/api/settings/", backendDisabled("settings"))
	}

	// Spread analysis.
	mux.HandleFunc("POST /api/analysis/payoff", handlers.Analysis.Payoff)

	// Trade log (blob-backed).
	if handlers.TradeLog != nil {
		mux.HandleFunc("GET /api/tradelog", handlers.TradeLog.ListDates)
		mux.HandleFunc("GET /api/tradelog/{date}", handlers.TradeLog.Get)
		mux.HandleFunc("PUT /api/tradelog/{date}", handlers.TradeLog.Put)
	} else {
		mux.HandleFunc("/api/tradelog", backendDisabled("trade log"))
		mux.HandleFunc("/api/tradelog/", backendDisabled("trade log"))
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain, innermost first.
	var h http.Handler = mux

	h = middleware.Auth(cfg.APIKey)(h)

	if cfg.RateLimiter != nil {
		limit, window := cfg.RateLimit, cfg.RateWindow
		if limit <= 0 {
			limit = 120
		}
		if window <= 0 {
			window = time.Minute
		}
		h = middleware.RateLimit(cfg.RateLimiter, limit, window)(h)
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
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

// backendDisabled serves 503 for routes whose backing store is not
// configured.
func backendDisabled(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, `{"error":"%s backend is not configured"}`, name)
	}
}
