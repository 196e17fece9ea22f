// Package server exposes the simulation over an HTTP + WebSocket API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/babylonsim/internal/domain"
	"github.com/alanyoungcy/babylonsim/internal/server/handler"
	"github.com/alanyoungcy/babylonsim/internal/server/middleware"
	"github.com/alanyoungcy/babylonsim/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled

	// RateLimiter, when set, throttles API requests per client IP.
	RateLimiter domain.RateLimiter
	RateLimit   int
	RateWindow  time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health    *handler.HealthHandler
	Questions *handler.QuestionHandler
	Markets   *handler.MarketHandler
	Companies *handler.CompanyHandler
	Feed      *handler.FeedHandler
	Engine    *handler.EngineHandler
}

// Server is the HTTP + WebSocket API server for the simulation.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth) and attaches the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Question endpoints.
	mux.HandleFunc("GET /api/questions", handlers.Questions.ListQuestions)
	mux.HandleFunc("GET /api/questions/{id}", handlers.Questions.GetQuestion)

	// Market endpoints.
	mux.HandleFunc("GET /api/markets/{question_id}", handlers.Markets.GetMarket)
	mux.HandleFunc("POST /api/markets/{question_id}/buy", handlers.Markets.Buy)

	// Company endpoints.
	mux.HandleFunc("GET /api/companies", handlers.Companies.ListCompanies)
	mux.HandleFunc("GET /api/companies/{id}", handlers.Companies.GetCompany)
	mux.HandleFunc("GET /api/companies/{id}/ticks", handlers.Companies.ListTicks)

	// Narrative feed endpoints.
	mux.HandleFunc("GET /api/events", handlers.Feed.ListEvents)
	mux.HandleFunc("GET /api/posts", handlers.Feed.ListPosts)

	// Engine endpoints.
	if handlers.Engine != nil {
		mux.HandleFunc("GET /api/engine/status", handlers.Engine.GetStatus)
		mux.HandleFunc("POST /api/engine/tick", handlers.Engine.TriggerTick)
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux
	if cfg.RateLimiter != nil && cfg.RateLimit > 0 {
		window := cfg.RateWindow
		if window <= 0 {
			window = time.Minute
		}
		h = middleware.RateLimit(cfg.RateLimiter, cfg.RateLimit, window)(h)
	}
	h = middleware.Auth(cfg.APIKey)(h)
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
