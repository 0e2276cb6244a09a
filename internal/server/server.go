// Package server exposes the operations API: status, controls, settings,
// logs and a WebSocket event feed.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/futuresbot/internal/domain"
	"github.com/alanyoungcy/futuresbot/internal/server/handler"
	"github.com/alanyoungcy/futuresbot/internal/server/middleware"
	"github.com/alanyoungcy/futuresbot/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	// APIKey guards every route except health; empty disables auth.
	APIKey     string
	RateLimit  int
	RateWindow time.Duration
}

// Handlers aggregates the route handlers. Archive is optional.
type Handlers struct {
	Health    *handler.HealthHandler
	Bot       *handler.BotHandler
	Positions *handler.PositionHandler
	Settings  *handler.SettingsHandler
	Logs      *handler.LogHandler
	Archive   *handler.ArchiveHandler
}

// Server is the HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// NewServer registers every route and wraps the mux in the middleware
// chain: recover, CORS, logging, rate limit, auth. limiter may be nil.
func NewServer(cfg Config, h Handlers, hub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	logger = logger.With(slog.String("component", "server"))
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", h.Health.HealthCheck)

	mux.HandleFunc("GET /api/status", h.Bot.GetStatus)
	mux.HandleFunc("GET /api/signals", h.Bot.ListSignals)
	mux.HandleFunc("POST /api/bot/start", h.Bot.Start)
	mux.HandleFunc("POST /api/bot/stop", h.Bot.Stop)
	mux.HandleFunc("POST /api/bot/trading", h.Bot.SetTrading)
	mux.HandleFunc("POST /api/bot/emergency-stop", h.Bot.EmergencyStop)

	mux.HandleFunc("GET /api/positions", h.Positions.ListPositions)
	mux.HandleFunc("POST /api/positions/close-all", h.Positions.CloseAll)
	mux.HandleFunc("POST /api/positions/{symbol}/close", h.Positions.ClosePosition)

	mux.HandleFunc("GET /api/settings", h.Settings.GetSettings)
	mux.HandleFunc("PUT /api/settings", h.Settings.UpdateSettings)

	mux.HandleFunc("GET /api/logs", h.Logs.ListLogs)
	mux.HandleFunc("GET /api/audit", h.Logs.ListAudit)

	if h.Archive != nil {
		mux.HandleFunc("POST /api/archive/trigger", h.Archive.TriggerArchive)
	}
	if hub != nil {
		mux.HandleFunc("GET /ws", hub.HandleWS)
	}

	var root http.Handler = mux
	root = middleware.Auth(cfg.APIKey, "/api/health")(root)
	root = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateWindow, logger)(root)
	root = middleware.Logging(logger)(root)
	root = middleware.CORS(cfg.CORSOrigins)(root)
	root = middleware.Recover(logger)(root)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           root,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			// Emergency stop and close-all wait for every order.
			WriteTimeout: 90 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		handler: root,
		logger:  logger,
	}
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens until the server fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown waits for in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := s.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	}
}
