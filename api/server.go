// Package api provides the preview server for forecastviz.
//
// It renders dashboards on request, lists and serves rendered documents,
// pushes live-reload notifications over WebSocket and exposes Prometheus
// metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/seenimoa/forecastviz/internal/config"
	"github.com/seenimoa/forecastviz/internal/dashboard"
	"github.com/seenimoa/forecastviz/internal/infra"
	"github.com/seenimoa/forecastviz/internal/metrics"
)

// maxBodyBytes caps POSTed forecast results.
const maxBodyBytes = 16 << 20

// Server is the HTTP preview server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	outDir  string
	log     zerolog.Logger
	metrics *metrics.Recorder
	wsHub   *WSHub
	limiter *infra.RateLimiter
	docs    *infra.Cache[*dashboard.Document]
	started time.Time

	mu       sync.RWMutex
	renderer *dashboard.Renderer
}

// Option customises a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithMetrics shares a recorder with other components.
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a configured server with all routes and middleware.
// Rendered documents live in cfg.Render.OutputDir, created if missing.
func NewServer(cfg *config.Config, options ...Option) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		outDir:  cfg.Render.OutputDir,
		log:     zerolog.Nop(),
		limiter: infra.NewRateLimiter(cfg.API.RenderRate, refill(cfg.API)),
		docs:    infra.NewCache[*dashboard.Document](cfg.API.CacheTTL),
		started: time.Now(),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.outDir == "" {
		s.outDir = "."
	}
	if err := os.MkdirAll(s.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}
	s.wsHub = NewWSHub(s.log, s.metrics)

	r, err := s.newRenderer(cfg.Dashboard())
	if err != nil {
		return nil, err
	}
	s.renderer = r
	s.router = s.buildRouter()
	return s, nil
}

// refill spreads the configured renders evenly over the window.
func refill(c config.APIConfig) time.Duration {
	if c.RenderRate < 1 || c.RenderWindow <= 0 {
		return time.Second
	}
	return c.RenderWindow / time.Duration(c.RenderRate)
}

func (s *Server) newRenderer(dc dashboard.Config) (*dashboard.Renderer, error) {
	return dashboard.New(dc,
		dashboard.WithLogger(s.log.With().Str("component", "renderer").Logger()),
		dashboard.WithObserver(s.metrics),
	)
}

func (s *Server) currentRenderer() *dashboard.Renderer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.renderer
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.wsHub.Run(hubCtx)
	go s.docs.RunCleanup(hubCtx, time.Minute)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Str("output_dir", s.outDir).Msg("preview server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Location"},
		MaxAge:         300,
	}))

	timeout := s.cfg.API.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r.Get("/metrics", s.metrics.Handler().ServeHTTP)

	// The WebSocket stays outside the timeout group.
	r.Get("/api/v1/ws", s.handleWebSocket)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(timeout))

		r.Get("/health", s.handleHealth)
		r.Get("/", s.handleGallery)
		r.Get("/dashboards/{file}", s.handleDashboardFile)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/health", s.handleHealth)

			// Dashboards
			r.Post("/dashboards", s.handleRender)
			r.Get("/dashboards", s.handleListDashboards)
			r.Get("/dashboards/{id}", s.handleGetDashboard)

			// Configuration
			r.Get("/config", s.handleGetConfig)
			r.Put("/config/theme", s.handleUpdateTheme)
		})
	})

	return r
}

// ============================================================
// Response envelope
// ============================================================

// APIResponse is the standard JSON envelope.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":        "ok",
			"version":       dashboard.Version,
			"uptime":        time.Since(s.started).Round(time.Second).String(),
			"ws_clients":    s.wsHub.ClientCount(),
			"pdf_supported": dashboard.IsPDFSupported(s.cfg.Export),
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
