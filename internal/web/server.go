// Package web provides the HTTP server and handlers for the dashboard.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/bizdash/internal/api"
	"github.com/JonMunkholm/bizdash/internal/app"
	"github.com/JonMunkholm/bizdash/internal/config"
	"github.com/JonMunkholm/bizdash/internal/logging"
	"github.com/JonMunkholm/bizdash/internal/metrics"
	mw "github.com/JonMunkholm/bizdash/internal/web/middleware"
)

//go:embed static
var staticFiles embed.FS

// Server is the HTTP server for the dashboard.
type Server struct {
	services *app.Services
	client   *api.Client
	cfg      *config.Config
	router   *chi.Mux
	server   *http.Server
	limiter  *rateLimiter
	exports  *ExportLimiter
}

// NewServer creates a dashboard over services. client is used for endpoints
// that have no entity store, such as the audit log.
func NewServer(services *app.Services, client *api.Client, cfg *config.Config) *Server {
	s := &Server{
		services: services,
		client:   client,
		cfg:      cfg,
		router:   chi.NewRouter(),
		exports:  NewExportLimiter(cfg.Export.MaxConcurrent, cfg.Export.MaxWait),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(logging.Middleware)
	s.router.Use(metrics.Middleware("dashboard"))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}

	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.limiter = newRateLimiter(s.cfg.Rate.RequestsPerMinute, s.cfg.Rate.Burst)
		s.router.Use(s.limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", metrics.Handler())

	s.router.Get("/", s.handleDashboard)
	s.router.Get("/audit-log", s.handleAuditLog)
	s.router.Get("/audit-log/export.csv", s.limitExports(s.handleAuditLogExport))

	s.router.Route("/{entity}", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleCreate)
		r.Get("/new", s.handleNew)
		r.Get("/export.csv", s.limitExports(s.handleExport))
		r.Get("/{id}/edit", s.handleEdit)
		r.Post("/{id}", s.handleUpdate)
		r.Post("/{id}/delete", s.handleDelete)
		r.Post("/{id}/actions/{action}", s.handleAction)
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, r, ErrUnknownEntity, http.StatusNotFound)
	})
}

// Start begins listening for HTTP requests on the configured address.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("dashboard listening", "addr", s.server.Addr, "api", s.client.BaseURL())
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server, waits for running exports and
// stops the rate limiter's cleanup loop.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.stop()
	}
	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	if drainErr := s.exports.WaitForDrain(ctx); drainErr != nil {
		slog.Warn("exports still running at shutdown", "active", s.exports.ActiveCount())
	}
	return err
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				// Row menus confirm deletes with an inline handler.
				w.Header().Set("Content-Security-Policy",
					"default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self'; img-src 'self' data:; form-action 'self'")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
