// Command demoapi serves the REST API the dashboard talks to. Records live
// in PostgreSQL when DATABASE_URL is set and in memory otherwise.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/bizdash/internal/admin"
	"github.com/JonMunkholm/bizdash/internal/backend"
	"github.com/JonMunkholm/bizdash/internal/config"
	"github.com/JonMunkholm/bizdash/internal/logging"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx := context.Background()
	repo, closeRepo, err := openRepository(ctx, cfg.Database)
	if err != nil {
		slog.Error("failed to open repository", "error", err)
		os.Exit(1)
	}
	defer closeRepo()

	srv := backend.New(repo, backend.Options{
		MaxPerPage:    cfg.Backend.MaxPerPage,
		AuditCapacity: cfg.Backend.AuditCapacity,
		Security:      cfg.Security,
	})

	if cfg.Backend.Reset {
		reset := &admin.Reset{Repo: repo, Kinds: srv.Kinds()}
		if err := reset.ResetAll(ctx); err != nil {
			slog.Error("failed to reset store", "error", err)
			os.Exit(1)
		}
		slog.Warn("store reset", "kinds", len(reset.Kinds))
	}

	if cfg.Backend.Seed {
		seeded, err := backend.Seed(ctx, srv)
		switch {
		case err != nil:
			slog.Error("failed to seed demo data", "error", err)
			os.Exit(1)
		case seeded:
			slog.Info("demo data seeded")
		default:
			slog.Info("store not empty, skipping seed")
		}
	}

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	defer cancelJobs()
	if cfg.Backend.OverdueInterval > 0 {
		go srv.StartOverdueScheduler(jobCtx, cfg.Backend.OverdueInterval)
	}

	httpServer := &http.Server{
		Addr:         cfg.Backend.Addr(),
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("backend listening",
		"addr", httpServer.Addr,
		"api_key_required", cfg.Security.RequireAPIKey,
	)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openRepository connects to PostgreSQL and migrates the schema, or falls
// back to memory when no database is configured.
func openRepository(ctx context.Context, cfg config.DatabaseConfig) (backend.Repository, func(), error) {
	if cfg.URL == "" {
		slog.Info("DATABASE_URL not set, keeping records in memory")
		return backend.NewMemoryRepository(), func() {}, nil
	}

	// Parse and configure connection pool
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}

	repo := backend.NewPostgresRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return repo, pool.Close, nil
}
