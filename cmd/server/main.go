package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/bizdash/internal/api"
	"github.com/JonMunkholm/bizdash/internal/app"
	"github.com/JonMunkholm/bizdash/internal/config"
	"github.com/JonMunkholm/bizdash/internal/entity"
	"github.com/JonMunkholm/bizdash/internal/logging"
	"github.com/JonMunkholm/bizdash/internal/web"
	mw "github.com/JonMunkholm/bizdash/internal/web/middleware"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"api", cfg.API.BaseURL,
		"items_per_page", cfg.Table.ItemsPerPage,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	opts := []api.Option{api.WithTimeout(cfg.API.Timeout)}
	if cfg.API.Key != "" {
		opts = append(opts, api.WithHeader(mw.APIKeyHeader, cfg.API.Key))
	}
	client, err := api.NewClient(cfg.API.BaseURL, opts...)
	if err != nil {
		slog.Error("failed to create API client", "error", err)
		os.Exit(1)
	}

	appOpts := app.OptionsFromConfig(cfg)
	appOpts.BasePath = "/"
	services := app.New(client, appOpts)

	// Log registered entities
	slog.Info("entities registered",
		"count", entity.Count(),
		"groups", len(entity.Groups()),
	)
	for _, group := range entity.Groups() {
		slog.Debug("entity group", "group", group, "entities", len(entity.ByGroup(group)))
	}

	server := web.NewServer(services, client, cfg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
