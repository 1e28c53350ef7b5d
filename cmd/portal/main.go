// Command portal serves the Xeenux web portal: server-rendered pages and a
// JSON API, both backed by the Xeenux backend at BACKEND_API_URL.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/xeenux-portal/internal/auth"
	"github.com/sakif/xeenux-portal/internal/client"
	"github.com/sakif/xeenux-portal/internal/config"
	"github.com/sakif/xeenux-portal/internal/repository/sqlite"
	"github.com/sakif/xeenux-portal/internal/server"
	"github.com/sakif/xeenux-portal/internal/service"
	"github.com/sakif/xeenux-portal/internal/session"
)

func main() {
	// === 1. CONFIGURATION ===
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if err := cfg.ValidatePortal(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SESSION STORE ===
	dbDir := filepath.Dir(cfg.SessionDBPath)
	if err := os.MkdirAll(dbDir, 0o755); err != nil {
		logger.Error("failed to create session directory",
			slog.String("dir", dbDir),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	db, err := sqlite.New(cfg.SessionDBPath)
	if err != nil {
		logger.Error("failed to open session store",
			slog.String("path", cfg.SessionDBPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}
	defer db.Close()

	// === 3. BACKEND AND SERVICES ===
	base, err := client.New(client.Config{
		BaseURL: cfg.BackendURL,
		Logger:  logger,
		Timeout: cfg.RequestTimeout,
	})
	if err != nil {
		logger.Error("failed to create backend client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	tokens, err := auth.NewTokenService(cfg.PortalSecret, cfg.SessionIdle)
	if err != nil {
		logger.Error("failed to create token service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	sessions := session.NewManager(db, logger)
	portal := service.NewPortal(base, sessions, cfg.TreeConcurrency, logger)

	// === 4. SERVE ===
	srv, err := server.New(server.Config{
		Port:              cfg.Port,
		SecureCookies:     cfg.SecureCookies,
		LoginRateLimitRPS: cfg.LoginRateLimitRPS,
		SessionIdle:       cfg.SessionIdle,
	}, server.Deps{
		Portal:   portal,
		Auth:     service.NewAuthService(portal, sessions, logger),
		Sessions: sessions,
		Tokens:   tokens,
	}, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("backend configured", slog.String("url", cfg.BackendURL))

	// Start blocks until SIGINT/SIGTERM
	if err := srv.Start(context.Background()); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
