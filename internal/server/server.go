// Package server wires the portal: router, middleware, routes and the
// process lifecycle.
//
// main builds the long-lived pieces (session store, backend client, portal
// services) and hands them to New. Everything HTTP-shaped is assembled
// here, in one place.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/xeenux-portal/internal/auth"
	"github.com/sakif/xeenux-portal/internal/handler"
	"github.com/sakif/xeenux-portal/internal/middleware"
	"github.com/sakif/xeenux-portal/internal/service"
	"github.com/sakif/xeenux-portal/internal/session"
)

// sweepInterval is how often idle sessions are purged.
const sweepInterval = 10 * time.Minute

// Config holds server configuration.
type Config struct {
	Port              int
	SecureCookies     bool
	LoginRateLimitRPS int
	SessionIdle       time.Duration
}

// Deps are the services the routes are built on.
type Deps struct {
	Portal   *service.Portal
	Auth     *service.AuthService
	Sessions *session.Manager
	Tokens   *auth.TokenService
}

// Server is the portal's HTTP server.
type Server struct {
	router *chi.Mux
	config Config
	deps   Deps
	logger *slog.Logger
}

// New builds the router. It fails only if the page templates do not parse.
func New(cfg Config, deps Deps, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		deps:   deps,
		logger: logger,
	}
	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler returns the router, for tests and for embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures middleware and routes.
//
//	GET       /                         → redirect to /dashboard
//	GET|POST  /login, /register, /forgot-password, /reset-password/{token}
//	POST      /logout
//	GET       /dashboard, /tree         (session)
//	POST      /withdraw, /purchase, /swap (session)
//	*         /api/...                  (session, JSON)
//	*         /api/admin/...            (session + admin role, JSON)
//
// Middleware order: RequestID, RealIP, Recoverer, then request logging.
// Form posts that reach the backend unauthenticated are rate limited per IP.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	pages, err := handler.NewRenderer(s.logger)
	if err != nil {
		return fmt.Errorf("creating page renderer: %w", err)
	}

	authHandler := handler.NewAuthHandler(s.deps.Auth, s.deps.Tokens, pages, s.config.SecureCookies, s.logger)
	pageHandler := handler.NewPageHandler(s.deps.Portal, pages, s.logger)
	userHandler := handler.NewUserHandler(s.deps.Portal, s.logger)
	adminHandler := handler.NewAdminHandler(s.deps.Portal, s.logger)

	limiter := middleware.NewRateLimiter(s.config.LoginRateLimitRPS, s.config.LoginRateLimitRPS, s.logger, nil)

	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	})
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// signed-out pages
	s.router.Group(func(r chi.Router) {
		r.Use(auth.OptionalSession(s.deps.Tokens))

		r.Get("/login", authHandler.HandleLoginPage)
		r.Get("/register", authHandler.HandleRegisterPage)
		r.Get("/forgot-password", authHandler.HandleForgotPage)
		r.Get("/reset-password/{token}", authHandler.HandleResetPage)
		r.Post("/logout", authHandler.HandleLogout)

		r.Group(func(r chi.Router) {
			r.Use(limiter.Handler)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/forgot-password", authHandler.HandleForgot)
			r.Post("/reset-password/{token}", authHandler.HandleReset)
		})
	})

	// signed-in pages
	s.router.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(s.deps.Tokens, handler.DenyPage))

		r.Get("/dashboard", pageHandler.HandleDashboard)
		r.Get("/tree", pageHandler.HandleTree)
		r.Post("/withdraw", pageHandler.HandleWithdraw)
		r.Post("/purchase", pageHandler.HandlePurchase)
		r.Post("/swap", pageHandler.HandleSwap)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireSession(s.deps.Tokens, handler.DenyAPI))

		userHandler.Routes(r)
		r.Route("/admin", func(r chi.Router) {
			r.Use(adminHandler.RequireAdmin)
			adminHandler.Routes(r)
		})
	})

	return nil
}

// Start serves until ctx is cancelled or SIGINT/SIGTERM arrives, then
// drains in-flight requests for up to 30 seconds. Idle sessions are swept
// in the background for as long as the server runs.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		// the tree page fans out to many backend calls
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if s.deps.Sessions != nil && s.config.SessionIdle > 0 {
		go s.deps.Sessions.Sweep(ctx, s.config.SessionIdle, sweepInterval)
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("portal starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info("shutdown requested")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("portal stopped gracefully")
	}
	return nil
}
