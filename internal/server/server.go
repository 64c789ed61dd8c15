// Package server wires the HTTP router, middleware and handlers together.
//
// This is the composition root: New() builds the full dependency chain
// (sqlite.DB → OnboardingService → APIHandler) in one place, and the route
// table below is the single authoritative list of boundary operations —
// explicit paths with typed parameters, no string matching anywhere else.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/investoai/onboarding-api/internal/analysis"
	"github.com/investoai/onboarding-api/internal/auth"
	"github.com/investoai/onboarding-api/internal/handler"
	"github.com/investoai/onboarding-api/internal/middleware"
	sqliteRepo "github.com/investoai/onboarding-api/internal/repository/sqlite"
	"github.com/investoai/onboarding-api/internal/service"
)

// Config holds server configuration, loaded from the environment in
// cmd/server.
type Config struct {
	Port            int
	DBPath          string
	AnalysisAPIURL  string
	CORSAllowOrigin string
	// ClerkJWTSecret enables session verification on the API when set.
	// Empty means the API is open (local development).
	ClerkJWTSecret string
}

// Server owns the router and the database connection; the connection is
// closed during graceful shutdown.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the server and its whole dependency chain.
func New(cfg Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware and the route table.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// CORS runs on every route, including the 404 fallback, and answers
	// OPTIONS preflights with 204 before anything else sees them.
	s.router.Use(middleware.CORS(s.config.CORSAllowOrigin))

	engine := analysis.New(s.config.AnalysisAPIURL, s.logger)
	svc := service.NewOnboardingService(s.db, s.db, engine, s.logger)
	api := handler.NewAPIHandler(svc, s.logger)

	s.router.Get("/test", api.HandleTest)
	s.router.Get("/investment/{clerkID}", api.HandleInvestment)
	s.router.Get("/check-user/{clerkID}", api.HandleCheckUser)
	s.router.Get("/check-form-status/{clerkID}", api.HandleFormStatus)
	s.router.Get("/check-user-status/{clerkID}", api.HandleUserStatus)

	// The write endpoints are the ones worth protecting when session
	// verification is configured; the read endpoints stay open so the
	// sign-in redirect works before the frontend has attached a token.
	if s.config.ClerkJWTSecret != "" {
		verifier, err := auth.NewTokenVerifier(s.config.ClerkJWTSecret)
		if err != nil {
			return fmt.Errorf("creating token verifier: %w", err)
		}
		s.router.Group(func(r chi.Router) {
			r.Use(auth.RequireSession(verifier))
			r.Post("/sync-user", api.HandleSyncUser)
			r.Post("/submit-form", api.HandleSubmitForm)
		})
		s.logger.Info("session verification enabled on write endpoints")
	} else {
		s.router.Post("/sync-user", api.HandleSyncUser)
		s.router.Post("/submit-form", api.HandleSubmitForm)
		s.logger.Warn("CLERK_JWT_SECRET not set — API is open")
	}

	s.router.NotFound(api.HandleNotFound)

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests (30s cap),
// close the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.String("analysisAPI", s.config.AnalysisAPIURL),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
