// Package server wires the HTTP surface: public key endpoints, the admin
// API behind the session gate, and operational routes.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/stackmint/keysmith/internal/handler"
	"github.com/stackmint/keysmith/internal/openapi"
	"github.com/stackmint/keysmith/internal/server/middleware"
	"github.com/stackmint/keysmith/internal/service"
	"github.com/stackmint/keysmith/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	RateLimitPerMin int
}

// DefaultConfig returns a Config with sensible production defaults. Port 3000
// matches the original deployment.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            3000,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		RateLimitPerMin: 120,
	}
}

// Server is the top-level HTTP server. It owns the chi router and the
// services behind it.
type Server struct {
	cfg        Config
	router     chi.Router
	store      *store.Store
	keySvc     *service.KeyService
	authSvc    *service.AuthService
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with all routes and middleware wired. Call
// ListenAndServe to start accepting connections.
func New(cfg Config, st *store.Store, keySvc *service.KeyService, authSvc *service.AuthService, logger *slog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		store:   st,
		keySvc:  keySvc,
		authSvc: authSvc,
		logger:  logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	keyHandler := handler.NewKeyHandler(s.keySvc)
	adminHandler := handler.NewAdminHandler(s.keySvc, s.authSvc)

	// --- Operational routes ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Get("/openapi.json", s.handleOpenAPI)

	// --- Public key lifecycle ---
	r.Post("/register", keyHandler.Register)
	r.Post("/user", keyHandler.RegisterWithKey)
	r.Post("/create", keyHandler.Create)
	r.With(middleware.RateLimit(s.cfg.RateLimitPerMin)).Post("/cekapi", keyHandler.Validate)

	// --- Admin surface ---
	r.Route("/admin", func(r chi.Router) {
		r.Post("/register", adminHandler.Register)
		r.With(middleware.RateLimit(s.cfg.RateLimitPerMin)).Post("/login", adminHandler.Login)

		// Everything below requires a live admin session.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(s.authSvc))

			r.Post("/logout", adminHandler.Logout)
			r.Get("/dashboard", adminHandler.Dashboard)
			r.Get("/apikeys", adminHandler.ListAPIKeys)
			r.Get("/users", adminHandler.ListUsers)
			r.Delete("/apikey/{id}", adminHandler.DeleteAPIKey)
			r.Post("/apikey/{id}/deactivate", adminHandler.DeactivateAPIKey)
			r.Delete("/user/{id}", adminHandler.DeleteUser)
		})
	})

	s.router = r
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. Returns 200 when the store is reachable.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	if err := s.store.Ping(r.Context()); err != nil {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}

// handleOpenAPI serves the generated OpenAPI document.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	baseURL := fmt.Sprintf("http://%s", r.Host)
	doc := openapi.GenerateSpec(baseURL)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(doc)
}

// ListenAndServe starts the HTTP server and blocks until SIGINT or SIGTERM,
// then drains in-flight requests before returning.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
