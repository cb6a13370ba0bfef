// Package server exposes the Orchestrator over HTTP, matching the
// teacher's chi/cors wiring style.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/buildregs/ragagent/internal/fallback"
	"github.com/buildregs/ragagent/internal/orchestrator"
)

// Config holds server configuration.
type Config struct {
	Port                   int
	AllowAll               bool // allow all CORS origins (dev mode)
	RequestDeadlineSeconds int  // per-request timeout; 0 uses the 120s default
}

// Server is the HTTP front door onto the Orchestrator.
type Server struct {
	cfg          Config
	orchestrator *orchestrator.Orchestrator
	knowledge    fallback.Summary
	router       chi.Router
	httpServer   *http.Server
}

// New creates a Server wired to the given orchestrator and knowledge summary source.
func New(cfg Config, orch *orchestrator.Orchestrator, knowledge fallback.Summary) *Server {
	s := &Server{
		cfg:          cfg,
		orchestrator: orch,
		knowledge:    knowledge,
	}

	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.requestDeadline()))

	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	s.registerRoutes(r)

	return r
}

func (s *Server) requestDeadline() time.Duration {
	seconds := s.cfg.RequestDeadlineSeconds
	if seconds <= 0 {
		seconds = 120
	}
	return time.Duration(seconds) * time.Second
}

// Router returns the chi router, for tests to drive directly.
func (s *Server) Router() chi.Router { return s.router }

// Start begins listening on the configured port.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.requestDeadline() + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("buildregs-agent server listening on %s", addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
