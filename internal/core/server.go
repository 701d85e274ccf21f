// Package core is the HTTP chassis of the dashboard: a chi router carrying
// the cross-cutting middleware, the JSON API over the live session and the
// WebSocket endpoint of the render surface.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"heatwatch/internal/config"
)

// Server holds everything the API needs. Fields are exported so tests can
// swap collaborators before MountRoutes.
type Server struct {
	Config    *config.Config
	Dashboard Dashboard
	Surface   Surface
	Logger    *slog.Logger
	Validator *Validator

	// Metrics serves /metrics when set.
	Metrics      http.Handler
	HealthProbes []HealthProbe

	router *chi.Mux
}

// NewServer validates the collaborators and prepares an empty router. The
// caller mounts routes with MountRoutes.
func NewServer(cfg *config.Config, dash Dashboard, surface Surface, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if dash == nil {
		return nil, fmt.Errorf("dashboard must not be nil")
	}
	if surface == nil {
		return nil, fmt.Errorf("surface must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Dashboard: dash,
		Surface:   surface,
		Logger:    logger,
		Validator: NewValidator(),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown releases server-owned resources. The session is stopped by its
// owner.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.InfoContext(ctx, "server shutdown complete", "session_id", s.Dashboard.ID())
	return nil
}
