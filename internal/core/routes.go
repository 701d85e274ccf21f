package core

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"

	"heatwatch/internal/types"
)

const defaultRequestTimeout = 15 * time.Second

// defaultRedactedHeaders are masked in request logs.
var defaultRedactedHeaders = []string{
	"Authorization",
	"Cookie",
	"X-Api-Key",
}

// MountRoutes registers the middleware chain and every route.
//
// Ordering:
//  1. Recoverer       - outermost, catches panics from everything below.
//  2. RequestID       - correlation id for logs and responses.
//  3. SecurityHeaders
//  4. RequestLogger
//  5. CORS
//
// The WebSocket endpoint is mounted before the timeout and compression
// layers: it is long-lived and must be hijackable.
func (s *Server) MountRoutes() {
	s.router.Use(s.Recoverer)
	s.router.Use(RequestIDMiddleware)
	s.router.Use(SecurityHeadersMiddleware)
	s.router.Use(RequestLogger(s.Logger, defaultRedactedHeaders))
	s.router.Use(NewCORSMiddleware(s.corsAllowedOrigins()))

	s.router.Get("/v1/ws", s.Surface.ServeWS)

	s.router.Group(func(r chi.Router) {
		r.Use(ContextTimeoutMiddleware(s.requestTimeout()))
		r.Use(CompressionMiddleware)

		r.Get("/health", s.HandleHealth)
		if s.Metrics != nil {
			r.Method(http.MethodGet, "/metrics", s.Metrics)
		}
		r.Route("/v1", s.mountV1)
	})
}

func (s *Server) mountV1(r chi.Router) {
	r.Get("/regions", s.HandleRegions)
	r.Get("/state", s.HandleState)
	r.Put("/view-mode", s.HandleSetViewMode)
	r.Put("/heatmap", s.HandleSetHeatmap)
	r.Post("/heatmap/toggle", s.HandleToggleHeatmap)
	r.Route("/regions/{id}", func(r chi.Router) {
		r.Post("/highlight", s.HandleHighlight)
		r.Delete("/highlight", s.HandleResetHighlight)
		r.Post("/zoom", s.HandleZoom)
	})
}

func (s *Server) requestTimeout() time.Duration {
	if s.Config != nil && s.Config.Server.RequestTimeout > 0 {
		return s.Config.Server.RequestTimeout
	}
	return defaultRequestTimeout
}

func (s *Server) corsAllowedOrigins() []string {
	if s.Config != nil && len(s.Config.Server.CorsAllowedOrigins) > 0 {
		return s.Config.Server.CorsAllowedOrigins
	}
	return []string{"*"}
}

// ContextTimeoutMiddleware sets a deadline on the request context.
func ContextTimeoutMiddleware(duration time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), duration)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDMiddleware reuses the caller's X-Request-Id or generates one,
// stores it in the context and echoes it on the response.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)
		next.ServeHTTP(w, r.WithContext(types.WithRequestID(r.Context(), requestID)))
	})
}

// CompressionMiddleware gzips responses for clients that accept it.
func CompressionMiddleware(next http.Handler) http.Handler {
	return gzhttp.GzipHandler(next)
}
