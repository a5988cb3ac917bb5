package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Parameter endpoints
		r.Route("/params", func(r chi.Router) {
			r.Get("/", s.handleListParams)

			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", s.handleGetParam)
				r.Put("/", s.handleSetParam)
			})
		})

		// Device reset
		r.Post("/reset", s.handleReset)

		// Preset endpoints
		r.Route("/presets", func(r chi.Router) {
			r.Get("/", s.handleListPresets)
			r.Post("/", s.handleCreatePreset)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetPreset)
				r.Delete("/", s.handleDeletePreset)
				r.Post("/apply", s.handleApplyPreset)
			})
		})

		// WebSocket telemetry stream
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        s.version,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
	})
}
