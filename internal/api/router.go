package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each dependency check made by /health.
const healthCheckTimeout = 3 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/gateways", func(r chi.Router) {
			r.Get("/", s.handleListGateways)
			r.Post("/", s.handleProvisionGateway)
			r.Get("/available", s.handleAvailableDevices)
			r.Get("/stale", s.handleStaleGateways)

			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", s.handleGetGateway)
				r.Delete("/", s.handleDeprovisionGateway)
				r.Get("/connections", s.handleListGatewayConnections)
			})
		})

		r.Route("/connections", func(r chi.Router) {
			r.Get("/", s.handleListConnections)
			r.Post("/", s.handleControlConnection)
			r.Get("/{name}", s.handleGetConnection)
		})

		if s.audit != nil {
			r.Get("/audit", s.handleListAudit)
		}
	})

	return r
}

// handleHealth reports the server and dependency health. Any failing
// dependency turns the response into 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	checks := make(map[string]string, len(s.health))
	for name, checker := range s.health {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := checker.HealthCheck(ctx)
		cancel()
		if err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	writeJSON(w, status, map[string]any{
		"status":  overall,
		"version": s.version,
		"checks":  checks,
	})
}
