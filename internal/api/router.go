package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/itz-ankit01/inbotiq-core/internal/auth"
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

	// Registered before any sub-router so they inherit it.
	r.NotFound(handleRouteNotFound)
	r.MethodNotAllowed(handleRouteNotFound)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/health/ready", s.handleReady)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", s.handleSignup)
			r.Post("/login", s.handleLogin)

			// Logout authenticates inside the handler so an already
			// revoked token still gets a 200.
			r.Post("/logout", s.handleLogout)

			r.Group(func(r chi.Router) {
				r.Use(s.authMiddleware)

				r.Get("/me", s.handleMe)
				r.With(s.requireRole(auth.RoleAdmin)).Get("/admin", s.handleAdmin)
			})
		})

		if s.metrics != nil {
			r.With(s.authMiddleware, s.requireRole(auth.RoleAdmin)).
				Method(http.MethodGet, "/metrics", s.metrics.Handler())
		}

		if s.audit != nil {
			r.With(s.authMiddleware, s.requireRole(auth.RoleAdmin)).
				Get("/audit", s.handleListAudit)
		}
	})

	return r
}

// handleHealth reports liveness. It never touches the store.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "OK",
		"message": "Server is running",
		"version": s.version,
	})
}

// handleReady runs every registered dependency check concurrently. Only
// "ok" or "unavailable" is reported per component; errors are logged.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	results := make(map[string]string, len(s.checks))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for name, check := range s.checks {
		wg.Go(func() {
			ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
			defer cancel()

			state := "ok"
			if err := check(ctx); err != nil {
				s.logger.Warn("readiness check failed", "component", name, "error", err)
				state = "unavailable"
			}
			mu.Lock()
			results[name] = state
			mu.Unlock()
		})
	}
	wg.Wait()

	status, overall := http.StatusOK, "OK"
	for _, state := range results {
		if state != "ok" {
			status, overall = http.StatusServiceUnavailable, "DEGRADED"
			break
		}
	}

	writeJSON(w, status, map[string]any{
		"status": overall,
		"checks": results,
	})
}

func handleRouteNotFound(w http.ResponseWriter, _ *http.Request) {
	writeNotFound(w, "Route not found")
}
