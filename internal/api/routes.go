// Package api builds the REST surface that sits alongside the MCP/JSON-RPC
// transport: context generation, repository management, search, and the
// webhook receiver, all routed with chi and wrapped in the same
// middleware stack as the rest of the service.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ferg-cod3s/docsyncer/internal/app"
	"github.com/ferg-cod3s/docsyncer/internal/mcp/webhooks"
	"github.com/ferg-cod3s/docsyncer/internal/middleware"
	"github.com/ferg-cod3s/docsyncer/internal/observability"
)

// Dependencies bundles everything the route handlers need. Any middleware
// field left nil is skipped so the server still runs with auth/CORS/rate
// limiting/security headers disabled, matching the teacher's
// degrade-gracefully convention for optional middleware.
type Dependencies struct {
	Pipeline     *app.Pipeline
	ErrorHandler *observability.ErrorHandler
	Metrics      *observability.MetricsCollector
	Version      string

	Auth       *middleware.AuthMiddleware
	CORS       *middleware.CORSMiddleware
	RateLimit  *middleware.RateLimitMiddleware
	Security   *middleware.SecurityMiddleware
}

// NewRouter assembles the chi router for the REST + webhook surface.
// Pipeline may be nil; handlers that need it respond 503 instead of
// panicking.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	if deps.Security != nil {
		r.Use(deps.Security.Middleware)
	}
	if deps.CORS != nil {
		r.Use(deps.CORS.Middleware)
	}
	if deps.RateLimit != nil {
		r.Use(deps.RateLimit.Middleware)
	}

	r.Get("/health", handleHealth(deps.Version))

	h := &handlers{deps: deps}

	r.Route("/api", func(api chi.Router) {
		if deps.Auth != nil {
			api.Use(deps.Auth.Middleware)
		}

		api.Post("/context/generate", h.generateContext)
		api.Post("/context/generate-formatted", h.generateContextFormatted)

		api.Get("/repos/status", h.reposStatus)
		api.Post("/repos/sync", h.reposSync)
		api.Post("/repos/add", h.reposAdd)
		api.Put("/repos/{name}", h.reposUpdate)
		api.Delete("/repos/{name}", h.reposDelete)

		api.Get("/search", h.search)
		api.Get("/search/metadata", h.searchMetadata)
		api.Get("/search/stats", h.searchStats)
	})

	webhookHandler := webhooks.NewWebhookHandler(deps.Pipeline, deps.ErrorHandler)
	r.Route("/api/webhooks", func(wr chi.Router) {
		wr.Post("/{provider}/{name}", webhookHandler.Handle)
	})

	return r
}

func handleHealth(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "healthy",
			"version": version,
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	}
}

type handlers struct {
	deps Dependencies
}

func (h *handlers) pipeline() *app.Pipeline { return h.deps.Pipeline }
