package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/semaflow/semaflow/internal/middleware"
)

// ServerConfig bundles the settings server.go needs beyond the Handler
// itself — kept separate from config.Config so this package doesn't
// import the full application config for three fields.
type ServerConfig struct {
	RateLimit middleware.RateLimitConfig
}

// NewServer builds the chi router serving h's three routes, wired with
// the same request-logging/recovery/request-ID middleware shape as the
// teacher's cmd/server/main.go, minus its JWT auth middleware — SemaFlow
// has no principal model (SPEC_FULL.md §11 puts no user-identity model in
// scope).
func NewServer(h *Handler, cfg ServerConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(chimw.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/v1", func(r chi.Router) {
		r.With(middleware.RateLimiter(cfg.RateLimit)).Post("/query/run", h.RunQuery)
		r.Post("/query/plan", h.PlanQuery)
		r.Get("/flows/{name}/schema", h.FlowSchema)
	})

	return r
}
