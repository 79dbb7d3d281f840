package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/clip/internal/httpserver/deps"
	"github.com/MrSnakeDoc/clip/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/clip/internal/httpserver/mw"
	"github.com/MrSnakeDoc/clip/internal/metrics"
)

func init() { Register("probes", 0, registerProbes) }

func registerProbes(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))

	probes := r.With(mw.AllowCIDRs(d.AllowedCIDRS, d.TrustProxy, d.Logger))
	probes.Get("/readyz", handlers.Readyz(d))
	probes.Get("/infra", handlers.Infra(d))
	probes.Method("GET", "/metrics", metrics.Handler())
}
