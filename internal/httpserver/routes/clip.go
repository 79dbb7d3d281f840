package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/clip/internal/httpserver/deps"
	"github.com/MrSnakeDoc/clip/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/clip/internal/httpserver/mw"
)

func init() { Register("clip", 10, registerClip) }

func registerClip(r chi.Router, d deps.Deps) {
	r.With(
		mw.AllowCIDRs(d.AllowedCIDRS, d.TrustProxy, d.Logger),
		mw.AllowHosts(d.AllowedHosts, d.Logger),
		mw.RateLimit(mw.RateLimitConfig{
			Burst:             d.RateBurst,
			RefillPerIPPerMin: d.RatePerMin,
			MaxEntries:        10_000,
			TrustProxy:        d.TrustProxy,
		}),
	).Post("/clip", handlers.Clip(d))
}
