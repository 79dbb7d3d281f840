package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/clip/internal/httpserver/deps"
	"github.com/MrSnakeDoc/clip/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/clip/internal/httpserver/mw"
)

func init() { Register("folders", 20, registerFolders) }

func registerFolders(r chi.Router, d deps.Deps) {
	r.Route("/folders", func(r chi.Router) {
		r.Use(mw.AllowCIDRs(d.AllowedCIDRS, d.TrustProxy, d.Logger), mw.AllowHosts(d.AllowedHosts, d.Logger))
		r.Get("/", handlers.ListFolders(d))
		r.Delete("/{domain}", handlers.ForgetFolder(d))
	})
}
