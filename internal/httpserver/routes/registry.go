package routes

import (
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/clip/internal/httpserver/deps"
)

// Registrar mounts one group of routes.
type Registrar func(r chi.Router, d deps.Deps)

type group struct {
	name  string
	order int
	reg   Registrar
	mws   []func(http.Handler) http.Handler
}

var groups []group

// Register adds a route group from an init function. Groups mount by ascending
// order, then by name, so the router does not depend on file init order.
func Register(name string, order int, reg Registrar, mws ...func(http.Handler) http.Handler) {
	groups = append(groups, group{name: name, order: order, reg: reg, mws: mws})
}

// RegisterAll mounts every group on r and returns their names in mount order.
func RegisterAll(r chi.Router, d deps.Deps) []string {
	sorted := append([]group(nil), groups...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].order != sorted[j].order {
			return sorted[i].order < sorted[j].order
		}
		return sorted[i].name < sorted[j].name
	})

	names := make([]string, 0, len(sorted))
	for _, g := range sorted {
		if len(g.mws) == 0 {
			g.reg(r, d)
		} else {
			g.reg(r.With(g.mws...), d)
		}
		names = append(names, g.name)
	}
	return names
}
