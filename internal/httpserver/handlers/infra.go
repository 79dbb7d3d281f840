package handlers

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/clip/internal/httpserver/deps"
)

type componentStatus struct {
	OK            bool   `json:"ok"`
	Mode          string `json:"mode,omitempty"`
	Impact        string `json:"impact,omitempty"`
	Error         string `json:"error,omitempty"`
	CachedFolders *int   `json:"cached_folders,omitempty"`
	Endpoint      string `json:"endpoint,omitempty"`
}

type infraResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports the store and Outline settings. It never calls Outline.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		defer cancel()

		components := map[string]componentStatus{
			"store":   checkStore(ctx, d),
			"outline": checkOutline(ctx, d),
		}
		writeJSON(w, http.StatusOK, infraResponse{
			Status:     overallStatus(components),
			Components: components,
		})
	}
}

func overallStatus(components map[string]componentStatus) string {
	if store, ok := components["store"]; ok && !store.OK {
		return "critical" // nothing can be provisioned
	}
	if outline, ok := components["outline"]; ok && !outline.OK {
		return "degraded" // clips fail with a configuration error
	}
	return "operational"
}

func checkStore(ctx context.Context, d deps.Deps) componentStatus {
	if d.Cache == nil {
		return componentStatus{OK: false, Mode: d.StoreKind, Error: "store not initialized"}
	}
	if err := d.Cache.Ping(ctx); err != nil {
		return componentStatus{OK: false, Mode: d.StoreKind, Impact: "clips-disabled", Error: err.Error()}
	}

	st := componentStatus{OK: true, Mode: d.StoreKind}
	if entries, err := d.Cache.Entries(ctx); err == nil {
		n := len(entries)
		st.CachedFolders = &n
	}
	return st
}

func checkOutline(ctx context.Context, d deps.Deps) componentStatus {
	if d.Settings == nil {
		return componentStatus{OK: false, Error: "settings not initialized"}
	}
	s, err := d.Settings.Load(ctx)
	if err == nil {
		err = s.Validate()
	}
	if err != nil {
		return componentStatus{OK: false, Impact: "clips-fail", Error: err.Error(), Endpoint: s.OutlineURL}
	}
	return componentStatus{OK: true, Endpoint: s.OutlineURL}
}
