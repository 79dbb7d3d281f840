package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/clip/internal/cache"
	"github.com/MrSnakeDoc/clip/internal/httpserver/deps"
	"github.com/MrSnakeDoc/clip/internal/logger"
	"github.com/MrSnakeDoc/clip/internal/provision"
)

type foldersResponse struct {
	CollectionID string        `json:"collection_id,omitempty"`
	Count        int           `json:"count"`
	Folders      []cache.Entry `json:"folders"`
}

// ListFolders returns the cached collection and domain folders.
func ListFolders(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		collectionID, err := d.Cache.CollectionID(ctx)
		if err != nil {
			writeClipError(w, err)
			return
		}
		entries, err := d.Cache.Entries(ctx)
		if err != nil {
			writeClipError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, foldersResponse{
			CollectionID: collectionID,
			Count:        len(entries),
			Folders:      entries,
		})
	}
}

// ForgetFolder drops one domain mapping. The Outline document is left alone; the
// next clip from that domain creates a new folder.
func ForgetFolder(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		domain := provision.NormalizeDomain(chi.URLParam(r, "domain"))
		if domain == "" {
			writeError(w, http.StatusBadRequest, "domain is required")
			return
		}

		existed, err := d.Cache.ForgetDomainFolder(r.Context(), domain)
		if err != nil {
			writeClipError(w, err)
			return
		}
		if !existed {
			writeError(w, http.StatusNotFound, "no folder cached for "+domain)
			return
		}

		d.Logger.Info("domain folder forgotten via endpoint",
			logger.String("domain", domain),
			logger.String("remote_ip", r.RemoteAddr))
		w.WriteHeader(http.StatusNoContent)
	}
}
