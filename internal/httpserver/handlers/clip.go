package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/clip/internal/clipper"
	"github.com/MrSnakeDoc/clip/internal/httpserver/deps"
	"github.com/MrSnakeDoc/clip/internal/logger"
)

const defaultMaxBodyBytes = 5 << 20

// Clip files the posted selection in Outline and answers 201 with the new document.
func Clip(d deps.Deps) http.HandlerFunc {
	limit := d.MaxBodyBytes
	if limit <= 0 {
		limit = defaultMaxBodyBytes
	}

	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, limit)

		var req clipper.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
			return
		}

		if strings.TrimSpace(req.SelectionText) == "" && strings.TrimSpace(req.SelectionHTML) == "" {
			writeError(w, http.StatusBadRequest, "selection_text or selection_html is required")
			return
		}

		res, err := d.Clipper.Clip(r.Context(), req)
		if err != nil {
			d.Logger.Debug("clip request failed",
				logger.String("page_url", req.PageURL),
				logger.Error(err))
			writeClipError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, res)
	}
}
