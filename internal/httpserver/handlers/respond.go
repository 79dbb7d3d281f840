package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/clip/internal/clipperr"
)

type errorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Status int    `json:"remote_status,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeClipError answers with the status matching err's kind.
func writeClipError(w http.ResponseWriter, err error) {
	writeJSON(w, clipperr.HTTPStatus(err), errorResponse{
		Error:  err.Error(),
		Kind:   clipperr.KindOf(err).String(),
		Status: clipperr.StatusOf(err),
	})
}
