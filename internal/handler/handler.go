// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/accountpulse/accountpulse/internal/handler/dto"
)

// Version is the API version reported by Info.
const Version = "0.1.0"

// Handler serves service-level endpoints.
type Handler struct {
	missing []string
}

// New creates a new Handler. missing lists unconfigured integrations.
func New(missing []string) *Handler {
	if missing == nil {
		missing = []string{}
	}
	return &Handler{missing: missing}
}

// InfoResponse describes the running service.
type InfoResponse struct {
	Service             string   `json:"service"`
	Version             string   `json:"version"`
	MissingIntegrations []string `json:"missingIntegrations"`
}

// Info reports the service version and which integrations lack credentials.
// GET /api
func (h *Handler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, InfoResponse{
		Service:             "accountpulse",
		Version:             Version,
		MissingIntegrations: h.missing,
	})
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, dto.ErrorMessage{Error: "resource not found"})
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, dto.ErrorMessage{Error: "method not allowed"})
}

// writeJSON writes a JSON response with the given status code.
// Encoding errors are dropped; the status line is already sent.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
