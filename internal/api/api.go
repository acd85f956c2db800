package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/nchanged/vitakube/internal/metric"
)

// Handler serves the agent HTTP API.
type Handler struct {
	nodeName string
	version  string
	store    *metric.Store
}

// NewHandler builds a Handler bound to the last-pass store.
func NewHandler(nodeName, version string, store *metric.Store) *Handler {
	return &Handler{
		nodeName: nodeName,
		version:  version,
		store:    store,
	}
}

// Register wires all API endpoints on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/agent/v1/healthz", h.healthz)
	mux.HandleFunc("/agent/v1/overview", h.overview)
	mux.HandleFunc("/agent/v1/last", h.last)
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := h.store.Latest(); ok {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	respondError(w, http.StatusServiceUnavailable, "no collection pass completed yet")
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	status := "initializing"
	timestamp := time.Now().UTC()
	records := 0
	if batch, at, ok := h.store.Latest(); ok {
		status = "ok"
		timestamp = at.UTC()
		records = len(batch.Metrics)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"node":      h.nodeName,
		"version":   h.version,
		"records":   records,
		"timestamp": timestamp.Format(time.RFC3339Nano),
	})
}

func (h *Handler) last(w http.ResponseWriter, r *http.Request) {
	batch, at, ok := h.store.Latest()
	if !ok {
		respondError(w, http.StatusServiceUnavailable, "no collection pass completed yet")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"batch":     batch,
		"timestamp": at.UTC().Format(time.RFC3339Nano),
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
