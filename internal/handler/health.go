package handler

import (
	"net/http"
)

// Connectivity reports whether a backing connection is up.
type Connectivity interface {
	IsConnected() bool
}

// CacheStatus reports whether the cache fell back to in-process storage.
type CacheStatus interface {
	Degraded() bool
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	events Connectivity
	cache  CacheStatus
}

// NewHealthHandler creates a new health handler. A nil events connection means
// NATS is not configured and is not checked.
func NewHealthHandler(events Connectivity, cache CacheStatus) *HealthHandler {
	return &HealthHandler{
		events: events,
		cache:  cache,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	cacheBackend := "durable"
	if h.cache == nil || h.cache.Degraded() {
		cacheBackend = "memory"
	}

	if h.events != nil && !h.events.IsConnected() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not ready",
			"reason": "NATS not connected",
			"cache":  cacheBackend,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
		"cache":  cacheBackend,
	})
}
