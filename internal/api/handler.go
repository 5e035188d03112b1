// Package api provides the shared HTTP response helpers and the health endpoint
// for the order assistant server.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// healthTimeout bounds the store ping behind /health.
const healthTimeout = 2 * time.Second

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("failed to encode response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves GET /health.
type HealthHandler struct {
	store   Pinger
	version string
	started time.Time
}

// NewHealthHandler creates the health endpoint.
func NewHealthHandler(store Pinger, version string) *HealthHandler {
	return &HealthHandler{store: store, version: version, started: time.Now()}
}

type healthResponse struct {
	Status  string `json:"status"`
	Store   string `json:"store"`
	Version string `json:"version,omitempty"`
	Uptime  string `json:"uptime"`
}

// ServeHTTP reports 200 when the store answers a ping and 503 otherwise.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{
		Status:  "ok",
		Store:   "ok",
		Version: h.version,
		Uptime:  time.Since(h.started).Round(time.Second).String(),
	}
	status := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		slog.Warn("health check: store unreachable", "error", err)
		resp.Status = "degraded"
		resp.Store = "unreachable"
		status = http.StatusServiceUnavailable
	}
	JSON(w, status, resp)
}
