// Package handlers serves the gateway's read-only status endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"message-gateway/internal/common/logging"
)

// ChannelStatus describes the flow state of one rate-limited channel
type ChannelStatus struct {
	Name       string  `json:"name"`
	Router     string  `json:"router"`
	State      string  `json:"state"`
	WindowSize int     `json:"window_size"`
	PerSeconds float64 `json:"per_seconds"`
	Tokens     *int    `json:"tokens,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// StatusSource is what the gateway exposes to the status endpoints
type StatusSource interface {
	Channels(ctx context.Context) []ChannelStatus
	// Health maps a component name to its health check result
	Health(ctx context.Context) map[string]error
}

type Handlers struct {
	source  StatusSource
	logger  logging.Logger
	version string
}

func New(source StatusSource, logger logging.Logger, version string) *Handlers {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Handlers{
		source:  source,
		logger:  logger,
		version: version,
	}
}

// HealthCheck reports 503 when any component is unhealthy
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   h.version,
	}

	code := http.StatusOK
	components := make(map[string]string)
	for name, err := range h.source.Health(ctx) {
		if err != nil {
			components[name] = "unhealthy: " + err.Error()
			status["status"] = "unhealthy"
			code = http.StatusServiceUnavailable
			continue
		}
		components[name] = "healthy"
	}
	status["components"] = components

	h.writeJSON(w, code, status)
}

// Channels lists every channel with its flow state and live window count
func (h *Handlers) Channels(w http.ResponseWriter, r *http.Request) {
	channels := h.source.Channels(r.Context())
	sort.Slice(channels, func(i, j int) bool { return channels[i].Name < channels[j].Name })

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"channels": channels,
	})
}

func (h *Handlers) writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", err)
	}
}
