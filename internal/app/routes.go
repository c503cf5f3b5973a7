package app

import (
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"message-gateway/internal/common/logging"
	"message-gateway/internal/handlers"
	"message-gateway/internal/middleware"
)

// SetupRoutes configures the status endpoints
func SetupRoutes(router *mux.Router, h *handlers.Handlers, gatherer prometheus.Gatherer, logger logging.Logger) {
	router.Use(middleware.Logging(logger))

	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/channels", h.Channels).Methods("GET")
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")
}
