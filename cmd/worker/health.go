package main

import (
	"context"
	"net/http"
	"time"

	"storefront-backend/pkg/container"
	"storefront-backend/pkg/logger"
)

// startHealthServer exposes liveness and readiness probes for the
// worker process on its own port.
func startHealthServer(c *container.Container) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"storefront-worker"}`))
	})

	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := c.DB.HealthCheck(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	})

	logger.Info("Worker health server starting", map[string]interface{}{"port": "9999"})
	if err := http.ListenAndServe(":9999", mux); err != nil {
		logger.Error("Worker health server failed", err)
	}
}
