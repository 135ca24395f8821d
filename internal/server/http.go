package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AhmeddEmad7/PerceptoAI/internal/api"
	"github.com/AhmeddEmad7/PerceptoAI/internal/cache"
	"github.com/AhmeddEmad7/PerceptoAI/internal/turn"
)

// MonitorServer provides HTTP endpoints for observing the running client
type MonitorServer struct {
	server     *http.Server
	logger     *slog.Logger
	controller *turn.Controller
	cache      *cache.Store
	client     *api.Client

	startTime time.Time
}

// NewMonitorServer creates the monitoring HTTP server
func NewMonitorServer(address string, logger *slog.Logger, controller *turn.Controller, store *cache.Store, client *api.Client) *MonitorServer {
	m := &MonitorServer{
		logger:     logger,
		controller: controller,
		cache:      store,
		client:     client,
		startTime:  time.Now(),
	}

	mux := http.NewServeMux()
	m.setupRoutes(mux)

	m.server = &http.Server{
		Addr:         address,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return m
}

// setupRoutes configures monitoring routes
func (m *MonitorServer) setupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", m.handleHealth)
	mux.HandleFunc("/status", m.handleStatus)
	mux.Handle("/metrics", promhttp.Handler())
}

// Start starts the monitoring server
func (m *MonitorServer) Start() error {
	m.logger.Info("Starting monitoring server",
		slog.String("address", m.server.Addr),
	)

	go func() {
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.logger.Error("Monitoring server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the monitoring server
func (m *MonitorServer) Stop(ctx context.Context) error {
	m.logger.Info("Stopping monitoring server...")

	return m.server.Shutdown(ctx)
}

// handleHealth implements the /health endpoint
func (m *MonitorServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(m.startTime).String(),
		"service": map[string]interface{}{
			"name":    "percepto-client",
			"version": "1.0.0",
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}

// handleStatus implements the /status endpoint
func (m *MonitorServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := map[string]interface{}{
		"timestamp":        time.Now().UTC(),
		"controller_state": m.controller.State().String(),
		"cache":            m.cache.Stats(),
		"backend":          m.client.Stats(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(status)
}
