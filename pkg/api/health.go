package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Weynie/van-construction-web-sub000/pkg/metrics"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string            `json:"status"`
	Timestamp  time.Time         `json:"timestamp"`
	Version    string            `json:"version,omitempty"`
	Uptime     string            `json:"uptime,omitempty"`
	Components map[string]string `json:"components,omitempty"`
}

// ReadyResponse represents the readiness check response
type ReadyResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Message   string            `json:"message,omitempty"`
}

// healthHandler implements the /health endpoint.
// It answers 200 while the process is alive; component state is
// informational.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := metrics.GetHealth()
	response := HealthResponse{
		Status:     health.Status,
		Timestamp:  time.Now(),
		Version:    s.version,
		Uptime:     health.Uptime,
		Components: health.Components,
	}
	writeJSON(w, http.StatusOK, response)
}

// readyHandler implements the /ready endpoint.
// The bridge is ready once the backend, the engine and the event broker
// all report healthy.
func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	readiness := metrics.GetReadiness()
	checks := make(map[string]string, len(readiness.Components)+2)
	for name, state := range readiness.Components {
		checks[name] = state
	}

	projects, pages, tabs := 0, 0, 0
	for _, project := range s.engine.Workspace().Projects {
		projects++
		pages += len(project.Pages)
		for _, page := range project.Pages {
			tabs += len(page.Tabs)
		}
	}
	checks["workspace"] = fmt.Sprintf("%d projects, %d pages, %d tabs", projects, pages, tabs)
	checks["pending"] = fmt.Sprintf("%d operations", s.engine.PendingOperations())

	status := "ready"
	statusCode := http.StatusOK
	if readiness.Status != metrics.StatusReady {
		status = "not ready"
		statusCode = http.StatusServiceUnavailable
	}

	writeJSON(w, statusCode, ReadyResponse{
		Status:    status,
		Timestamp: time.Now(),
		Checks:    checks,
		Message:   readiness.Message,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
