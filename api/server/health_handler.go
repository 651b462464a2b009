// health_handler.go - HTTP handlers for /api/health, /health/liveness, /health/readiness
package server

import (
	"encoding/json"
	"net/http"
	"time"
)

type LivenessResponse struct {
	Alive bool `json:"alive"`
}

type ReadinessResponse struct {
	Ready bool `json:"ready"`
}

// HandleLiveness responds to /health/liveness
func (s *Server) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	resp := LivenessResponse{Alive: s.NodeLiveness()}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// HandleReadiness responds to /health/readiness
func (s *Server) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	resp := ReadinessResponse{Ready: s.NodeReadiness()}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// HandleHealth responds to /api/health (summary health)
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	metrics := s.GetNodeMetrics()

	status := "healthy"
	if !metrics.LedgerReachable {
		status = "degraded"
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          status,
		"total_medicines": metrics.TotalMedicines,
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
	})
}
