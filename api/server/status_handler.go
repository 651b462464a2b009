// status_handler.go - HTTP handler for /status
package server

import (
	"encoding/json"
	"net/http"
)

// StatusResponse is the /status payload.
type StatusResponse struct {
	Status         string      `json:"status"`
	Uptime         int64       `json:"uptime"`
	TotalMedicines int         `json:"total_medicines"`
	Version        string      `json:"version"`
	APIVersion     string      `json:"api_version"`
	Metrics        NodeMetrics `json:"metrics"`
}

// HandleStatus responds to /status with node status
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	metrics := s.GetNodeMetrics()

	// Derive node health status from metrics
	status := "healthy"
	if !metrics.LedgerReachable {
		status = "degraded"
	}

	resp := StatusResponse{
		Status:         status,
		Uptime:         metrics.UptimeSeconds,
		TotalMedicines: metrics.TotalMedicines,
		Version:        NodeVersion(),
		APIVersion:     APIVersion(),
		Metrics:        metrics,
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
