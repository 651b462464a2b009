// metrics.go - Node metrics collection for the pharma node
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
)

// NodeMetrics holds granular health metrics for the node.
type NodeMetrics struct {
	UptimeSeconds   int64   `json:"uptime_seconds"`
	TotalMedicines  int     `json:"total_medicines"`
	LedgerReachable bool    `json:"ledger_reachable"`
	CPULoadPercent  float64 `json:"cpu_load_percent"`
	MemoryMB        float64 `json:"memory_mb"`
	DiskFreeMB      float64 `json:"disk_free_mb"`
}

// Track server start time for uptime calculation
var startTime = time.Now()

// GetNodeMetrics returns current health metrics for the node.
func (s *Server) GetNodeMetrics() NodeMetrics {
	// Uptime
	uptime := int64(time.Since(startTime).Seconds())

	// Memory usage
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	memoryMB := float64(m.Alloc) / (1024 * 1024)

	// Disk usage (root partition)
	var disk syscall.Statfs_t
	diskFreeMB := 0.0
	if err := syscall.Statfs("/", &disk); err == nil {
		diskFreeMB = float64(disk.Bfree) * float64(disk.Bsize) / (1024 * 1024)
	}

	// CPU usage: Use gopsutil to get current CPU percent
	cpuPercents, err := cpu.Percent(0, false)
	cpuLoad := 0.0
	if err == nil && len(cpuPercents) > 0 {
		cpuLoad = cpuPercents[0]
	}

	totalMedicines := 0
	if s.store != nil {
		totalMedicines, _ = s.store.Count()
	}

	// Ledger reachability: best-effort probe with a short budget.
	ledgerReachable := false
	if s.ledgerClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_, _, err := s.ledgerClient.GetBatch(ctx, "__healthcheck__")
		cancel()
		ledgerReachable = err == nil
	}

	return NodeMetrics{
		UptimeSeconds:   uptime,
		TotalMedicines:  totalMedicines,
		LedgerReachable: ledgerReachable,
		CPULoadPercent:  cpuLoad,
		MemoryMB:        memoryMB,
		DiskFreeMB:      diskFreeMB,
	}
}

// HandleNodeMetrics responds to /nodemetrics with the raw metrics.
func (s *Server) HandleNodeMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.GetNodeMetrics())
}
