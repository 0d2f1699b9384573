package server

import (
	"net/http"
	"runtime"
	"time"
)

// handleDebugStatus reports process internals alongside the current
// speed test and network collector state.
func (s *Server) handleDebugStatus(w http.ResponseWriter, r *http.Request) {
	state := s.system.GetState()
	snap := s.network.Snapshot()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	resp := map[string]any{
		"debug_enabled": s.config.Debug.Enabled,
		"version":       s.version,
		"uptime_sec":    int64(time.Since(s.startedAt).Seconds()),
		"runtime": map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"heap_alloc": mem.HeapAlloc,
			"gc_cycles":  mem.NumGC,
			"go_version": runtime.Version(),
		},
		"speedtest": s.speedtest.Status(),
		"network": map[string]any{
			"history_points": len(snap.BandwidthHistory),
			"last_updated":   snap.LastUpdated,
		},
		"current_state": map[string]any{
			"cpu":    state.CPU.UsagePercent,
			"memory": state.Memory.UsagePercent,
			"gpus":   state.GPUs,
		},
	}

	s.writeJSON(w, http.StatusOK, resp)
}
