package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/nullstate/largeworld/internal/config"
)

// SystemHandlers handles health and host resource reporting endpoints.
type SystemHandlers struct {
	log         zerolog.Logger
	cfg         *config.ServiceConfig
	startupTime time.Time
}

// NewSystemHandlers creates a new system handlers instance.
func NewSystemHandlers(log zerolog.Logger, cfg *config.ServiceConfig) *SystemHandlers {
	return &SystemHandlers{
		log:         log.With().Str("component", "system_handlers").Logger(),
		cfg:         cfg,
		startupTime: time.Now(),
	}
}

// HandleHealth reports basic liveness, independent of host resources.
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "largeworld",
	})
}

// SystemStatusResponse is the payload for GET /api/system/status.
type SystemStatusResponse struct {
	UptimeSeconds float64 `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemPercent    float64 `json:"mem_percent"`
	DiskFreeMB    float64 `json:"disk_free_mb"`
	DataDir       string  `json:"data_dir"`
}

// HandleSystemStatus reports host resource usage alongside how long the
// service has been running, for operators watching long sweeps.
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	diskFreeMB := 0.0
	if usage, err := disk.Usage(h.cfg.DataDir); err == nil {
		diskFreeMB = float64(usage.Free) / 1024 / 1024
	} else {
		h.log.Warn().Err(err).Str("dir", h.cfg.DataDir).Msg("failed to read disk usage")
	}

	writeJSON(w, http.StatusOK, SystemStatusResponse{
		UptimeSeconds: time.Since(h.startupTime).Seconds(),
		CPUPercent:    cpuPercent,
		MemPercent:    memPercent,
		DiskFreeMB:    diskFreeMB,
		DataDir:       h.cfg.DataDir,
	})
}

// getSystemStats reports CPU and RAM usage percentages, sampling CPU over a
// short window so the request returns promptly.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}
	return cpuAvg, memStat.UsedPercent
}
