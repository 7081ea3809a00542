package server

import (
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/aristath/alphaseeker/internal/database"
	"github.com/aristath/alphaseeker/internal/scheduler"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemHandlers handles system monitoring and job trigger endpoints
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	db        *database.DB
	jobs      JobRunner
	startedAt time.Time

	// host probes, replaceable in tests
	cpuPercent  func() (float64, error)
	memory      func() (*mem.VirtualMemoryStat, error)
	hostUptime  func() (uint64, error)
	diskUsage   func(path string) (*disk.UsageStat, error)
	runInflight func(fn func())
}

// NewSystemHandlers creates the system handlers. db and jobs may be nil.
func NewSystemHandlers(log zerolog.Logger, dataDir string, db *database.DB, jobs JobRunner) *SystemHandlers {
	return &SystemHandlers{
		log:        log.With().Str("handler", "system").Logger(),
		dataDir:    dataDir,
		db:         db,
		jobs:       jobs,
		startedAt:  time.Now(),
		cpuPercent: sampleCPU,
		memory:     mem.VirtualMemory,
		hostUptime: host.Uptime,
		diskUsage:  disk.Usage,
		runInflight: func(fn func()) {
			go fn()
		},
	}
}

// sampleCPU averages all CPUs over 100ms so the endpoint answers quickly
func sampleCPU() (float64, error) {
	percents, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		return 0, err
	}
	if len(percents) == 0 {
		return 0, nil
	}
	return percents[0], nil
}

// SystemStatusResponse is the payload of GET /api/system/status
type SystemStatusResponse struct {
	Status            string                `json:"status"` // "healthy" or "degraded"
	UptimeSeconds     int64                 `json:"uptime_seconds"`
	HostUptimeSeconds uint64                `json:"host_uptime_seconds"`
	CPUPercent        float64               `json:"cpu_percent"`
	MemoryPercent     float64               `json:"memory_percent"`
	MemoryUsedMB      float64               `json:"memory_used_mb"`
	DiskFreeMB        float64               `json:"disk_free_mb"`
	Goroutines        int                   `json:"goroutines"`
	GoVersion         string                `json:"go_version"`
	Database          *database.Stats       `json:"database,omitempty"`
	Jobs              []scheduler.JobStatus `json:"jobs"`
	Warnings          []string              `json:"warnings,omitempty"`
}

// GetSystemStatusSnapshot collects the current host and process status.
// Probe failures degrade the status instead of failing the call.
func (h *SystemHandlers) GetSystemStatusSnapshot() SystemStatusResponse {
	response := SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
		Goroutines:    runtime.NumGoroutine(),
		GoVersion:     runtime.Version(),
		Jobs:          []scheduler.JobStatus{},
	}
	warn := func(msg string, err error) {
		h.log.Warn().Err(err).Msg(msg)
		response.Warnings = append(response.Warnings, msg+": "+err.Error())
	}

	if pct, err := h.cpuPercent(); err != nil {
		warn("Failed to get CPU percentage", err)
	} else {
		response.CPUPercent = pct
	}

	if memStat, err := h.memory(); err != nil {
		warn("Failed to get memory statistics", err)
	} else {
		response.MemoryPercent = memStat.UsedPercent
		response.MemoryUsedMB = float64(memStat.Used) / 1024 / 1024
	}

	if uptime, err := h.hostUptime(); err != nil {
		warn("Failed to get host uptime", err)
	} else {
		response.HostUptimeSeconds = uptime
	}

	if h.dataDir != "" {
		if usage, err := h.diskUsage(h.dataDir); err != nil {
			warn("Failed to get disk usage", err)
		} else {
			response.DiskFreeMB = float64(usage.Free) / 1024 / 1024
		}
	}

	if h.db != nil {
		stats, err := h.db.GetStats()
		if err != nil {
			warn("Failed to get database stats", err)
			response.Status = "degraded"
		} else {
			response.Database = stats
		}
	}

	if h.jobs != nil {
		response.Jobs = h.jobs.Jobs()
	}

	return response
}

// HandleSystemStatus returns host metrics, database stats and job schedule
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(h.log, w, http.StatusOK, h.GetSystemStatusSnapshot())
}

// HandleJobsStatus lists the scheduled jobs with their next and previous runs
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	jobs := []scheduler.JobStatus{}
	if h.jobs != nil {
		jobs = h.jobs.Jobs()
	}
	writeJSON(h.log, w, http.StatusOK, map[string]interface{}{
		"total_jobs": len(jobs),
		"jobs":       jobs,
	})
}

// HandleTriggerJob starts a registered job in the background
// POST /api/system/jobs/{name}/run
func (h *SystemHandlers) HandleTriggerJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if h.jobs == nil || !h.hasJob(name) {
		writeError(h.log, w, http.StatusNotFound, "job not found: "+name)
		return
	}

	h.runInflight(func() {
		if err := h.jobs.RunByName(name); err != nil {
			if errors.Is(err, scheduler.ErrJobNotFound) {
				h.log.Warn().Str("job", name).Msg("Job disappeared before it could run")
				return
			}
			h.log.Error().Err(err).Str("job", name).Msg("Triggered job failed")
			return
		}
		h.log.Info().Str("job", name).Msg("Triggered job completed")
	})

	writeJSON(h.log, w, http.StatusAccepted, map[string]string{
		"status": "triggered",
		"job":    name,
	})
}

func (h *SystemHandlers) hasJob(name string) bool {
	for _, job := range h.jobs.Jobs() {
		if job.Name == name {
			return true
		}
	}
	return false
}
