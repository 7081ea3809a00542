package server

import (
	"sync"
	"time"

	"github.com/aristath/alphaseeker/internal/events"
	"github.com/rs/zerolog"
)

// StatusMonitor periodically checks system status and emits an event when the
// health state changes
type StatusMonitor struct {
	eventManager   *events.Manager
	systemHandlers *SystemHandlers
	log            zerolog.Logger

	stop     chan struct{}
	stopOnce sync.Once

	// Track previous state
	checked     bool
	lastHealthy bool
}

// NewStatusMonitor creates a new status monitor
func NewStatusMonitor(eventManager *events.Manager, systemHandlers *SystemHandlers, log zerolog.Logger) *StatusMonitor {
	return &StatusMonitor{
		eventManager:   eventManager,
		systemHandlers: systemHandlers,
		log:            log.With().Str("component", "status_monitor").Logger(),
		stop:           make(chan struct{}),
	}
}

// Start begins periodic status monitoring
func (m *StatusMonitor) Start(interval time.Duration) {
	go m.monitor(interval)
}

// Stop ends monitoring; safe to call more than once
func (m *StatusMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *StatusMonitor) monitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.checkStatus()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.checkStatus()
		}
	}
}

// checkStatus emits SYSTEM_STATUS_CHANGED on the first check and on every
// healthy/degraded transition
func (m *StatusMonitor) checkStatus() {
	status := m.systemHandlers.GetSystemStatusSnapshot()
	healthy := status.Status == "healthy"

	if m.checked && healthy == m.lastHealthy {
		return
	}
	m.checked = true
	m.lastHealthy = healthy

	data := &events.SystemStatusChangedData{
		Healthy:       healthy,
		CPUPercent:    status.CPUPercent,
		MemoryPercent: status.MemoryPercent,
	}
	if len(status.Warnings) > 0 {
		data.Reason = status.Warnings[len(status.Warnings)-1]
	}
	if !healthy {
		m.log.Warn().Str("reason", data.Reason).Msg("System status degraded")
	}
	m.eventManager.EmitTyped("status_monitor", data)
}
