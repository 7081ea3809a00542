// Package scheduler runs the periodic background jobs.
package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aristath/alphaseeker/internal/config"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// ErrJobNotFound is returned when triggering a job that was never registered
var ErrJobNotFound = errors.New("job not found")

type registeredJob struct {
	id  cron.EntryID
	job Job
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger

	mu      sync.Mutex
	entries map[string]registeredJob
}

// New creates a new scheduler. Schedules accept an optional seconds field.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithParser(config.ScheduleParser())),
		log:     log.With().Str("component", "scheduler").Logger(),
		entries: make(map[string]registeredJob),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with cron schedule
// Schedule examples:
//   - "0 0 20 * * MON-FRI" - 8 PM on weekdays
//   - "@daily"             - Midnight
//   - "@every 30s"         - Every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	id, err := s.cron.AddFunc(schedule, func() {
		s.execute(job)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.entries[job.Name()] = registeredJob{id: id, job: job}
	s.mu.Unlock()

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return job.Run()
}

// RunByName executes a registered job immediately
func (s *Scheduler) RunByName(name string) error {
	s.mu.Lock()
	entry, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return s.RunNow(entry.job)
}

// JobStatus is the next planned run of a registered job
type JobStatus struct {
	Name    string `json:"name"`
	NextRun string `json:"next_run,omitempty"`
	PrevRun string `json:"prev_run,omitempty"`
}

// Jobs lists the registered jobs by name
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.entries))
	for name, registered := range s.entries {
		entry := s.cron.Entry(registered.id)
		status := JobStatus{Name: name}
		if !entry.Next.IsZero() {
			status.NextRun = entry.Next.Format("2006-01-02T15:04:05Z07:00")
		}
		if !entry.Prev.IsZero() {
			status.PrevRun = entry.Prev.Format("2006-01-02T15:04:05Z07:00")
		}
		out = append(out, status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Scheduler) execute(job Job) {
	s.log.Debug().Str("job", job.Name()).Msg("Running job")

	if err := job.Run(); err != nil {
		s.log.Error().
			Err(err).
			Str("job", job.Name()).
			Msg("Job failed")
		return
	}
	s.log.Debug().Str("job", job.Name()).Msg("Job completed")
}
