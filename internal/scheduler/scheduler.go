// Package scheduler runs ingestion jobs on a cron schedule for unattended
// operation.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is a named unit of scheduled work.
type Job interface {
	Name() string
	Run() error
}

// Scheduler wraps the cron runner with logging and per-job error capture.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
	lastErr map[string]error
	lastRun map[string]time.Time
}

// New creates a scheduler. Seconds granularity is not needed, specs use the
// standard five-field format.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		log:     log.With().Str("component", "scheduler").Logger(),
		entries: make(map[string]cron.EntryID),
		lastErr: make(map[string]error),
		lastRun: make(map[string]time.Time),
	}
}

// AddJob schedules a job. Registering the same name twice replaces the
// previous schedule.
func (s *Scheduler) AddJob(spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.entries[job.Name()]; ok {
		s.cron.Remove(id)
	}

	id, err := s.cron.AddFunc(spec, func() { s.runJob(job) })
	if err != nil {
		return fmt.Errorf("scheduling %s with spec %q: %w", job.Name(), spec, err)
	}
	s.entries[job.Name()] = id
	s.log.Info().Str("job", job.Name()).Str("spec", spec).Msg("Job scheduled")
	return nil
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(job Job) error {
	s.runJob(job)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr[job.Name()]
}

func (s *Scheduler) runJob(job Job) {
	start := time.Now()
	s.log.Info().Str("job", job.Name()).Msg("Job started")

	err := job.Run()

	s.mu.Lock()
	s.lastErr[job.Name()] = err
	s.lastRun[job.Name()] = start
	s.mu.Unlock()

	if err != nil {
		s.log.Error().Err(err).Str("job", job.Name()).Dur("duration", time.Since(start)).Msg("Job failed")
		return
	}
	s.log.Info().Str("job", job.Name()).Dur("duration", time.Since(start)).Msg("Job finished")
}

// LastResult reports when a job last ran and whether it failed.
func (s *Scheduler) LastResult(name string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun[name], s.lastErr[name]
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}
