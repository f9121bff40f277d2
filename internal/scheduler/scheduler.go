// Package scheduler runs the background jobs of the research engine on
// cron schedules and tracks their last outcomes for the health endpoint.
package scheduler

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// JobStatus is the last observed outcome of a job
type JobStatus struct {
	Name      string     `json:"name"`
	Schedule  string     `json:"schedule"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
	RunCount  int        `json:"run_count"`
}

// Scheduler manages background jobs
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger

	mu       sync.Mutex
	statuses map[string]*JobStatus
}

// New creates a new scheduler
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		log:      log.With().Str("component", "scheduler").Logger(),
		statuses: make(map[string]*JobStatus),
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

// AddJob registers a job with a six-field cron schedule
func (s *Scheduler) AddJob(schedule string, job Job) error {
	s.mu.Lock()
	s.statuses[job.Name()] = &JobStatus{Name: job.Name(), Schedule: schedule}
	s.mu.Unlock()

	_, err := s.cron.AddFunc(schedule, func() {
		s.run(job)
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a job immediately, outside its schedule
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return s.run(job)
}

// Statuses returns the last outcomes of all registered jobs
func (s *Scheduler) Statuses() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]JobStatus, 0, len(s.statuses))
	for _, status := range s.statuses {
		statuses = append(statuses, *status)
	}
	return statuses
}

func (s *Scheduler) run(job Job) error {
	s.log.Debug().Str("job", job.Name()).Msg("Running job")

	err := job.Run()

	s.mu.Lock()
	status, ok := s.statuses[job.Name()]
	if !ok {
		status = &JobStatus{Name: job.Name()}
		s.statuses[job.Name()] = status
	}
	now := time.Now()
	status.LastRun = &now
	status.RunCount++
	if err != nil {
		status.LastError = err.Error()
	} else {
		status.LastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error().
			Err(err).
			Str("job", job.Name()).
			Msg("Job failed")
		return err
	}

	s.log.Debug().Str("job", job.Name()).Msg("Job completed")
	return nil
}
