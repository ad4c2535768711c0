package scheduler

import (
	"time"

	"bluecollar-backend/internal/jobs"
	"bluecollar-backend/internal/logger"

	"github.com/robfig/cron/v3"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner. It fails
// when a configured schedule cannot be parsed.
func NewScheduler(jobRunner *jobs.JobRunner) (*Scheduler, error) {
	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() error {
	cfg := s.jobs.Config().Scheduler

	// Hand unanswered assignments to the next worker
	if _, err := s.cron.AddFunc(cfg.ExpireAssignments, s.jobs.ExpireStaleAssignments); err != nil {
		logger.Error("Failed to register ExpireStaleAssignments job", "schedule", cfg.ExpireAssignments, "error", err)
		return err
	}

	// Close price proposals nobody answered
	if _, err := s.cron.AddFunc(cfg.ExpireNegotiations, s.jobs.ExpireStaleNegotiations); err != nil {
		logger.Error("Failed to register ExpireStaleNegotiations job", "schedule", cfg.ExpireNegotiations, "error", err)
		return err
	}

	logger.Info("All cron jobs registered successfully", "count", len(s.cron.Entries()))
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler, waiting for running jobs
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// NextRuns reports when each registered job fires next.
func (s *Scheduler) NextRuns() []time.Time {
	entries := s.cron.Entries()
	next := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		next = append(next, e.Next)
	}
	return next
}

// IsRunning returns true if the scheduler has jobs registered
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}
