package jobs

import (
	"bluecollar-backend/internal/config"
	"bluecollar-backend/internal/logger"
	"bluecollar-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	config   *config.Config
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Bookings     service.BookingService
	Negotiations service.NegotiationService
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		services: services,
		config:   cfg,
	}
}

// Config returns the configuration the jobs were built with.
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	log := logger.WithService("jobs")
	defer func() {
		if r := recover(); r != nil {
			log.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	log.Info("Starting job", "job", jobName)
	jobFunc()
	log.Info("Job completed", "job", jobName)
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.ExpireStaleAssignments()
	jr.ExpireStaleNegotiations()
}
