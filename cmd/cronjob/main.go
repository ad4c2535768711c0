package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"bluecollar-backend/internal/app"
	"bluecollar-backend/internal/config"
	"bluecollar-backend/internal/jobs"
	"bluecollar-backend/internal/logger"
	"bluecollar-backend/internal/scheduler"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	runOnce := flag.String("run-once", "", "Run a specific job once and exit (e.g., 'expire-assignments', 'all')")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting BlueCollar Cronjob Runner...", "log_level", cfg.Log.Level)

	application, err := app.New(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer application.Close()

	// Initialize Job Runner
	jobRunner := jobs.NewJobRunner(&jobs.Services{
		Bookings:     application.Bookings,
		Negotiations: application.Negotiations,
	}, cfg)

	// Check if running a single job
	if *runOnce != "" {
		logger.Info("Running job once", "job", *runOnce)
		if !runJobOnce(jobRunner, *runOnce) {
			application.Close()
			os.Exit(1)
		}
		logger.Info("Job execution completed", "job", *runOnce)
		return
	}

	// Initialize Scheduler
	cronScheduler, err := scheduler.NewScheduler(jobRunner)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	// Start scheduler
	cronScheduler.Start()
	logger.Info("Cronjob scheduler is running. Press Ctrl+C to stop.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down cronjob scheduler...")
	cronScheduler.Stop()
	logger.Info("Cronjob scheduler stopped. Goodbye!")
}

// runJobOnce runs a specific job once, reporting false for an unknown name
func runJobOnce(jobRunner *jobs.JobRunner, jobName string) bool {
	switch jobName {
	case "expire-assignments":
		jobRunner.ExpireStaleAssignments()
	case "expire-negotiations":
		jobRunner.ExpireStaleNegotiations()
	case "all":
		jobRunner.RunAll()
	default:
		logger.Error("Unknown job name", "job", jobName)
		fmt.Printf("Available jobs:\n")
		fmt.Printf("  - expire-assignments\n")
		fmt.Printf("  - expire-negotiations\n")
		fmt.Printf("  - all\n")
		return false
	}
	return true
}
