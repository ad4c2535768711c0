package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpcapi "bluecollar-backend/internal/api/grpc"
	httpapi "bluecollar-backend/internal/api/http"
	"bluecollar-backend/internal/app"
	"bluecollar-backend/internal/config"
	"bluecollar-backend/internal/logger"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting BlueCollar Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "http_address", cfg.GetServerAddress(), "grpc_address", cfg.GetGRPCAddress())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer application.Close()

	// Set up HTTP API
	router := httpapi.NewRouter(httpapi.Services{
		Auth:         application.Auth,
		Bookings:     application.Bookings,
		Wallets:      application.Wallets,
		Negotiations: application.Negotiations,
	}, httpapi.RouterOptions{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Pinger:         application.Store,
	})
	httpServer := &http.Server{
		Addr:              cfg.GetServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Set up gRPC health server
	healthServer := grpcapi.NewHealthServer(application.Store)
	grpcServer := grpcapi.NewServer(healthServer, application.Auth)
	lis, err := net.Listen("tcp", cfg.GetGRPCAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetGRPCAddress())
		log.Fatalf("Failed to listen: %v", err)
	}
	go healthServer.Run(ctx, 15*time.Second)

	errCh := make(chan error, 2)
	go func() {
		logger.Info("gRPC health server listening", "address", cfg.GetGRPCAddress())
		errCh <- grpcServer.Serve(lis)
	}()
	go func() {
		logger.Info("HTTP server listening", "address", cfg.GetServerAddress())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		logger.Error("Server error", "error", err)
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}
	grpcServer.GracefulStop()
	logger.Info("Server stopped. Goodbye!")
}
