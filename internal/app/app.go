// Package app assembles the store, event publisher and services from
// configuration. Both binaries share it.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bluecollar-backend/internal/clock"
	"bluecollar-backend/internal/config"
	"bluecollar-backend/internal/logger"
	"bluecollar-backend/internal/mq"
	"bluecollar-backend/internal/repository"
	"bluecollar-backend/internal/repository/memory"
	"bluecollar-backend/internal/repository/postgres"
	"bluecollar-backend/internal/security"
	"bluecollar-backend/internal/service"
	"bluecollar-backend/migrations"

	_ "github.com/lib/pq"
)

// Store is what the services need from a backing store.
type Store interface {
	repository.TxManager
	Ping(ctx context.Context) error
}

type repositories struct {
	users        repository.UserRepository
	works        repository.WorkRepository
	bookings     repository.BookingRepository
	assignments  repository.AssignmentRepository
	wallets      repository.WalletRepository
	negotiations repository.NegotiationRepository
}

type App struct {
	Config *config.Config
	Store  Store

	Auth         service.AuthService
	Bookings     service.BookingService
	Wallets      service.WalletService
	Negotiations service.NegotiationService

	closers []func() error
}

// New connects to the configured store and message broker and builds the services.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	repos, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var publisher service.EventPublisher
	if cfg.MQ.URL != "" {
		logger.Info("Connecting to RabbitMQ...", "exchange", cfg.MQ.Exchange)
		p, err := mq.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect message broker: %w", err)
		}
		a.closers = append(a.closers, p.Close)
		publisher = p
	}
	notifier := service.NewNotifier(publisher)

	clk := clock.NewSystem()
	tokens := security.NewTokenManager(cfg.JWT.Secret, cfg.AccessTokenTTL())
	engine := service.NewAssignmentEngine(repos.users, repos.assignments, clk, service.AssignmentOptions{
		MinRating:     cfg.Assignment.MinRating,
		MaxDistanceKm: cfg.Assignment.MaxDistanceKm,
	})

	a.Auth = service.NewAuthService(repos.users, tokens)
	a.Bookings = service.NewBookingService(a.Store, repos.bookings, repos.users, repos.works, engine, notifier, clk)
	a.Wallets = service.NewWalletService(a.Store, repos.wallets, repos.users, repos.bookings, notifier, clk, cfg.Wallet.Currency)
	a.Negotiations = service.NewNegotiationService(a.Store, repos.negotiations, repos.bookings, notifier, clk)
	return a, nil
}

func (a *App) openStore(ctx context.Context) (*repositories, error) {
	if a.Config.Server.InMemory {
		logger.Warn("Using in-memory store; data is lost on restart")
		s := memory.NewStore()
		a.Store = s
		return &repositories{
			users: s.UserRepository, works: s.WorkRepository, bookings: s.BookingRepository,
			assignments: s.AssignmentRepository, wallets: s.WalletRepository, negotiations: s.NegotiationRepository,
		}, nil
	}

	cfg := a.Config.Database
	logger.Info("Connecting to database...", "host", cfg.Host, "port", cfg.Port, "database", cfg.Name, "user", cfg.User)
	db, err := sql.Open("postgres", a.Config.GetDatabaseConnectionString())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	db.SetMaxOpenConns(20)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("Database connection established")

	if cfg.Migrate {
		if err := migrations.Apply(ctx, db); err != nil {
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info("Database migrations applied")
	}

	s := postgres.NewStore(db)
	a.Store = s
	return &repositories{
		users: s.UserRepository, works: s.WorkRepository, bookings: s.BookingRepository,
		assignments: s.AssignmentRepository, wallets: s.WalletRepository, negotiations: s.NegotiationRepository,
	}, nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("Close failed", "error", err)
		}
	}
	a.closers = nil
}
