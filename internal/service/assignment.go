package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bluecollar-backend/internal/clock"
	"bluecollar-backend/internal/domain"
	"bluecollar-backend/internal/logger"
	"bluecollar-backend/internal/repository"
	"bluecollar-backend/internal/utils"
)

// AssignmentOptions narrows the candidate pool.
type AssignmentOptions struct {
	MinRating float64
	// MaxDistanceKm drops workers farther than this from the work; 0 disables it.
	MaxDistanceKm float64
}

type assignmentEngine struct {
	userRepo       repository.UserRepository
	assignmentRepo repository.AssignmentRepository
	clock          clock.Clock
	opts           AssignmentOptions
}

func NewAssignmentEngine(
	userRepo repository.UserRepository,
	assignmentRepo repository.AssignmentRepository,
	clk clock.Clock,
	opts AssignmentOptions,
) AssignmentEngine {
	if opts.MinRating < 0 {
		opts.MinRating = 0
	}
	return &assignmentEngine{
		userRepo:       userRepo,
		assignmentRepo: assignmentRepo,
		clock:          clk,
		opts:           opts,
	}
}

// AssignBestWorker records a new attempt for the best eligible worker and
// points the booking at them. It returns nil without error when nobody is
// eligible. The caller persists the booking.
func (e *assignmentEngine) AssignBestWorker(ctx context.Context, booking *domain.Booking, work *domain.Work) (*domain.User, error) {
	logger.EnterMethod("assignmentEngine.AssignBestWorker", "bookingID", booking.ID, "workID", work.ID)

	excluded, err := e.assignmentRepo.ListExcludedWorkerIDs(ctx, booking.ID)
	if err != nil {
		logger.ExitMethodWithError("assignmentEngine.AssignBestWorker", err)
		return nil, fmt.Errorf("list excluded workers: %w", err)
	}

	candidates, err := e.userRepo.ListAvailableWorkers(ctx, e.opts.MinRating, excluded)
	if err != nil {
		logger.ExitMethodWithError("assignmentEngine.AssignBestWorker", err)
		return nil, fmt.Errorf("list available workers: %w", err)
	}

	worker := e.pick(candidates, work)
	if worker == nil {
		logger.InfoContext(ctx, "No eligible worker", "booking_id", booking.ID, "excluded", len(excluded))
		logger.ExitMethod("assignmentEngine.AssignBestWorker", "assigned", false)
		return nil, nil
	}

	maxOrder, err := e.assignmentRepo.GetMaxOrder(ctx, booking.ID)
	if err != nil {
		logger.ExitMethodWithError("assignmentEngine.AssignBestWorker", err)
		return nil, fmt.Errorf("get assignment order: %w", err)
	}

	now := e.clock.Now()
	attempt := domain.NewAssignment(booking.ID, worker.ID, maxOrder+1, now)
	if err := e.assignmentRepo.Create(ctx, attempt); err != nil {
		logger.ExitMethodWithError("assignmentEngine.AssignBestWorker", err)
		return nil, fmt.Errorf("record assignment: %w", err)
	}
	booking.AssignWorker(worker.ID, now)

	logger.InfoContext(ctx, "Worker assigned",
		"booking_id", booking.ID, "worker_id", worker.ID, "assignment_order", attempt.AssignmentOrder)
	logger.ExitMethod("assignmentEngine.AssignBestWorker", "workerID", worker.ID)
	return worker, nil
}

// pick prefers the best ranked worker whose skills fit the work category and
// falls back to the best ranked worker overall.
func (e *assignmentEngine) pick(candidates []domain.User, work *domain.Work) *domain.User {
	pool := make([]domain.User, 0, len(candidates))
	for _, c := range candidates {
		if utils.WithinRadius(work.Latitude, work.Longitude, c.Latitude, c.Longitude, e.opts.MaxDistanceKm) {
			pool = append(pool, c)
		}
	}
	if len(pool) == 0 {
		return nil
	}
	for i := range pool {
		if utils.SkillsMatch(pool[i].Skills, work.Category) {
			return &pool[i]
		}
	}
	return &pool[0]
}

func (e *assignmentEngine) RejectAssignedWorker(ctx context.Context, bookingID int32, reason string) (bool, error) {
	return e.closeCurrent(ctx, bookingID, nil, domain.AssignmentStatusRejectedByCustomer, reason)
}

// RecordCustomerRejection appends an already closed attempt for a worker the
// customer picked directly, so the worker is excluded from reassignment.
func (e *assignmentEngine) RecordCustomerRejection(ctx context.Context, bookingID, workerID int32, reason string) error {
	maxOrder, err := e.assignmentRepo.GetMaxOrder(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("get assignment order: %w", err)
	}
	now := e.clock.Now()
	attempt := domain.NewAssignment(bookingID, workerID, maxOrder+1, now)
	if err := attempt.Close(domain.AssignmentStatusRejectedByCustomer, reason, now); err != nil {
		return err
	}
	if err := e.assignmentRepo.Create(ctx, attempt); err != nil {
		return fmt.Errorf("record rejection: %w", err)
	}
	logger.InfoContext(ctx, "Customer rejected directly booked worker", "booking_id", bookingID, "worker_id", workerID)
	return nil
}

func (e *assignmentEngine) AcceptWorkerAssignment(ctx context.Context, bookingID, workerID int32) (bool, error) {
	return e.closeCurrent(ctx, bookingID, func(a *domain.WorkerAssignment) bool {
		return a.WorkerID == workerID
	}, domain.AssignmentStatusAccepted, "")
}

func (e *assignmentEngine) RejectWorkerAssignment(ctx context.Context, bookingID, workerID int32, reason string) (bool, error) {
	return e.closeCurrent(ctx, bookingID, func(a *domain.WorkerAssignment) bool {
		return a.WorkerID == workerID
	}, domain.AssignmentStatusRejectedByWorker, reason)
}

// ExpireAssignment closes the attempt only if it is still the open one.
func (e *assignmentEngine) ExpireAssignment(ctx context.Context, assignmentID, bookingID int32) (bool, error) {
	return e.closeCurrent(ctx, bookingID, func(a *domain.WorkerAssignment) bool {
		return a.ID == assignmentID
	}, domain.AssignmentStatusExpired, "No response from worker")
}

// closeCurrent moves the booking's open attempt to status. It reports false
// when there is no open attempt or match rejects it.
func (e *assignmentEngine) closeCurrent(
	ctx context.Context,
	bookingID int32,
	match func(*domain.WorkerAssignment) bool,
	status domain.AssignmentStatus,
	reason string,
) (bool, error) {
	current, err := e.assignmentRepo.GetCurrent(ctx, bookingID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if match != nil && !match(current) {
		return false, nil
	}
	if err := current.Close(status, reason, e.clock.Now()); err != nil {
		return false, err
	}
	if err := e.assignmentRepo.Update(ctx, current); err != nil {
		return false, fmt.Errorf("close assignment %d: %w", current.ID, err)
	}
	logger.InfoContext(ctx, "Assignment closed",
		"booking_id", bookingID, "assignment_id", current.ID, "worker_id", current.WorkerID, "status", status)
	return true, nil
}

func (e *assignmentEngine) GetCurrentAssignment(ctx context.Context, bookingID int32) (*domain.WorkerAssignment, error) {
	return e.assignmentRepo.GetCurrent(ctx, bookingID)
}

func (e *assignmentEngine) ListAssignments(ctx context.Context, bookingID int32) ([]domain.WorkerAssignment, error) {
	return e.assignmentRepo.ListByBooking(ctx, bookingID)
}

func (e *assignmentEngine) ListStaleAssignments(ctx context.Context, assignedBefore time.Time) ([]domain.WorkerAssignment, error) {
	return e.assignmentRepo.ListStale(ctx, assignedBefore)
}
