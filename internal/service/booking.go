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
)

type bookingService struct {
	txm         repository.TxManager
	bookingRepo repository.BookingRepository
	userRepo    repository.UserRepository
	workRepo    repository.WorkRepository
	assigner    AssignmentEngine
	notifier    Notifier
	clock       clock.Clock
}

func NewBookingService(
	txm repository.TxManager,
	bookingRepo repository.BookingRepository,
	userRepo repository.UserRepository,
	workRepo repository.WorkRepository,
	assigner AssignmentEngine,
	notifier Notifier,
	clk clock.Clock,
) BookingService {
	return &bookingService{
		txm:         txm,
		bookingRepo: bookingRepo,
		userRepo:    userRepo,
		workRepo:    workRepo,
		assigner:    assigner,
		notifier:    notifier,
		clock:       clk,
	}
}

// CreateAutoBooking stores a PENDING booking and then tries to place a
// worker on it. A failed placement leaves the booking PENDING and is reported
// through the result, never as an error.
func (s *bookingService) CreateAutoBooking(ctx context.Context, req AutoBookingRequest, customerID int32) (*BookingResult, error) {
	logger.EnterMethod("bookingService.CreateAutoBooking", "customerID", customerID, "workID", req.WorkID)

	customer, err := s.userRepo.GetByID(ctx, customerID)
	if err != nil {
		logger.ExitMethodWithError("bookingService.CreateAutoBooking", err)
		return nil, fmt.Errorf("customer: %w", err)
	}
	work, err := s.workRepo.GetByID(ctx, req.WorkID)
	if err != nil {
		logger.ExitMethodWithError("bookingService.CreateAutoBooking", err)
		return nil, err
	}

	now := s.clock.Now()
	booking := &domain.Booking{
		CustomerID:             customer.ID,
		WorkID:                 work.ID,
		Description:            req.Description,
		ScheduledDate:          req.ScheduledDate,
		EstimatedDurationHours: work.EstimatedTimeHours,
		TotalAmount:            work.Charges,
		Status:                 domain.BookingStatusPending,
		CustomerAddress:        req.CustomerAddress,
		CustomerPhone:          req.CustomerPhone,
		SpecialInstructions:    req.SpecialInstructions,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		logger.ExitMethodWithError("bookingService.CreateAutoBooking", err)
		return nil, fmt.Errorf("create booking: %w", err)
	}
	s.notifier.Notify(ctx, bookingEvent(EventBookingCreated, booking, "New booking created", now))

	result := &BookingResult{Booking: booking, AssignmentPending: true}

	var (
		assigned *domain.Booking
		worker   *domain.User
	)
	err = s.txm.WithinTx(ctx, func(ctx context.Context) error {
		locked, err := s.bookingRepo.GetByIDForUpdate(ctx, booking.ID)
		if err != nil {
			return err
		}
		w, err := s.assigner.AssignBestWorker(ctx, locked, work)
		if err != nil || w == nil {
			return err
		}
		if err := s.bookingRepo.Update(ctx, locked); err != nil {
			return err
		}
		assigned, worker = locked, w
		return nil
	})
	if err != nil {
		logger.WarnContext(ctx, "Worker assignment failed, booking left pending", "booking_id", booking.ID, "error", err)
		result.AssignmentError = err.Error()
		logger.ExitMethod("bookingService.CreateAutoBooking", "bookingID", booking.ID, "assigned", false)
		return result, nil
	}
	if worker == nil {
		logger.InfoContext(ctx, "No worker available yet, booking left pending", "booking_id", booking.ID)
		logger.ExitMethod("bookingService.CreateAutoBooking", "bookingID", booking.ID, "assigned", false)
		return result, nil
	}

	result.Booking = assigned
	result.AssignedWorker = worker
	result.AssignmentPending = false
	s.notifier.Notify(ctx, bookingEvent(EventBookingAssigned, assigned, "New job assigned", assigned.UpdatedAt))

	logger.ExitMethod("bookingService.CreateAutoBooking", "bookingID", booking.ID, "workerID", worker.ID)
	return result, nil
}

// CreateBooking stores a PENDING booking for a worker chosen by the customer.
func (s *bookingService) CreateBooking(ctx context.Context, req BookingRequest, customerID int32) (*domain.Booking, error) {
	logger.EnterMethod("bookingService.CreateBooking", "customerID", customerID, "workerID", req.WorkerID)

	customer, err := s.userRepo.GetByID(ctx, customerID)
	if err != nil {
		logger.ExitMethodWithError("bookingService.CreateBooking", err)
		return nil, fmt.Errorf("customer: %w", err)
	}
	worker, err := s.userRepo.GetByID(ctx, req.WorkerID)
	if err != nil {
		logger.ExitMethodWithError("bookingService.CreateBooking", err)
		return nil, fmt.Errorf("worker: %w", err)
	}
	if !worker.IsWorker() {
		err := fmt.Errorf("worker %w", domain.ErrNotFound)
		logger.ExitMethodWithError("bookingService.CreateBooking", err)
		return nil, err
	}
	work, err := s.workRepo.GetByID(ctx, req.WorkID)
	if err != nil {
		logger.ExitMethodWithError("bookingService.CreateBooking", err)
		return nil, err
	}

	now := s.clock.Now()
	workerID := worker.ID
	booking := &domain.Booking{
		CustomerID:             customer.ID,
		WorkerID:               &workerID,
		WorkID:                 work.ID,
		Description:            req.Description,
		ScheduledDate:          req.ScheduledDate,
		EstimatedDurationHours: work.EstimatedTimeHours,
		TotalAmount:            work.Charges,
		Status:                 domain.BookingStatusPending,
		CustomerAddress:        req.CustomerAddress,
		CustomerPhone:          req.CustomerPhone,
		SpecialInstructions:    req.SpecialInstructions,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		logger.ExitMethodWithError("bookingService.CreateBooking", err)
		return nil, fmt.Errorf("create booking: %w", err)
	}
	s.notifier.Notify(ctx, bookingEvent(EventBookingCreated, booking, "New booking request", now))

	logger.ExitMethod("bookingService.CreateBooking", "bookingID", booking.ID)
	return booking, nil
}

func (s *bookingService) GetBooking(ctx context.Context, id int32) (*domain.Booking, error) {
	return s.bookingRepo.GetByID(ctx, id)
}

func (s *bookingService) ListBookings(ctx context.Context) ([]domain.Booking, error) {
	return s.bookingRepo.List(ctx)
}

func (s *bookingService) ListCustomerBookings(ctx context.Context, customerID int32) ([]domain.Booking, error) {
	return s.bookingRepo.ListByCustomer(ctx, customerID)
}

func (s *bookingService) ListWorkerBookings(ctx context.Context, workerID int32) ([]domain.Booking, error) {
	return s.bookingRepo.ListByWorker(ctx, workerID)
}

// ListPendingForWorker returns bookings waiting on the worker: manual
// requests still PENDING and auto-assignments not yet answered.
func (s *bookingService) ListPendingForWorker(ctx context.Context, workerID int32) ([]domain.Booking, error) {
	var out []domain.Booking
	for _, status := range []domain.BookingStatus{domain.BookingStatusPending, domain.BookingStatusWorkerAssigned} {
		bookings, err := s.bookingRepo.ListByWorkerAndStatus(ctx, workerID, status)
		if err != nil {
			return nil, err
		}
		out = append(out, bookings...)
	}
	return out, nil
}

func (s *bookingService) ListAssignments(ctx context.Context, bookingID int32) ([]domain.WorkerAssignment, error) {
	if _, err := s.bookingRepo.GetByID(ctx, bookingID); err != nil {
		return nil, err
	}
	return s.assigner.ListAssignments(ctx, bookingID)
}

func (s *bookingService) GetCurrentAssignment(ctx context.Context, bookingID int32) (*domain.WorkerAssignment, error) {
	return s.assigner.GetCurrentAssignment(ctx, bookingID)
}

// RejectAssignedWorker closes the customer's current attempt and offers the
// booking to the next worker. When nobody is left the booking is cancelled
// and ErrNoWorkersAvailable is returned.
func (s *bookingService) RejectAssignedWorker(ctx context.Context, bookingID int32, reason string) (*domain.Booking, error) {
	logger.EnterMethod("bookingService.RejectAssignedWorker", "bookingID", bookingID)

	var (
		booking *domain.Booking
		worker  *domain.User
	)
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		booking, err = s.bookingRepo.GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		switch booking.Status {
		case domain.BookingStatusWorkerAssigned, domain.BookingStatusPending, domain.BookingStatusWorkerRejected:
		default:
			return fmt.Errorf("%w: cannot reject worker of a %s booking", domain.ErrInvalidTransition, booking.Status)
		}

		closed, err := s.assigner.RejectAssignedWorker(ctx, bookingID, reason)
		if err != nil {
			return err
		}
		// A manual booking has no open attempt; record one so the worker stays excluded.
		if !closed && booking.WorkerID != nil {
			if err := s.assigner.RecordCustomerRejection(ctx, bookingID, *booking.WorkerID, reason); err != nil {
				return err
			}
		}
		if booking.Status == domain.BookingStatusWorkerAssigned {
			if err := booking.Transition(domain.BookingStatusWorkerRejected, s.clock.Now()); err != nil {
				return err
			}
		}
		worker, err = s.reassign(ctx, booking)
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("bookingService.RejectAssignedWorker", err)
		return nil, err
	}

	if worker == nil {
		s.notifier.Notify(ctx, bookingEvent(EventBookingCancelled, booking, "No more available workers", booking.UpdatedAt))
		err := fmt.Errorf("booking %d cancelled: %w", bookingID, domain.ErrNoWorkersAvailable)
		logger.ExitMethodWithError("bookingService.RejectAssignedWorker", err)
		return nil, err
	}
	s.notifier.Notify(ctx, bookingEvent(EventBookingAssigned, booking, "New job assigned", booking.UpdatedAt))
	logger.ExitMethod("bookingService.RejectAssignedWorker", "workerID", worker.ID)
	return booking, nil
}

// AcceptWorkerAssignment confirms the booking for its current assignee.
func (s *bookingService) AcceptWorkerAssignment(ctx context.Context, bookingID, workerID int32) (*domain.Booking, error) {
	logger.EnterMethod("bookingService.AcceptWorkerAssignment", "bookingID", bookingID, "workerID", workerID)

	var booking *domain.Booking
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		booking, err = s.bookingRepo.GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		ok, err := s.assigner.AcceptWorkerAssignment(ctx, bookingID, workerID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAssignmentMismatch
		}
		if err := booking.Transition(domain.BookingStatusConfirmed, s.clock.Now()); err != nil {
			return err
		}
		return s.bookingRepo.Update(ctx, booking)
	})
	if err != nil {
		logger.ExitMethodWithError("bookingService.AcceptWorkerAssignment", err)
		return nil, err
	}

	s.notifier.Notify(ctx, bookingEvent(EventBookingStatusChanged, booking, "Worker accepted your booking", booking.UpdatedAt))
	logger.ExitMethod("bookingService.AcceptWorkerAssignment")
	return booking, nil
}

// RejectWorkerAssignment records the assignee's refusal and offers the
// booking to the next worker, cancelling it when nobody is left.
func (s *bookingService) RejectWorkerAssignment(ctx context.Context, bookingID, workerID int32, reason string) (*domain.Booking, error) {
	logger.EnterMethod("bookingService.RejectWorkerAssignment", "bookingID", bookingID, "workerID", workerID)

	var (
		booking *domain.Booking
		worker  *domain.User
	)
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		booking, err = s.bookingRepo.GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		ok, err := s.assigner.RejectWorkerAssignment(ctx, bookingID, workerID, reason)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrAssignmentMismatch
		}
		if err := booking.Transition(domain.BookingStatusPending, s.clock.Now()); err != nil {
			return err
		}
		worker, err = s.reassign(ctx, booking)
		return err
	})
	if err != nil {
		logger.ExitMethodWithError("bookingService.RejectWorkerAssignment", err)
		return nil, err
	}

	s.notifyReassignment(ctx, booking, worker)
	logger.ExitMethod("bookingService.RejectWorkerAssignment", "status", booking.Status)
	return booking, nil
}

// ExpireStaleAssignments closes attempts left unanswered since before
// olderThan ago and moves each booking on to the next worker.
func (s *bookingService) ExpireStaleAssignments(ctx context.Context, olderThan time.Duration) (int, error) {
	stale, err := s.assigner.ListStaleAssignments(ctx, s.clock.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("list stale assignments: %w", err)
	}

	var (
		expired int
		errs    []error
	)
	for _, a := range stale {
		var (
			booking *domain.Booking
			worker  *domain.User
			closed  bool
		)
		err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
			var err error
			booking, err = s.bookingRepo.GetByIDForUpdate(ctx, a.BookingID)
			if err != nil {
				return err
			}
			if booking.Status != domain.BookingStatusWorkerAssigned {
				return nil
			}
			closed, err = s.assigner.ExpireAssignment(ctx, a.ID, a.BookingID)
			if err != nil || !closed {
				return err
			}
			if err := booking.Transition(domain.BookingStatusPending, s.clock.Now()); err != nil {
				return err
			}
			worker, err = s.reassign(ctx, booking)
			return err
		})
		if err != nil {
			logger.ErrorContext(ctx, "Failed to expire assignment", "assignment_id", a.ID, "booking_id", a.BookingID, "error", err)
			errs = append(errs, fmt.Errorf("assignment %d: %w", a.ID, err))
			continue
		}
		if !closed {
			continue
		}
		expired++
		s.notifyReassignment(ctx, booking, worker)
	}
	return expired, errors.Join(errs...)
}

// reassign offers the locked booking to the next eligible worker and persists
// it, cancelling the booking when nobody is left.
func (s *bookingService) reassign(ctx context.Context, booking *domain.Booking) (*domain.User, error) {
	work, err := s.workRepo.GetByID(ctx, booking.WorkID)
	if err != nil {
		return nil, err
	}
	worker, err := s.assigner.AssignBestWorker(ctx, booking, work)
	if err != nil {
		return nil, err
	}
	if worker == nil {
		booking.Cancel(s.clock.Now())
		logger.InfoContext(ctx, "No more available workers, booking cancelled", "booking_id", booking.ID)
	}
	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		return nil, err
	}
	return worker, nil
}

func (s *bookingService) notifyReassignment(ctx context.Context, booking *domain.Booking, worker *domain.User) {
	if worker == nil {
		s.notifier.Notify(ctx, bookingEvent(EventBookingCancelled, booking, "No more available workers", booking.UpdatedAt))
		return
	}
	s.notifier.Notify(ctx, bookingEvent(EventBookingAssigned, booking, "New job assigned", booking.UpdatedAt))
}

// UpdateBookingStatus overwrites the status outside the normal lifecycle.
func (s *bookingService) UpdateBookingStatus(ctx context.Context, id int32, status domain.BookingStatus) (*domain.Booking, error) {
	if _, err := domain.ParseBookingStatus(string(status)); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(ctx context.Context, b *domain.Booking) error {
		from := b.Status
		if err := b.SetStatus(status, s.clock.Now()); err != nil {
			return err
		}
		return s.closeOpenAttempt(ctx, b, from)
	})
}

func (s *bookingService) CancelBooking(ctx context.Context, id int32) (*domain.Booking, error) {
	return s.transition(ctx, id, domain.BookingStatusCancelled)
}

func (s *bookingService) AcceptBooking(ctx context.Context, id int32) (*domain.Booking, error) {
	return s.transition(ctx, id, domain.BookingStatusConfirmed)
}

func (s *bookingService) RejectBooking(ctx context.Context, id int32) (*domain.Booking, error) {
	return s.transition(ctx, id, domain.BookingStatusRejected)
}

func (s *bookingService) StartWork(ctx context.Context, id int32) (*domain.Booking, error) {
	return s.transition(ctx, id, domain.BookingStatusInProgress)
}

func (s *bookingService) CompleteWork(ctx context.Context, id int32) (*domain.Booking, error) {
	return s.transition(ctx, id, domain.BookingStatusCompleted)
}

// transition moves the booking along the lifecycle.
func (s *bookingService) transition(ctx context.Context, id int32, next domain.BookingStatus) (*domain.Booking, error) {
	return s.mutate(ctx, id, func(ctx context.Context, b *domain.Booking) error {
		from := b.Status
		if err := b.Transition(next, s.clock.Now()); err != nil {
			return err
		}
		return s.closeOpenAttempt(ctx, b, from)
	})
}

// closeOpenAttempt closes the open attempt once the booking has left
// WORKER_ASSIGNED, so no dead booking keeps a current assignment.
func (s *bookingService) closeOpenAttempt(ctx context.Context, b *domain.Booking, from domain.BookingStatus) error {
	if from != domain.BookingStatusWorkerAssigned || b.Status == domain.BookingStatusWorkerAssigned {
		return nil
	}
	var err error
	switch {
	case b.Status == domain.BookingStatusConfirmed && b.WorkerID != nil:
		_, err = s.assigner.AcceptWorkerAssignment(ctx, b.ID, *b.WorkerID)
	case b.Status == domain.BookingStatusRejected && b.WorkerID != nil:
		_, err = s.assigner.RejectWorkerAssignment(ctx, b.ID, *b.WorkerID, "Booking rejected")
	case b.Status == domain.BookingStatusCancelled:
		_, err = s.assigner.RejectAssignedWorker(ctx, b.ID, "Booking cancelled")
	default:
		_, err = s.assigner.RejectAssignedWorker(ctx, b.ID, "Booking moved to "+string(b.Status))
	}
	return err
}

func (s *bookingService) mutate(ctx context.Context, id int32, fn func(ctx context.Context, b *domain.Booking) error) (*domain.Booking, error) {
	var booking *domain.Booking
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		booking, err = s.bookingRepo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(ctx, booking); err != nil {
			return err
		}
		return s.bookingRepo.Update(ctx, booking)
	})
	if err != nil {
		logger.WarnContext(ctx, "Booking update failed", "booking_id", id, "error", err)
		return nil, err
	}

	typ := EventBookingStatusChanged
	if booking.Status == domain.BookingStatusCancelled {
		typ = EventBookingCancelled
	}
	s.notifier.Notify(ctx, bookingEvent(typ, booking, "Booking status updated to "+string(booking.Status), booking.UpdatedAt))
	return booking, nil
}

func (s *bookingService) DeleteBooking(ctx context.Context, id int32) error {
	return s.txm.WithinTx(ctx, func(ctx context.Context) error {
		return s.bookingRepo.Delete(ctx, id)
	})
}
