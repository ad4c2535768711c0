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

	"github.com/shopspring/decimal"
)

type negotiationService struct {
	txm             repository.TxManager
	negotiationRepo repository.NegotiationRepository
	bookingRepo     repository.BookingRepository
	notifier        Notifier
	clock           clock.Clock
}

func NewNegotiationService(
	txm repository.TxManager,
	negotiationRepo repository.NegotiationRepository,
	bookingRepo repository.BookingRepository,
	notifier Notifier,
	clk clock.Clock,
) NegotiationService {
	return &negotiationService{
		txm:             txm,
		negotiationRepo: negotiationRepo,
		bookingRepo:     bookingRepo,
		notifier:        notifier,
		clock:           clk,
	}
}

// InitiateNegotiation opens a price proposal from the booking's customer to
// its worker. Only one proposal per booking may be open at a time.
func (s *negotiationService) InitiateNegotiation(ctx context.Context, bookingID, customerID int32, proposedAmount decimal.Decimal, message string) (*domain.Negotiation, error) {
	if !proposedAmount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	var negotiation *domain.Negotiation
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		booking, err := s.bookingRepo.GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if booking.CustomerID != customerID {
			return fmt.Errorf("%w: booking does not belong to customer", domain.ErrUnauthorized)
		}
		if booking.WorkerID == nil {
			return domain.ErrNoWorkerAssigned
		}
		if booking.Status.IsTerminal() {
			return fmt.Errorf("%w: booking is %s", domain.ErrInvalidStatus, booking.Status)
		}

		_, err = s.negotiationRepo.GetPendingByBooking(ctx, bookingID)
		if err == nil {
			return domain.ErrNegotiationInProgress
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		negotiation = &domain.Negotiation{
			BookingID:       bookingID,
			CustomerID:      customerID,
			WorkerID:        *booking.WorkerID,
			OriginalAmount:  booking.TotalAmount,
			ProposedAmount:  proposedAmount,
			CustomerMessage: message,
			Status:          domain.NegotiationStatusPending,
			CreatedAt:       s.clock.Now(),
		}
		return s.negotiationRepo.Create(ctx, negotiation)
	})
	if err != nil {
		logger.WarnContext(ctx, "Negotiation not started", "booking_id", bookingID, "error", err)
		return nil, err
	}

	s.notifyNegotiation(ctx, EventNegotiationCreated, negotiation)
	return negotiation, nil
}

// RespondToNegotiation lets the worker accept or reject a proposal. An
// accepted proposal becomes the booking's total amount.
func (s *negotiationService) RespondToNegotiation(ctx context.Context, negotiationID, workerID int32, status domain.NegotiationStatus, response string) (*domain.Negotiation, error) {
	if status != domain.NegotiationStatusAccepted && status != domain.NegotiationStatusRejected {
		return nil, fmt.Errorf("%w: response must be %s or %s", domain.ErrInvalidStatus,
			domain.NegotiationStatusAccepted, domain.NegotiationStatusRejected)
	}

	var negotiation *domain.Negotiation
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		negotiation, err = s.negotiationRepo.GetByID(ctx, negotiationID)
		if err != nil {
			return err
		}
		if negotiation.WorkerID != workerID {
			return fmt.Errorf("%w: negotiation does not belong to worker", domain.ErrUnauthorized)
		}
		now := s.clock.Now()
		if err := negotiation.Resolve(status, response, now); err != nil {
			return err
		}
		if err := s.negotiationRepo.Update(ctx, negotiation); err != nil {
			return err
		}
		if status != domain.NegotiationStatusAccepted {
			return nil
		}

		booking, err := s.bookingRepo.GetByIDForUpdate(ctx, negotiation.BookingID)
		if err != nil {
			return err
		}
		booking.TotalAmount = negotiation.ProposedAmount
		booking.UpdatedAt = now
		return s.bookingRepo.Update(ctx, booking)
	})
	if err != nil {
		logger.WarnContext(ctx, "Negotiation response failed", "negotiation_id", negotiationID, "error", err)
		return nil, err
	}

	s.notifyNegotiation(ctx, EventNegotiationResolved, negotiation)
	return negotiation, nil
}

func (s *negotiationService) CancelNegotiation(ctx context.Context, negotiationID, customerID int32) (*domain.Negotiation, error) {
	var negotiation *domain.Negotiation
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		negotiation, err = s.negotiationRepo.GetByID(ctx, negotiationID)
		if err != nil {
			return err
		}
		if negotiation.CustomerID != customerID {
			return fmt.Errorf("%w: negotiation does not belong to customer", domain.ErrUnauthorized)
		}
		if err := negotiation.Resolve(domain.NegotiationStatusCancelled, "", s.clock.Now()); err != nil {
			return err
		}
		return s.negotiationRepo.Update(ctx, negotiation)
	})
	if err != nil {
		return nil, err
	}

	s.notifyNegotiation(ctx, EventNegotiationResolved, negotiation)
	return negotiation, nil
}

func (s *negotiationService) ListCustomerNegotiations(ctx context.Context, customerID int32) ([]domain.Negotiation, error) {
	return s.negotiationRepo.ListByCustomer(ctx, customerID)
}

func (s *negotiationService) ListWorkerNegotiations(ctx context.Context, workerID int32) ([]domain.Negotiation, error) {
	return s.negotiationRepo.ListByWorker(ctx, workerID)
}

// ExpireStaleNegotiations closes proposals the worker never answered.
func (s *negotiationService) ExpireStaleNegotiations(ctx context.Context, olderThan time.Duration) (int, error) {
	now := s.clock.Now()
	stale, err := s.negotiationRepo.ListStale(ctx, now.Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("list stale negotiations: %w", err)
	}

	var (
		expired int
		errs    []error
	)
	for i := range stale {
		n := &stale[i]
		if err := n.Resolve(domain.NegotiationStatusExpired, "", now); err != nil {
			continue
		}
		if err := s.negotiationRepo.Update(ctx, n); err != nil {
			logger.ErrorContext(ctx, "Failed to expire negotiation", "negotiation_id", n.ID, "error", err)
			errs = append(errs, fmt.Errorf("negotiation %d: %w", n.ID, err))
			continue
		}
		expired++
		s.notifyNegotiation(ctx, EventNegotiationResolved, n)
	}
	return expired, errors.Join(errs...)
}

func (s *negotiationService) notifyNegotiation(ctx context.Context, typ string, n *domain.Negotiation) {
	at := n.CreatedAt
	if n.RespondedAt != nil {
		at = *n.RespondedAt
	}
	s.notifier.Notify(ctx, Event{
		Type:          typ,
		NegotiationID: n.ID,
		BookingID:     n.BookingID,
		UserID:        n.CustomerID,
		WorkerID:      n.WorkerID,
		Status:        string(n.Status),
		Amount:        n.ProposedAmount.StringFixed(2),
		Message:       n.CustomerMessage,
		OccurredAt:    at,
	})
}
