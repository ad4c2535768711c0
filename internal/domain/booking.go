package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending        BookingStatus = "PENDING"
	BookingStatusWorkerAssigned BookingStatus = "WORKER_ASSIGNED"
	BookingStatusWorkerRejected BookingStatus = "WORKER_REJECTED"
	BookingStatusConfirmed      BookingStatus = "CONFIRMED"
	BookingStatusInProgress     BookingStatus = "IN_PROGRESS"
	BookingStatusCompleted      BookingStatus = "COMPLETED"
	BookingStatusCancelled      BookingStatus = "CANCELLED"
	BookingStatusRejected       BookingStatus = "REJECTED"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending: {
		BookingStatusWorkerAssigned, BookingStatusConfirmed, BookingStatusRejected, BookingStatusCancelled,
	},
	BookingStatusWorkerAssigned: {
		BookingStatusConfirmed, BookingStatusWorkerRejected, BookingStatusPending, BookingStatusRejected, BookingStatusCancelled,
	},
	BookingStatusWorkerRejected: {
		BookingStatusWorkerAssigned, BookingStatusCancelled,
	},
	BookingStatusConfirmed: {
		BookingStatusInProgress, BookingStatusRejected, BookingStatusCancelled,
	},
	BookingStatusInProgress: {
		BookingStatusCompleted, BookingStatusCancelled,
	},
}

func ParseBookingStatus(s string) (BookingStatus, error) {
	st := BookingStatus(s)
	if _, ok := bookingTransitions[st]; ok || st.IsTerminal() {
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// IsTerminal reports whether no further transitions are allowed.
func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled || s == BookingStatusRejected
}

// RequiresWorker reports whether a booking in this status must reference a worker.
func (s BookingStatus) RequiresWorker() bool {
	switch s {
	case BookingStatusWorkerAssigned, BookingStatusConfirmed, BookingStatusInProgress, BookingStatusCompleted:
		return true
	}
	return false
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Booking struct {
	ID                     int32           `json:"id"`
	CustomerID             int32           `json:"customer_id"`
	WorkerID               *int32          `json:"worker_id,omitempty"`
	WorkID                 int32           `json:"work_id"`
	Description            string          `json:"description"`
	ScheduledDate          time.Time       `json:"scheduled_date"`
	EstimatedDurationHours float64         `json:"estimated_duration_hours"`
	TotalAmount            decimal.Decimal `json:"total_amount"`
	Status                 BookingStatus   `json:"status"`
	CustomerAddress        string          `json:"customer_address"`
	CustomerPhone          string          `json:"customer_phone"`
	SpecialInstructions    string          `json:"special_instructions"`
	CreatedAt              time.Time       `json:"created_at"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

// AssignWorker records workerID as the booking's worker and moves it to WORKER_ASSIGNED.
func (b *Booking) AssignWorker(workerID int32, at time.Time) {
	id := workerID
	b.WorkerID = &id
	b.Status = BookingStatusWorkerAssigned
	b.UpdatedAt = at
}

// Transition moves the booking along the lifecycle, refusing moves the
// lifecycle does not allow.
func (b *Booking) Transition(next BookingStatus, at time.Time) error {
	if !b.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, b.Status, next)
	}
	return b.SetStatus(next, at)
}

// SetStatus overwrites the status without consulting the lifecycle table.
// It still refuses statuses that need a worker when none is recorded.
func (b *Booking) SetStatus(status BookingStatus, at time.Time) error {
	if status.RequiresWorker() && b.WorkerID == nil {
		return fmt.Errorf("%w: %s requires an assigned worker", ErrInvalidTransition, status)
	}
	b.Status = status
	b.UpdatedAt = at
	return nil
}

// Cancel ends the booking after reassignment ran out of candidates.
func (b *Booking) Cancel(at time.Time) {
	b.WorkerID = nil
	b.Status = BookingStatusCancelled
	b.UpdatedAt = at
}

func (b *Booking) IsWorker(workerID int32) bool {
	return b.WorkerID != nil && *b.WorkerID == workerID
}
