package domain

import (
	"fmt"
	"time"
)

type AssignmentStatus string

const (
	AssignmentStatusAssigned           AssignmentStatus = "ASSIGNED"
	AssignmentStatusAccepted           AssignmentStatus = "ACCEPTED"
	AssignmentStatusRejectedByWorker   AssignmentStatus = "REJECTED_BY_WORKER"
	AssignmentStatusRejectedByCustomer AssignmentStatus = "REJECTED_BY_CUSTOMER"
	AssignmentStatusExpired            AssignmentStatus = "EXPIRED"
)

// ExcludesWorker reports whether a worker whose assignment ended in this
// status must not be offered the same booking again.
func (s AssignmentStatus) ExcludesWorker() bool {
	switch s {
	case AssignmentStatusRejectedByWorker, AssignmentStatusRejectedByCustomer, AssignmentStatusExpired:
		return true
	}
	return false
}

// WorkerAssignment is one attempt to place a worker on a booking. Rows are
// append-only; only the response fields change once.
type WorkerAssignment struct {
	ID              int32            `json:"id"`
	BookingID       int32            `json:"booking_id"`
	WorkerID        int32            `json:"worker_id"`
	AssignmentOrder int32            `json:"assignment_order"`
	Status          AssignmentStatus `json:"status"`
	RejectionReason string           `json:"rejection_reason,omitempty"`
	AssignedAt      time.Time        `json:"assigned_at"`
	ResponseAt      *time.Time       `json:"response_at,omitempty"`
}

func NewAssignment(bookingID, workerID, order int32, at time.Time) *WorkerAssignment {
	return &WorkerAssignment{
		BookingID:       bookingID,
		WorkerID:        workerID,
		AssignmentOrder: order,
		Status:          AssignmentStatusAssigned,
		AssignedAt:      at,
	}
}

// Close records the response to an open assignment. A closed assignment
// never changes again.
func (a *WorkerAssignment) Close(status AssignmentStatus, reason string, at time.Time) error {
	if a.Status != AssignmentStatusAssigned {
		return fmt.Errorf("%w: assignment %d is already %s", ErrInvalidTransition, a.ID, a.Status)
	}
	if status == AssignmentStatusAssigned {
		return fmt.Errorf("%w: cannot close assignment as %s", ErrInvalidTransition, status)
	}
	a.Status = status
	a.RejectionReason = reason
	responded := at
	a.ResponseAt = &responded
	return nil
}
