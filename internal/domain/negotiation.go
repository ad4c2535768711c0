package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type NegotiationStatus string

const (
	NegotiationStatusPending   NegotiationStatus = "PENDING"
	NegotiationStatusAccepted  NegotiationStatus = "ACCEPTED"
	NegotiationStatusRejected  NegotiationStatus = "REJECTED"
	NegotiationStatusCancelled NegotiationStatus = "CANCELLED"
	NegotiationStatusExpired   NegotiationStatus = "EXPIRED"
)

// Negotiation is a customer's price proposal on a booking, answered by the
// booking's worker.
type Negotiation struct {
	ID              int32             `json:"id"`
	BookingID       int32             `json:"booking_id"`
	CustomerID      int32             `json:"customer_id"`
	WorkerID        int32             `json:"worker_id"`
	OriginalAmount  decimal.Decimal   `json:"original_amount"`
	ProposedAmount  decimal.Decimal   `json:"proposed_amount"`
	CustomerMessage string            `json:"customer_message"`
	WorkerResponse  string            `json:"worker_response,omitempty"`
	Status          NegotiationStatus `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	RespondedAt     *time.Time        `json:"responded_at,omitempty"`
}

// Resolve closes a pending negotiation.
func (n *Negotiation) Resolve(status NegotiationStatus, response string, at time.Time) error {
	if n.Status != NegotiationStatusPending {
		return ErrNegotiationClosed
	}
	if status == NegotiationStatusPending {
		return fmt.Errorf("%w: cannot resolve negotiation as %s", ErrInvalidStatus, status)
	}
	n.Status = status
	if response != "" {
		n.WorkerResponse = response
	}
	responded := at
	n.RespondedAt = &responded
	return nil
}
