package service

import (
	"context"
	"time"

	"bluecollar-backend/internal/domain"
	"bluecollar-backend/internal/logger"
)

const (
	EventBookingCreated       = "booking.created"
	EventBookingAssigned      = "booking.assigned"
	EventBookingStatusChanged = "booking.status_changed"
	EventBookingCancelled     = "booking.cancelled"
	EventWalletCredited       = "wallet.credited"
	EventWalletDebited        = "wallet.debited"
	EventEscrowDeposited      = "wallet.escrow.deposited"
	EventEscrowReleased       = "wallet.escrow.released"
	EventEscrowRefunded       = "wallet.escrow.refunded"
	EventNegotiationCreated   = "negotiation.created"
	EventNegotiationResolved  = "negotiation.resolved"
)

// Event is the payload published for every domain change worth telling
// customers and workers about.
type Event struct {
	Type          string    `json:"type"`
	BookingID     int32     `json:"booking_id,omitempty"`
	WalletID      int32     `json:"wallet_id,omitempty"`
	NegotiationID int32     `json:"negotiation_id,omitempty"`
	UserID        int32     `json:"user_id,omitempty"`
	WorkerID      int32     `json:"worker_id,omitempty"`
	Status        string    `json:"status,omitempty"`
	Amount        string    `json:"amount,omitempty"`
	Message       string    `json:"message,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// EventPublisher delivers events to a message broker.
type EventPublisher interface {
	PublishJSON(ctx context.Context, routingKey string, v any) error
}

// Notifier records domain events. Delivery failures never fail the caller.
type Notifier interface {
	Notify(ctx context.Context, event Event)
}

type notifier struct {
	publisher EventPublisher
}

// NewNotifier logs every event and forwards it to publisher when one is given.
func NewNotifier(publisher EventPublisher) Notifier {
	return &notifier{publisher: publisher}
}

func (n *notifier) Notify(ctx context.Context, event Event) {
	logger.InfoContext(ctx, "Notification",
		"type", event.Type,
		"booking_id", event.BookingID,
		"wallet_id", event.WalletID,
		"user_id", event.UserID,
		"worker_id", event.WorkerID,
		"status", event.Status,
		"message", event.Message,
	)
	if n.publisher == nil {
		return
	}
	if err := n.publisher.PublishJSON(ctx, event.Type, event); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "type", event.Type, "error", err)
	}
}

func bookingEvent(typ string, b *domain.Booking, message string, at time.Time) Event {
	e := Event{
		Type:       typ,
		BookingID:  b.ID,
		UserID:     b.CustomerID,
		Status:     string(b.Status),
		Amount:     b.TotalAmount.StringFixed(2),
		Message:    message,
		OccurredAt: at,
	}
	if b.WorkerID != nil {
		e.WorkerID = *b.WorkerID
	}
	return e
}
