package service

import (
	"context"
	"time"

	"bluecollar-backend/internal/domain"
	"bluecollar-backend/internal/security"

	"github.com/shopspring/decimal"
)

// AutoBookingRequest asks the platform to pick the worker.
type AutoBookingRequest struct {
	WorkID              int32
	Description         string
	ScheduledDate       time.Time
	CustomerAddress     string
	CustomerPhone       string
	SpecialInstructions string
}

// BookingRequest books a worker chosen by the customer.
type BookingRequest struct {
	WorkID              int32
	WorkerID            int32
	Description         string
	ScheduledDate       time.Time
	CustomerAddress     string
	CustomerPhone       string
	SpecialInstructions string
}

// BookingResult is returned by auto-booking. AssignmentPending is set when
// no worker was placed; AssignmentError carries the failure when the attempt
// errored rather than finding no candidate, in which case retrying may help.
type BookingResult struct {
	Booking           *domain.Booking `json:"booking"`
	AssignedWorker    *domain.User    `json:"assigned_worker,omitempty"`
	AssignmentPending bool            `json:"assignment_pending"`
	AssignmentError   string          `json:"assignment_error,omitempty"`
}

type AuthService interface {
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	ResolvePrincipal(ctx context.Context, token string) (*security.Principal, error)
}

type BookingService interface {
	CreateAutoBooking(ctx context.Context, req AutoBookingRequest, customerID int32) (*BookingResult, error)
	CreateBooking(ctx context.Context, req BookingRequest, customerID int32) (*domain.Booking, error)
	GetBooking(ctx context.Context, id int32) (*domain.Booking, error)
	ListBookings(ctx context.Context) ([]domain.Booking, error)
	ListCustomerBookings(ctx context.Context, customerID int32) ([]domain.Booking, error)
	ListWorkerBookings(ctx context.Context, workerID int32) ([]domain.Booking, error)
	ListPendingForWorker(ctx context.Context, workerID int32) ([]domain.Booking, error)
	ListAssignments(ctx context.Context, bookingID int32) ([]domain.WorkerAssignment, error)
	GetCurrentAssignment(ctx context.Context, bookingID int32) (*domain.WorkerAssignment, error)

	RejectAssignedWorker(ctx context.Context, bookingID int32, reason string) (*domain.Booking, error)
	AcceptWorkerAssignment(ctx context.Context, bookingID, workerID int32) (*domain.Booking, error)
	RejectWorkerAssignment(ctx context.Context, bookingID, workerID int32, reason string) (*domain.Booking, error)
	ExpireStaleAssignments(ctx context.Context, olderThan time.Duration) (int, error)

	UpdateBookingStatus(ctx context.Context, id int32, status domain.BookingStatus) (*domain.Booking, error)
	CancelBooking(ctx context.Context, id int32) (*domain.Booking, error)
	AcceptBooking(ctx context.Context, id int32) (*domain.Booking, error)
	RejectBooking(ctx context.Context, id int32) (*domain.Booking, error)
	StartWork(ctx context.Context, id int32) (*domain.Booking, error)
	CompleteWork(ctx context.Context, id int32) (*domain.Booking, error)
	DeleteBooking(ctx context.Context, id int32) error
}

// AssignmentEngine picks workers for bookings and records every attempt.
// Methods that close an attempt report false when the booking has no open
// attempt matching the caller.
type AssignmentEngine interface {
	AssignBestWorker(ctx context.Context, booking *domain.Booking, work *domain.Work) (*domain.User, error)
	RejectAssignedWorker(ctx context.Context, bookingID int32, reason string) (bool, error)
	RecordCustomerRejection(ctx context.Context, bookingID, workerID int32, reason string) error
	AcceptWorkerAssignment(ctx context.Context, bookingID, workerID int32) (bool, error)
	RejectWorkerAssignment(ctx context.Context, bookingID, workerID int32, reason string) (bool, error)
	ExpireAssignment(ctx context.Context, assignmentID, bookingID int32) (bool, error)
	GetCurrentAssignment(ctx context.Context, bookingID int32) (*domain.WorkerAssignment, error)
	ListAssignments(ctx context.Context, bookingID int32) ([]domain.WorkerAssignment, error)
	ListStaleAssignments(ctx context.Context, assignedBefore time.Time) ([]domain.WorkerAssignment, error)
}

type WalletService interface {
	GetOrCreateWallet(ctx context.Context, userID int32) (*domain.Wallet, error)
	GetWallet(ctx context.Context, walletID int32) (*domain.Wallet, error)
	GetWalletByUserID(ctx context.Context, userID int32) (*domain.Wallet, error)
	DepositToWallet(ctx context.Context, walletID int32, amount decimal.Decimal, description, referenceID string) (*domain.Wallet, error)
	WithdrawFromWallet(ctx context.Context, walletID int32, amount decimal.Decimal, description, referenceID string) (*domain.Wallet, error)
	MoveMoneyToEscrow(ctx context.Context, walletID, bookingID int32, amount decimal.Decimal) (*domain.Wallet, error)
	ReleaseMoneyFromEscrow(ctx context.Context, walletID, bookingID int32, amount, commission decimal.Decimal) (*domain.Wallet, error)
	RefundMoneyFromEscrow(ctx context.Context, walletID, bookingID int32, amount decimal.Decimal) (*domain.Wallet, error)
	ListTransactions(ctx context.Context, walletID int32, page, pageSize int32) ([]domain.WalletTransaction, int32, error)
}

type NegotiationService interface {
	InitiateNegotiation(ctx context.Context, bookingID, customerID int32, proposedAmount decimal.Decimal, message string) (*domain.Negotiation, error)
	RespondToNegotiation(ctx context.Context, negotiationID, workerID int32, status domain.NegotiationStatus, response string) (*domain.Negotiation, error)
	CancelNegotiation(ctx context.Context, negotiationID, customerID int32) (*domain.Negotiation, error)
	ListCustomerNegotiations(ctx context.Context, customerID int32) ([]domain.Negotiation, error)
	ListWorkerNegotiations(ctx context.Context, workerID int32) ([]domain.Negotiation, error)
	ExpireStaleNegotiations(ctx context.Context, olderThan time.Duration) (int, error)
}
