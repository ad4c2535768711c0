package repository

import (
	"context"
	"time"

	"bluecollar-backend/internal/domain"
)

// TxManager runs fn inside a single store transaction. Repositories called
// with the context handed to fn take part in that transaction; nested calls
// reuse it.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// ListAvailableWorkers returns available workers rated at least
	// minRating, skipping excludeIDs, ordered by rating then experience,
	// best first.
	ListAvailableWorkers(ctx context.Context, minRating float64, excludeIDs []int32) ([]domain.User, error)
}

type WorkRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Work, error)
}

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id int32) (*domain.Booking, error)
	// GetByIDForUpdate locks the booking row until the surrounding
	// transaction ends.
	GetByIDForUpdate(ctx context.Context, id int32) (*domain.Booking, error)
	Update(ctx context.Context, booking *domain.Booking) error
	Delete(ctx context.Context, id int32) error
	List(ctx context.Context) ([]domain.Booking, error)
	ListByCustomer(ctx context.Context, customerID int32) ([]domain.Booking, error)
	ListByWorker(ctx context.Context, workerID int32) ([]domain.Booking, error)
	ListByWorkerAndStatus(ctx context.Context, workerID int32, status domain.BookingStatus) ([]domain.Booking, error)
}

type AssignmentRepository interface {
	Create(ctx context.Context, assignment *domain.WorkerAssignment) error
	Update(ctx context.Context, assignment *domain.WorkerAssignment) error
	// GetCurrent returns the booking's ASSIGNED row or domain.ErrNotFound.
	GetCurrent(ctx context.Context, bookingID int32) (*domain.WorkerAssignment, error)
	ListByBooking(ctx context.Context, bookingID int32) ([]domain.WorkerAssignment, error)
	ListByWorker(ctx context.Context, workerID int32) ([]domain.WorkerAssignment, error)
	// ListExcludedWorkerIDs returns workers who rejected or let the booking expire.
	ListExcludedWorkerIDs(ctx context.Context, bookingID int32) ([]int32, error)
	// GetMaxOrder returns the highest assignment_order for the booking, 0 when none.
	GetMaxOrder(ctx context.Context, bookingID int32) (int32, error)
	// ListStale returns ASSIGNED rows older than assignedBefore whose booking
	// is still waiting on the worker.
	ListStale(ctx context.Context, assignedBefore time.Time) ([]domain.WorkerAssignment, error)
}

type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id int32) (*domain.Wallet, error)
	// GetByIDForUpdate locks the wallet row until the surrounding
	// transaction ends.
	GetByIDForUpdate(ctx context.Context, id int32) (*domain.Wallet, error)
	GetByUserID(ctx context.Context, userID int32) (*domain.Wallet, error)
	Update(ctx context.Context, wallet *domain.Wallet) error
	CreateTransaction(ctx context.Context, tx *domain.WalletTransaction) error
	ListTransactions(ctx context.Context, walletID int32, page, pageSize int32) ([]domain.WalletTransaction, int32, error)
}

type NegotiationRepository interface {
	Create(ctx context.Context, negotiation *domain.Negotiation) error
	GetByID(ctx context.Context, id int32) (*domain.Negotiation, error)
	Update(ctx context.Context, negotiation *domain.Negotiation) error
	// GetPendingByBooking returns the booking's open negotiation or domain.ErrNotFound.
	GetPendingByBooking(ctx context.Context, bookingID int32) (*domain.Negotiation, error)
	ListByCustomer(ctx context.Context, customerID int32) ([]domain.Negotiation, error)
	ListByWorker(ctx context.Context, workerID int32) ([]domain.Negotiation, error)
	ListStale(ctx context.Context, createdBefore time.Time) ([]domain.Negotiation, error)
}
