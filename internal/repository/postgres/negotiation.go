package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bluecollar-backend/internal/domain"
	"bluecollar-backend/internal/repository"
)

type negotiationRepository struct {
	db *sql.DB
}

func NewNegotiationRepository(db *sql.DB) repository.NegotiationRepository {
	return &negotiationRepository{db: db}
}

const negotiationColumns = `id, booking_id, customer_id, worker_id, original_amount, proposed_amount,
	COALESCE(customer_message, ''), COALESCE(worker_response, ''), status, created_at, responded_at`

func scanNegotiation(row scanner) (*domain.Negotiation, error) {
	n := &domain.Negotiation{}
	err := row.Scan(&n.ID, &n.BookingID, &n.CustomerID, &n.WorkerID, &n.OriginalAmount, &n.ProposedAmount,
		&n.CustomerMessage, &n.WorkerResponse, &n.Status, &n.CreatedAt, &n.RespondedAt)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (r *negotiationRepository) Create(ctx context.Context, n *domain.Negotiation) error {
	query := `INSERT INTO negotiations (booking_id, customer_id, worker_id, original_amount, proposed_amount,
	          customer_message, status, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	err := conn(ctx, r.db).QueryRowContext(ctx, query, n.BookingID, n.CustomerID, n.WorkerID, n.OriginalAmount,
		n.ProposedAmount, n.CustomerMessage, n.Status, n.CreatedAt).Scan(&n.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("booking %d: %w", n.BookingID, domain.ErrNegotiationInProgress)
	}
	return err
}

func (r *negotiationRepository) GetByID(ctx context.Context, id int32) (*domain.Negotiation, error) {
	query := `SELECT ` + negotiationColumns + ` FROM negotiations WHERE id = $1`
	n, err := scanNegotiation(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "negotiation")
	}
	return n, nil
}

func (r *negotiationRepository) Update(ctx context.Context, n *domain.Negotiation) error {
	query := `UPDATE negotiations SET worker_response=$1, status=$2, responded_at=$3 WHERE id=$4`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, n.WorkerResponse, n.Status, n.RespondedAt, n.ID)
	if err != nil {
		return err
	}
	return expectOneRow(res, "negotiation")
}

func (r *negotiationRepository) GetPendingByBooking(ctx context.Context, bookingID int32) (*domain.Negotiation, error) {
	query := `SELECT ` + negotiationColumns + ` FROM negotiations WHERE booking_id = $1 AND status = 'PENDING'`
	n, err := scanNegotiation(conn(ctx, r.db).QueryRowContext(ctx, query, bookingID))
	if err != nil {
		return nil, notFound(err, "pending negotiation")
	}
	return n, nil
}

func (r *negotiationRepository) ListByCustomer(ctx context.Context, customerID int32) ([]domain.Negotiation, error) {
	return r.list(ctx, `SELECT `+negotiationColumns+` FROM negotiations WHERE customer_id = $1 ORDER BY created_at DESC, id DESC`, customerID)
}

func (r *negotiationRepository) ListByWorker(ctx context.Context, workerID int32) ([]domain.Negotiation, error) {
	return r.list(ctx, `SELECT `+negotiationColumns+` FROM negotiations WHERE worker_id = $1 ORDER BY created_at DESC, id DESC`, workerID)
}

func (r *negotiationRepository) ListStale(ctx context.Context, createdBefore time.Time) ([]domain.Negotiation, error) {
	return r.list(ctx, `SELECT `+negotiationColumns+` FROM negotiations WHERE status = 'PENDING' AND created_at < $1 ORDER BY created_at ASC`, createdBefore)
}

func (r *negotiationRepository) list(ctx context.Context, query string, args ...any) ([]domain.Negotiation, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var negotiations []domain.Negotiation
	for rows.Next() {
		n, err := scanNegotiation(rows)
		if err != nil {
			return nil, err
		}
		negotiations = append(negotiations, *n)
	}
	return negotiations, rows.Err()
}
