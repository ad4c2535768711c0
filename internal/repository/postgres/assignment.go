package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bluecollar-backend/internal/domain"
	"bluecollar-backend/internal/repository"
)

type assignmentRepository struct {
	db *sql.DB
}

func NewAssignmentRepository(db *sql.DB) repository.AssignmentRepository {
	return &assignmentRepository{db: db}
}

const assignmentColumns = `id, booking_id, worker_id, assignment_order, status, COALESCE(rejection_reason, ''), assigned_at, response_at`

func scanAssignment(row scanner) (*domain.WorkerAssignment, error) {
	a := &domain.WorkerAssignment{}
	err := row.Scan(&a.ID, &a.BookingID, &a.WorkerID, &a.AssignmentOrder, &a.Status, &a.RejectionReason, &a.AssignedAt, &a.ResponseAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *assignmentRepository) Create(ctx context.Context, a *domain.WorkerAssignment) error {
	query := `INSERT INTO worker_assignments (booking_id, worker_id, assignment_order, status, rejection_reason, assigned_at, response_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`
	err := conn(ctx, r.db).QueryRowContext(ctx, query, a.BookingID, a.WorkerID, a.AssignmentOrder, a.Status,
		a.RejectionReason, a.AssignedAt, a.ResponseAt).Scan(&a.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("booking %d already has an open or equally ordered assignment: %w", a.BookingID, domain.ErrConflict)
	}
	return err
}

// Update writes the response fields. Closed rows are never touched again.
func (r *assignmentRepository) Update(ctx context.Context, a *domain.WorkerAssignment) error {
	query := `UPDATE worker_assignments SET status=$1, rejection_reason=$2, response_at=$3
	          WHERE id=$4 AND status = 'ASSIGNED'`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, a.Status, a.RejectionReason, a.ResponseAt, a.ID)
	if err != nil {
		return err
	}
	return expectOneRow(res, "open assignment")
}

func (r *assignmentRepository) GetCurrent(ctx context.Context, bookingID int32) (*domain.WorkerAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM worker_assignments WHERE booking_id = $1 AND status = 'ASSIGNED'`
	a, err := scanAssignment(conn(ctx, r.db).QueryRowContext(ctx, query, bookingID))
	if err != nil {
		return nil, notFound(err, "current assignment")
	}
	return a, nil
}

func (r *assignmentRepository) ListByBooking(ctx context.Context, bookingID int32) ([]domain.WorkerAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM worker_assignments WHERE booking_id = $1 ORDER BY assignment_order ASC`
	return r.list(ctx, query, bookingID)
}

func (r *assignmentRepository) ListByWorker(ctx context.Context, workerID int32) ([]domain.WorkerAssignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM worker_assignments WHERE worker_id = $1 ORDER BY assigned_at DESC, id DESC`
	return r.list(ctx, query, workerID)
}

func (r *assignmentRepository) ListExcludedWorkerIDs(ctx context.Context, bookingID int32) ([]int32, error) {
	query := `SELECT DISTINCT worker_id FROM worker_assignments
	          WHERE booking_id = $1 AND status IN ('REJECTED_BY_WORKER', 'REJECTED_BY_CUSTOMER', 'EXPIRED')
	          ORDER BY worker_id`
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int32
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *assignmentRepository) GetMaxOrder(ctx context.Context, bookingID int32) (int32, error) {
	var maxOrder int32
	query := `SELECT COALESCE(MAX(assignment_order), 0) FROM worker_assignments WHERE booking_id = $1`
	err := conn(ctx, r.db).QueryRowContext(ctx, query, bookingID).Scan(&maxOrder)
	return maxOrder, err
}

func (r *assignmentRepository) ListStale(ctx context.Context, assignedBefore time.Time) ([]domain.WorkerAssignment, error) {
	query := `SELECT wa.id, wa.booking_id, wa.worker_id, wa.assignment_order, wa.status, COALESCE(wa.rejection_reason, ''),
	          wa.assigned_at, wa.response_at
	          FROM worker_assignments wa
	          JOIN bookings b ON b.id = wa.booking_id
	          WHERE wa.status = 'ASSIGNED' AND b.status = 'WORKER_ASSIGNED' AND wa.assigned_at < $1
	          ORDER BY wa.assigned_at ASC`
	return r.list(ctx, query, assignedBefore)
}

func (r *assignmentRepository) list(ctx context.Context, query string, args ...any) ([]domain.WorkerAssignment, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []domain.WorkerAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}
