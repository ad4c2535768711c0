package postgres

import (
	"context"
	"database/sql"

	"bluecollar-backend/internal/domain"
	"bluecollar-backend/internal/repository"
)

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) repository.BookingRepository {
	return &bookingRepository{db: db}
}

const bookingColumns = `id, customer_id, worker_id, work_id, COALESCE(description, ''), scheduled_date,
	estimated_duration_hours, total_amount, status, COALESCE(customer_address, ''), COALESCE(customer_phone, ''),
	COALESCE(special_instructions, ''), created_at, updated_at`

func scanBooking(row scanner) (*domain.Booking, error) {
	b := &domain.Booking{}
	err := row.Scan(&b.ID, &b.CustomerID, &b.WorkerID, &b.WorkID, &b.Description, &b.ScheduledDate,
		&b.EstimatedDurationHours, &b.TotalAmount, &b.Status, &b.CustomerAddress, &b.CustomerPhone,
		&b.SpecialInstructions, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *bookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	query := `INSERT INTO bookings (customer_id, worker_id, work_id, description, scheduled_date, estimated_duration_hours,
	          total_amount, status, customer_address, customer_phone, special_instructions, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`
	return conn(ctx, r.db).QueryRowContext(ctx, query, b.CustomerID, b.WorkerID, b.WorkID, b.Description, b.ScheduledDate,
		b.EstimatedDurationHours, b.TotalAmount, b.Status, b.CustomerAddress, b.CustomerPhone, b.SpecialInstructions,
		b.CreatedAt, b.UpdatedAt).Scan(&b.ID)
}

func (r *bookingRepository) GetByID(ctx context.Context, id int32) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	b, err := scanBooking(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "booking")
	}
	return b, nil
}

func (r *bookingRepository) GetByIDForUpdate(ctx context.Context, id int32) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`
	b, err := scanBooking(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "booking")
	}
	return b, nil
}

func (r *bookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	query := `UPDATE bookings SET worker_id=$1, description=$2, scheduled_date=$3, estimated_duration_hours=$4,
	          total_amount=$5, status=$6, customer_address=$7, customer_phone=$8, special_instructions=$9, updated_at=$10
	          WHERE id=$11`
	res, err := conn(ctx, r.db).ExecContext(ctx, query, b.WorkerID, b.Description, b.ScheduledDate, b.EstimatedDurationHours,
		b.TotalAmount, b.Status, b.CustomerAddress, b.CustomerPhone, b.SpecialInstructions, b.UpdatedAt, b.ID)
	if err != nil {
		return err
	}
	return expectOneRow(res, "booking")
}

// Delete removes the booking together with its assignment history.
func (r *bookingRepository) Delete(ctx context.Context, id int32) error {
	q := conn(ctx, r.db)
	if _, err := q.ExecContext(ctx, `DELETE FROM negotiations WHERE booking_id = $1`, id); err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM worker_assignments WHERE booking_id = $1`, id); err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectOneRow(res, "booking")
}

func (r *bookingRepository) List(ctx context.Context) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings ORDER BY created_at DESC, id DESC`)
}

func (r *bookingRepository) ListByCustomer(ctx context.Context, customerID int32) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE customer_id = $1 ORDER BY created_at DESC, id DESC`, customerID)
}

func (r *bookingRepository) ListByWorker(ctx context.Context, workerID int32) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE worker_id = $1 ORDER BY created_at DESC, id DESC`, workerID)
}

func (r *bookingRepository) ListByWorkerAndStatus(ctx context.Context, workerID int32, status domain.BookingStatus) ([]domain.Booking, error) {
	return r.list(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE worker_id = $1 AND status = $2 ORDER BY created_at DESC, id DESC`, workerID, status)
}

func (r *bookingRepository) list(ctx context.Context, query string, args ...any) ([]domain.Booking, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}
