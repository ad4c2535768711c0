package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"bluecollar-backend/internal/domain"
	"bluecollar-backend/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testNow        = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	bookingColumns = []string{"id", "customer_id", "worker_id", "work_id", "description", "scheduled_date",
		"estimated_duration_hours", "total_amount", "status", "customer_address", "customer_phone",
		"special_instructions", "created_at", "updated_at"}
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestBookingRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewBookingRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		b := &domain.Booking{
			CustomerID:             1,
			WorkID:                 2,
			Description:            "Leaking tap",
			ScheduledDate:          testNow.Add(24 * time.Hour),
			EstimatedDurationHours: 2,
			TotalAmount:            decimal.RequireFromString("450.00"),
			Status:                 domain.BookingStatusPending,
			CustomerAddress:        "12 MG Road",
			CreatedAt:              testNow,
			UpdatedAt:              testNow,
		}

		mock.ExpectQuery("INSERT INTO bookings").
			WithArgs(int32(1), nil, int32(2), "Leaking tap", sqlmock.AnyArg(), 2.0, sqlmock.AnyArg(),
				"PENDING", "12 MG Road", "", "", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))

		err := repo.Create(ctx, b)
		assert.NoError(t, err)
		assert.Equal(t, int32(11), b.ID)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_GetByIDForUpdate(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewBookingRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1 FOR UPDATE`).
			WithArgs(int32(5)).
			WillReturnRows(sqlmock.NewRows(bookingColumns).AddRow(
				5, 1, 9, 2, "Deep clean", testNow, 3.5, "1200.50", "WORKER_ASSIGNED", "addr", "999", "", testNow, testNow))

		b, err := repo.GetByIDForUpdate(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, int32(5), b.ID)
		require.NotNil(t, b.WorkerID)
		assert.Equal(t, int32(9), *b.WorkerID)
		assert.Equal(t, domain.BookingStatusWorkerAssigned, b.Status)
		assert.True(t, b.TotalAmount.Equal(decimal.RequireFromString("1200.50")))
	})

	t.Run("NullWorker", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1 FOR UPDATE`).
			WithArgs(int32(6)).
			WillReturnRows(sqlmock.NewRows(bookingColumns).AddRow(
				6, 1, nil, 2, "", testNow, 1.0, "100", "PENDING", "", "", "", testNow, testNow))

		b, err := repo.GetByIDForUpdate(ctx, 6)
		require.NoError(t, err)
		assert.Nil(t, b.WorkerID)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = \$1 FOR UPDATE`).
			WithArgs(int32(404)).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByIDForUpdate(ctx, 404)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.EqualError(t, err, "booking not found")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_Update(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewBookingRepository(db)
	ctx := context.Background()

	worker := int32(9)
	b := &domain.Booking{ID: 5, WorkerID: &worker, Status: domain.BookingStatusConfirmed, TotalAmount: decimal.NewFromInt(100), UpdatedAt: testNow}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec("UPDATE bookings SET").
			WithArgs(int32(9), "", sqlmock.AnyArg(), 0.0, sqlmock.AnyArg(), "CONFIRMED", "", "", "", sqlmock.AnyArg(), int32(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Update(ctx, b))
	})

	t.Run("Missing", func(t *testing.T) {
		mock.ExpectExec("UPDATE bookings SET").WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Update(ctx, b), domain.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_ListByWorkerAndStatus(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewBookingRepository(db)

	mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE worker_id = \$1 AND status = \$2`).
		WithArgs(int32(9), "WORKER_ASSIGNED").
		WillReturnRows(sqlmock.NewRows(bookingColumns).
			AddRow(7, 1, 9, 2, "", testNow, 1.0, "100", "WORKER_ASSIGNED", "", "", "", testNow, testNow).
			AddRow(8, 3, 9, 2, "", testNow, 1.0, "200", "WORKER_ASSIGNED", "", "", "", testNow, testNow))

	bookings, err := repo.ListByWorkerAndStatus(context.Background(), 9, domain.BookingStatusWorkerAssigned)
	require.NoError(t, err)
	assert.Len(t, bookings, 2)
	assert.Equal(t, int32(8), bookings[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepository_Delete(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewBookingRepository(db)

	mock.ExpectExec(`DELETE FROM negotiations WHERE booking_id = \$1`).WithArgs(int32(5)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM worker_assignments WHERE booking_id = \$1`).WithArgs(int32(5)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DELETE FROM bookings WHERE id = \$1`).WithArgs(int32(5)).WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, repo.Delete(context.Background(), 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}
