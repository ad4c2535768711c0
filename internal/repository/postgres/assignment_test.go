package postgres_test

import (
	"context"
	"database/sql"
	"testing"

	"bluecollar-backend/internal/domain"
	"bluecollar-backend/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignmentRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewAssignmentRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		a := domain.NewAssignment(5, 9, 1, testNow)
		mock.ExpectQuery("INSERT INTO worker_assignments").
			WithArgs(int32(5), int32(9), int32(1), "ASSIGNED", "", sqlmock.AnyArg(), nil).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))

		require.NoError(t, repo.Create(ctx, a))
		assert.Equal(t, int32(21), a.ID)
	})

	t.Run("SecondOpenAssignment", func(t *testing.T) {
		a := domain.NewAssignment(5, 10, 2, testNow)
		mock.ExpectQuery("INSERT INTO worker_assignments").
			WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

		err := repo.Create(ctx, a)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepository_GetCurrent(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewAssignmentRepository(db)
	ctx := context.Background()
	cols := []string{"id", "booking_id", "worker_id", "assignment_order", "status", "rejection_reason", "assigned_at", "response_at"}

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`FROM worker_assignments WHERE booking_id = \$1 AND status = 'ASSIGNED'`).
			WithArgs(int32(5)).
			WillReturnRows(sqlmock.NewRows(cols).AddRow(21, 5, 9, 1, "ASSIGNED", "", testNow, nil))

		a, err := repo.GetCurrent(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, int32(9), a.WorkerID)
		assert.Equal(t, domain.AssignmentStatusAssigned, a.Status)
		assert.Nil(t, a.ResponseAt)
	})

	t.Run("NoneOpen", func(t *testing.T) {
		mock.ExpectQuery(`FROM worker_assignments WHERE booking_id = \$1 AND status = 'ASSIGNED'`).
			WithArgs(int32(6)).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetCurrent(ctx, 6)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepository_Update(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewAssignmentRepository(db)
	ctx := context.Background()

	a := domain.NewAssignment(5, 9, 1, testNow)
	a.ID = 21
	require.NoError(t, a.Close(domain.AssignmentStatusRejectedByWorker, "busy", testNow))

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec(`UPDATE worker_assignments SET (.+) WHERE id=\$4 AND status = 'ASSIGNED'`).
			WithArgs("REJECTED_BY_WORKER", "busy", sqlmock.AnyArg(), int32(21)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Update(ctx, a))
	})

	t.Run("AlreadyClosed", func(t *testing.T) {
		mock.ExpectExec("UPDATE worker_assignments SET").WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Update(ctx, a), domain.ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAssignmentRepository_ExclusionAndOrder(t *testing.T) {
	db, mock := newMock(t)
	repo := postgres.NewAssignmentRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT DISTINCT worker_id FROM worker_assignments`).
		WithArgs(int32(5)).
		WillReturnRows(sqlmock.NewRows([]string{"worker_id"}).AddRow(9).AddRow(12))

	ids, err := repo.ListExcludedWorkerIDs(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []int32{9, 12}, ids)

	mock.ExpectQuery(`SELECT COALESCE\(MAX\(assignment_order\), 0\) FROM worker_assignments`).
		WithArgs(int32(5)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(2))

	maxOrder, err := repo.GetMaxOrder(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int32(2), maxOrder)

	mock.ExpectQuery(`SELECT COALESCE\(MAX\(assignment_order\), 0\) FROM worker_assignments`).
		WithArgs(int32(6)).
		WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(0))

	maxOrder, err = repo.GetMaxOrder(ctx, 6)
	require.NoError(t, err)
	assert.Equal(t, int32(0), maxOrder)

	assert.NoError(t, mock.ExpectationsWereMet())
}
