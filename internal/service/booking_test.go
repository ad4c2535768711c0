package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bluecollar-backend/internal/clock"
	"bluecollar-backend/internal/domain"
	"bluecollar-backend/internal/repository"
	"bluecollar-backend/internal/repository/memory"
	"bluecollar-backend/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bookingFixture struct {
	store    *memory.Store
	clock    *clock.Manual
	notifier *recordingNotifier
	svc      service.BookingService
	customer domain.User
	work     domain.Work
}

func newBookingFixture(t *testing.T, workers ...domain.User) *bookingFixture {
	t.Helper()
	store := memory.NewStore()
	return newBookingFixtureWithAssignments(t, store, store.AssignmentRepository, workers...)
}

func newBookingFixtureWithAssignments(t *testing.T, store *memory.Store, assignments repository.AssignmentRepository, workers ...domain.User) *bookingFixture {
	t.Helper()
	clk := clock.NewManual(testNow)
	notifier := &recordingNotifier{}

	customer := store.AddUser(domain.User{Email: "meera@example.com", Name: "Meera", Role: domain.RoleCustomer})
	for _, w := range workers {
		w.Role = domain.RoleWorker
		w.IsAvailable = true
		store.AddUser(w)
	}
	work := store.AddWork(domain.Work{
		Title:              "Kitchen sink repair",
		Category:           "Plumbing",
		Charges:            decimal.RequireFromString("450.00"),
		EstimatedTimeHours: 2,
		IsAvailable:        true,
	})

	engine := service.NewAssignmentEngine(store.UserRepository, assignments, clk, service.AssignmentOptions{})
	svc := service.NewBookingService(store, store.BookingRepository, store.UserRepository, store.WorkRepository, engine, notifier, clk)
	return &bookingFixture{store: store, clock: clk, notifier: notifier, svc: svc, customer: customer, work: work}
}

func (f *bookingFixture) autoBook(t *testing.T) *service.BookingResult {
	t.Helper()
	res, err := f.svc.CreateAutoBooking(context.Background(), service.AutoBookingRequest{
		WorkID:          f.work.ID,
		Description:     "Leaking tap",
		ScheduledDate:   testNow.Add(48 * time.Hour),
		CustomerAddress: "12 MG Road",
		CustomerPhone:   "9800000000",
	}, f.customer.ID)
	require.NoError(t, err)
	return res
}

func (f *bookingFixture) assignments(t *testing.T, bookingID int32) []domain.WorkerAssignment {
	t.Helper()
	rows, err := f.svc.ListAssignments(context.Background(), bookingID)
	require.NoError(t, err)
	return rows
}

func openAssignments(rows []domain.WorkerAssignment) int {
	n := 0
	for _, a := range rows {
		if a.Status == domain.AssignmentStatusAssigned {
			n++
		}
	}
	return n
}

var (
	ravi  = domain.User{ID: 101, Email: "ravi@example.com", Name: "Ravi", Skills: "plumbing", Rating: 4.8, ExperienceYears: 6}
	asha  = domain.User{ID: 102, Email: "asha@example.com", Name: "Asha", Skills: "cleaning, cooking", Rating: 4.5, ExperienceYears: 3}
	kiran = domain.User{ID: 103, Email: "kiran@example.com", Name: "Kiran", Skills: "general labour", Rating: 3.9, ExperienceYears: 1}
)

func TestBookingService_CreateAutoBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("Assigns best worker", func(t *testing.T) {
		f := newBookingFixture(t, ravi, asha)

		res := f.autoBook(t)
		require.NotNil(t, res.AssignedWorker)
		assert.False(t, res.AssignmentPending)
		assert.Empty(t, res.AssignmentError)
		assert.Equal(t, ravi.ID, res.AssignedWorker.ID)
		assert.Equal(t, domain.BookingStatusWorkerAssigned, res.Booking.Status)
		assert.True(t, res.Booking.IsWorker(ravi.ID))
		assert.True(t, decimal.RequireFromString("450").Equal(res.Booking.TotalAmount))
		assert.Equal(t, 2.0, res.Booking.EstimatedDurationHours)

		stored, err := f.svc.GetBooking(ctx, res.Booking.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusWorkerAssigned, stored.Status)

		rows := f.assignments(t, res.Booking.ID)
		require.Len(t, rows, 1)
		assert.Equal(t, int32(1), rows[0].AssignmentOrder)
		assert.Equal(t, domain.AssignmentStatusAssigned, rows[0].Status)
		assert.Equal(t, []string{service.EventBookingCreated, service.EventBookingAssigned}, f.notifier.types())
	})

	t.Run("Empty pool leaves booking pending", func(t *testing.T) {
		f := newBookingFixture(t)

		res := f.autoBook(t)
		assert.True(t, res.AssignmentPending)
		assert.Empty(t, res.AssignmentError)
		assert.Nil(t, res.AssignedWorker)
		assert.Equal(t, domain.BookingStatusPending, res.Booking.Status)
		assert.Nil(t, res.Booking.WorkerID)

		stored, err := f.svc.GetBooking(ctx, res.Booking.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusPending, stored.Status)
		assert.Empty(t, f.assignments(t, res.Booking.ID))
	})

	t.Run("Assignment failure is reported, not returned", func(t *testing.T) {
		store := memory.NewStore()
		failing := failingAssignments{AssignmentRepository: store.AssignmentRepository, err: errors.New("deadlock detected")}
		f := newBookingFixtureWithAssignments(t, store, failing, ravi)

		res := f.autoBook(t)
		assert.True(t, res.AssignmentPending)
		assert.Contains(t, res.AssignmentError, "deadlock detected")
		assert.Equal(t, domain.BookingStatusPending, res.Booking.Status)

		stored, err := f.svc.GetBooking(ctx, res.Booking.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusPending, stored.Status)
		assert.Nil(t, stored.WorkerID)
	})

	t.Run("Unknown work", func(t *testing.T) {
		f := newBookingFixture(t, ravi)

		_, err := f.svc.CreateAutoBooking(ctx, service.AutoBookingRequest{WorkID: 9999}, f.customer.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Unknown customer", func(t *testing.T) {
		f := newBookingFixture(t, ravi)

		_, err := f.svc.CreateAutoBooking(ctx, service.AutoBookingRequest{WorkID: f.work.ID}, 9999)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestBookingService_CreateBooking(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, asha)

	b, err := f.svc.CreateBooking(ctx, service.BookingRequest{WorkID: f.work.ID, WorkerID: asha.ID, Description: "Deep clean"}, f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPending, b.Status)
	assert.True(t, b.IsWorker(asha.ID))
	assert.Empty(t, f.assignments(t, b.ID))

	pending, err := f.svc.ListPendingForWorker(ctx, asha.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, b.ID, pending[0].ID)

	_, err = f.svc.CreateBooking(ctx, service.BookingRequest{WorkID: f.work.ID, WorkerID: f.customer.ID}, f.customer.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBookingService_RejectAssignedWorker(t *testing.T) {
	ctx := context.Background()

	t.Run("Reassigns with next order", func(t *testing.T) {
		f := newBookingFixture(t, ravi, asha)
		res := f.autoBook(t)

		b, err := f.svc.RejectAssignedWorker(ctx, res.Booking.ID, "Customer requested different worker")
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusWorkerAssigned, b.Status)
		assert.True(t, b.IsWorker(asha.ID))

		rows := f.assignments(t, b.ID)
		require.Len(t, rows, 2)
		assert.Equal(t, ravi.ID, rows[0].WorkerID)
		assert.Equal(t, domain.AssignmentStatusRejectedByCustomer, rows[0].Status)
		assert.Equal(t, "Customer requested different worker", rows[0].RejectionReason)
		assert.Equal(t, asha.ID, rows[1].WorkerID)
		assert.Equal(t, int32(2), rows[1].AssignmentOrder)
		assert.Equal(t, 1, openAssignments(rows))
	})

	t.Run("Exhaustion cancels booking", func(t *testing.T) {
		f := newBookingFixture(t, ravi)
		res := f.autoBook(t)

		_, err := f.svc.RejectAssignedWorker(ctx, res.Booking.ID, "no")
		assert.ErrorIs(t, err, domain.ErrNoWorkersAvailable)

		stored, err := f.svc.GetBooking(ctx, res.Booking.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusCancelled, stored.Status)
		assert.Nil(t, stored.WorkerID)

		rows := f.assignments(t, res.Booking.ID)
		require.Len(t, rows, 1)
		assert.Equal(t, domain.AssignmentStatusRejectedByCustomer, rows[0].Status)
		assert.Contains(t, f.notifier.types(), service.EventBookingCancelled)
	})

	t.Run("Rejected workers stay excluded", func(t *testing.T) {
		f := newBookingFixture(t, ravi, asha, kiran)
		res := f.autoBook(t)

		b, err := f.svc.RejectAssignedWorker(ctx, res.Booking.ID, "late")
		require.NoError(t, err)
		require.True(t, b.IsWorker(asha.ID))

		b, err = f.svc.RejectWorkerAssignment(ctx, b.ID, asha.ID, "busy")
		require.NoError(t, err)
		assert.True(t, b.IsWorker(kiran.ID))

		_, err = f.svc.RejectAssignedWorker(ctx, b.ID, "rude")
		assert.ErrorIs(t, err, domain.ErrNoWorkersAvailable)

		rows := f.assignments(t, b.ID)
		require.Len(t, rows, 3)
		for i, a := range rows {
			assert.Equal(t, int32(i+1), a.AssignmentOrder)
		}
		assert.Zero(t, openAssignments(rows))
	})

	t.Run("Directly booked worker is excluded", func(t *testing.T) {
		f := newBookingFixture(t, ravi, asha)
		b, err := f.svc.CreateBooking(ctx, service.BookingRequest{WorkID: f.work.ID, WorkerID: ravi.ID}, f.customer.ID)
		require.NoError(t, err)

		b, err = f.svc.RejectAssignedWorker(ctx, b.ID, "prefer someone else")
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusWorkerAssigned, b.Status)
		assert.True(t, b.IsWorker(asha.ID))

		rows := f.assignments(t, b.ID)
		require.Len(t, rows, 2)
		assert.Equal(t, ravi.ID, rows[0].WorkerID)
		assert.Equal(t, domain.AssignmentStatusRejectedByCustomer, rows[0].Status)
		assert.Equal(t, "prefer someone else", rows[0].RejectionReason)
		assert.Equal(t, asha.ID, rows[1].WorkerID)
		assert.Equal(t, int32(2), rows[1].AssignmentOrder)
		assert.Equal(t, 1, openAssignments(rows))
	})

	t.Run("Confirmed booking cannot reject worker", func(t *testing.T) {
		f := newBookingFixture(t, ravi, asha)
		res := f.autoBook(t)
		_, err := f.svc.AcceptWorkerAssignment(ctx, res.Booking.ID, ravi.ID)
		require.NoError(t, err)

		_, err = f.svc.RejectAssignedWorker(ctx, res.Booking.ID, "changed mind")
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("Unknown booking", func(t *testing.T) {
		f := newBookingFixture(t, ravi)
		_, err := f.svc.RejectAssignedWorker(ctx, 9999, "x")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestBookingService_AcceptWorkerAssignment(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, ravi, asha)
	res := f.autoBook(t)

	_, err := f.svc.AcceptWorkerAssignment(ctx, res.Booking.ID, asha.ID)
	assert.ErrorIs(t, err, domain.ErrAssignmentMismatch)

	b, err := f.svc.AcceptWorkerAssignment(ctx, res.Booking.ID, ravi.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusConfirmed, b.Status)

	rows := f.assignments(t, b.ID)
	require.Len(t, rows, 1)
	assert.Equal(t, domain.AssignmentStatusAccepted, rows[0].Status)
	require.NotNil(t, rows[0].ResponseAt)

	_, err = f.svc.AcceptWorkerAssignment(ctx, res.Booking.ID, ravi.ID)
	assert.ErrorIs(t, err, domain.ErrAssignmentMismatch)
}

func TestBookingService_RejectWorkerAssignment(t *testing.T) {
	ctx := context.Background()

	t.Run("Reassigns", func(t *testing.T) {
		f := newBookingFixture(t, ravi, asha)
		res := f.autoBook(t)

		_, err := f.svc.RejectWorkerAssignment(ctx, res.Booking.ID, asha.ID, "busy")
		assert.ErrorIs(t, err, domain.ErrAssignmentMismatch)

		b, err := f.svc.RejectWorkerAssignment(ctx, res.Booking.ID, ravi.ID, "busy")
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusWorkerAssigned, b.Status)
		assert.True(t, b.IsWorker(asha.ID))

		rows := f.assignments(t, b.ID)
		require.Len(t, rows, 2)
		assert.Equal(t, domain.AssignmentStatusRejectedByWorker, rows[0].Status)
		assert.Equal(t, int32(2), rows[1].AssignmentOrder)
	})

	t.Run("Exhaustion cancels without error", func(t *testing.T) {
		f := newBookingFixture(t, ravi)
		res := f.autoBook(t)

		b, err := f.svc.RejectWorkerAssignment(ctx, res.Booking.ID, ravi.ID, "busy")
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusCancelled, b.Status)
		assert.Nil(t, b.WorkerID)
	})
}

func TestBookingService_ExpireStaleAssignments(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, ravi, asha)
	res := f.autoBook(t)

	n, err := f.svc.ExpireStaleAssignments(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)

	f.clock.Advance(31 * time.Minute)
	n, err = f.svc.ExpireStaleAssignments(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	b, err := f.svc.GetBooking(ctx, res.Booking.ID)
	require.NoError(t, err)
	assert.True(t, b.IsWorker(asha.ID))

	rows := f.assignments(t, b.ID)
	require.Len(t, rows, 2)
	assert.Equal(t, domain.AssignmentStatusExpired, rows[0].Status)
	assert.Equal(t, domain.AssignmentStatusAssigned, rows[1].Status)

	f.clock.Advance(31 * time.Minute)
	n, err = f.svc.ExpireStaleAssignments(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	b, err = f.svc.GetBooking(ctx, res.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, b.Status)
}

func TestBookingService_DirectTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("Full lifecycle", func(t *testing.T) {
		f := newBookingFixture(t, ravi)
		res := f.autoBook(t)
		id := res.Booking.ID

		f.clock.Advance(time.Minute)
		b, err := f.svc.AcceptBooking(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusConfirmed, b.Status)
		assert.Equal(t, testNow.Add(time.Minute), b.UpdatedAt)

		rows := f.assignments(t, id)
		assert.Equal(t, domain.AssignmentStatusAccepted, rows[0].Status)

		b, err = f.svc.StartWork(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusInProgress, b.Status)

		b, err = f.svc.CompleteWork(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusCompleted, b.Status)

		_, err = f.svc.CancelBooking(ctx, id)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})

	t.Run("Reject closes open attempt", func(t *testing.T) {
		f := newBookingFixture(t, ravi)
		res := f.autoBook(t)

		b, err := f.svc.RejectBooking(ctx, res.Booking.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusRejected, b.Status)
		assert.Zero(t, openAssignments(f.assignments(t, b.ID)))
	})

	t.Run("Cancel closes open attempt", func(t *testing.T) {
		f := newBookingFixture(t, ravi, asha)
		res := f.autoBook(t)

		b, err := f.svc.CancelBooking(ctx, res.Booking.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusCancelled, b.Status)

		rows := f.assignments(t, b.ID)
		require.Len(t, rows, 1)
		assert.Zero(t, openAssignments(rows))
		assert.Equal(t, domain.AssignmentStatusRejectedByCustomer, rows[0].Status)
		assert.Equal(t, "Booking cancelled", rows[0].RejectionReason)

		_, err = f.svc.GetCurrentAssignment(ctx, b.ID)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		f.clock.Advance(time.Hour)
		n, err := f.svc.ExpireStaleAssignments(ctx, 30*time.Minute)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("Status override closes open attempt", func(t *testing.T) {
		f := newBookingFixture(t, ravi)
		res := f.autoBook(t)

		b, err := f.svc.UpdateBookingStatus(ctx, res.Booking.ID, domain.BookingStatusCancelled)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusCancelled, b.Status)
		assert.Zero(t, openAssignments(f.assignments(t, b.ID)))

		f = newBookingFixture(t, ravi)
		res = f.autoBook(t)
		b, err = f.svc.UpdateBookingStatus(ctx, res.Booking.ID, domain.BookingStatusConfirmed)
		require.NoError(t, err)
		rows := f.assignments(t, b.ID)
		require.Len(t, rows, 1)
		assert.Equal(t, domain.AssignmentStatusAccepted, rows[0].Status)
	})

	t.Run("Start requires confirmation", func(t *testing.T) {
		f := newBookingFixture(t, ravi)
		res := f.autoBook(t)

		_, err := f.svc.StartWork(ctx, res.Booking.ID)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)

		b, err := f.svc.GetBooking(ctx, res.Booking.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusWorkerAssigned, b.Status)
	})

	t.Run("Admin status override", func(t *testing.T) {
		f := newBookingFixture(t)
		res := f.autoBook(t)

		_, err := f.svc.UpdateBookingStatus(ctx, res.Booking.ID, domain.BookingStatusConfirmed)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)

		_, err = f.svc.UpdateBookingStatus(ctx, res.Booking.ID, "FINISHED")
		assert.ErrorIs(t, err, domain.ErrInvalidStatus)

		b, err := f.svc.UpdateBookingStatus(ctx, res.Booking.ID, domain.BookingStatusCancelled)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusCancelled, b.Status)
	})

	t.Run("Unknown booking", func(t *testing.T) {
		f := newBookingFixture(t)
		_, err := f.svc.CancelBooking(ctx, 9999)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, f.svc.DeleteBooking(ctx, 9999), domain.ErrNotFound)
	})
}

func TestBookingService_Listings(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t, ravi)
	first := f.autoBook(t)
	f.clock.Advance(time.Hour)
	second := f.autoBook(t)

	all, err := f.svc.ListBookings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.Booking.ID, all[0].ID)

	mine, err := f.svc.ListCustomerBookings(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	worker, err := f.svc.ListWorkerBookings(ctx, ravi.ID)
	require.NoError(t, err)
	assert.Len(t, worker, 2)

	current, err := f.svc.GetCurrentAssignment(ctx, first.Booking.ID)
	require.NoError(t, err)
	assert.Equal(t, ravi.ID, current.WorkerID)

	require.NoError(t, f.svc.DeleteBooking(ctx, first.Booking.ID))
	_, err = f.svc.GetBooking(ctx, first.Booking.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBookingService_ConcurrentRejections(t *testing.T) {
	ctx := context.Background()
	pool := []domain.User{ravi, asha, kiran,
		{ID: 104, Email: "sunil@example.com", Name: "Sunil", Skills: "painting", Rating: 3.5},
		{ID: 105, Email: "divya@example.com", Name: "Divya", Skills: "carpentry", Rating: 3.2},
	}

	t.Run("Customer rejections serialize per booking", func(t *testing.T) {
		f := newBookingFixture(t, pool...)
		res := f.autoBook(t)

		const callers = 4
		var wg sync.WaitGroup
		errs := make(chan error, callers)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.svc.RejectAssignedWorker(ctx, res.Booking.ID, "not suitable")
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			assert.NoError(t, err)
		}

		rows := f.assignments(t, res.Booking.ID)
		require.Len(t, rows, callers+1)
		assert.Equal(t, 1, openAssignments(rows))
		seen := map[int32]bool{}
		for i, a := range rows {
			assert.Equal(t, int32(i+1), a.AssignmentOrder)
			assert.False(t, seen[a.WorkerID], "worker %d offered twice", a.WorkerID)
			seen[a.WorkerID] = true
		}

		b, err := f.svc.GetBooking(ctx, res.Booking.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusWorkerAssigned, b.Status)
		assert.True(t, b.IsWorker(rows[callers].WorkerID))
	})

	t.Run("Only one worker rejection wins", func(t *testing.T) {
		f := newBookingFixture(t, pool...)
		res := f.autoBook(t)

		const callers = 5
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			ok       int
			mismatch int
		)
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.svc.RejectWorkerAssignment(ctx, res.Booking.ID, ravi.ID, "busy")
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					ok++
				case errors.Is(err, domain.ErrAssignmentMismatch):
					mismatch++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, ok)
		assert.Equal(t, callers-1, mismatch)

		rows := f.assignments(t, res.Booking.ID)
		require.Len(t, rows, 2)
		assert.Equal(t, domain.AssignmentStatusRejectedByWorker, rows[0].Status)
		assert.Equal(t, int32(2), rows[1].AssignmentOrder)
		assert.Equal(t, 1, openAssignments(rows))
	})
}
