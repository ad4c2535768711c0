package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBookingStatus(t *testing.T) {
	st, err := ParseBookingStatus("IN_PROGRESS")
	require.NoError(t, err)
	assert.Equal(t, BookingStatusInProgress, st)

	st, err = ParseBookingStatus("CANCELLED")
	require.NoError(t, err)
	assert.Equal(t, BookingStatusCancelled, st)

	_, err = ParseBookingStatus("in_progress")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestBooking_Transition(t *testing.T) {
	t.Run("HappyPath", func(t *testing.T) {
		b := &Booking{ID: 1, Status: BookingStatusPending}
		b.AssignWorker(9, testNow)
		require.NotNil(t, b.WorkerID)
		assert.Equal(t, int32(9), *b.WorkerID)
		assert.Equal(t, BookingStatusWorkerAssigned, b.Status)

		for _, next := range []BookingStatus{BookingStatusConfirmed, BookingStatusInProgress, BookingStatusCompleted} {
			require.NoError(t, b.Transition(next, testNow))
			assert.Equal(t, next, b.Status)
		}
		assert.Equal(t, testNow, b.UpdatedAt)
	})

	t.Run("TerminalIsFinal", func(t *testing.T) {
		b := &Booking{ID: 1, Status: BookingStatusCancelled}
		err := b.Transition(BookingStatusPending, testNow)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, BookingStatusCancelled, b.Status)
	})

	t.Run("SkippingStepsRejected", func(t *testing.T) {
		b := &Booking{ID: 1, Status: BookingStatusPending}
		err := b.Transition(BookingStatusCompleted, testNow)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("ConfirmWithoutWorkerRejected", func(t *testing.T) {
		b := &Booking{ID: 1, Status: BookingStatusPending}
		err := b.Transition(BookingStatusConfirmed, testNow)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, BookingStatusPending, b.Status)
	})
}

func TestBooking_SetStatusKeepsWorkerInvariant(t *testing.T) {
	b := &Booking{ID: 1, Status: BookingStatusCancelled}
	assert.ErrorIs(t, b.SetStatus(BookingStatusWorkerAssigned, testNow), ErrInvalidTransition)
	assert.NoError(t, b.SetStatus(BookingStatusPending, testNow))
}

func TestBooking_Cancel(t *testing.T) {
	b := &Booking{ID: 1, Status: BookingStatusWorkerRejected}
	b.AssignWorker(4, testNow)
	b.Cancel(testNow)
	assert.Nil(t, b.WorkerID)
	assert.Equal(t, BookingStatusCancelled, b.Status)
}
