package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerAssignment_Close(t *testing.T) {
	a := NewAssignment(1, 2, 1, testNow)
	assert.Equal(t, AssignmentStatusAssigned, a.Status)
	assert.Nil(t, a.ResponseAt)

	later := testNow.Add(time.Minute)
	require.NoError(t, a.Close(AssignmentStatusRejectedByWorker, "busy", later))
	assert.Equal(t, AssignmentStatusRejectedByWorker, a.Status)
	assert.Equal(t, "busy", a.RejectionReason)
	require.NotNil(t, a.ResponseAt)
	assert.Equal(t, later, *a.ResponseAt)

	err := a.Close(AssignmentStatusAccepted, "", later.Add(time.Minute))
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, AssignmentStatusRejectedByWorker, a.Status)
	assert.Equal(t, later, *a.ResponseAt)
}

func TestWorkerAssignment_CloseAsAssignedRejected(t *testing.T) {
	a := NewAssignment(1, 2, 1, testNow)
	assert.ErrorIs(t, a.Close(AssignmentStatusAssigned, "", testNow), ErrInvalidTransition)
}

func TestAssignmentStatus_ExcludesWorker(t *testing.T) {
	assert.True(t, AssignmentStatusRejectedByWorker.ExcludesWorker())
	assert.True(t, AssignmentStatusRejectedByCustomer.ExcludesWorker())
	assert.True(t, AssignmentStatusExpired.ExcludesWorker())
	assert.False(t, AssignmentStatusAssigned.ExcludesWorker())
	assert.False(t, AssignmentStatusAccepted.ExcludesWorker())
}
