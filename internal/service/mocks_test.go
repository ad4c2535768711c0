package service_test

import (
	"context"
	"sync"
	"time"

	"bluecollar-backend/internal/domain"
	"bluecollar-backend/internal/repository"
	"bluecollar-backend/internal/security"
	"bluecollar-backend/internal/service"

	"github.com/stretchr/testify/mock"
)

// MockUserRepo
type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}
func (m *MockUserRepo) ListAvailableWorkers(ctx context.Context, minRating float64, excludeIDs []int32) ([]domain.User, error) {
	args := m.Called(ctx, minRating, excludeIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

// MockAssignmentRepo
type MockAssignmentRepo struct {
	mock.Mock
}

func (m *MockAssignmentRepo) Create(ctx context.Context, a *domain.WorkerAssignment) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}
func (m *MockAssignmentRepo) Update(ctx context.Context, a *domain.WorkerAssignment) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}
func (m *MockAssignmentRepo) GetCurrent(ctx context.Context, bookingID int32) (*domain.WorkerAssignment, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.WorkerAssignment), args.Error(1)
}
func (m *MockAssignmentRepo) ListByBooking(ctx context.Context, bookingID int32) ([]domain.WorkerAssignment, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).([]domain.WorkerAssignment), args.Error(1)
}
func (m *MockAssignmentRepo) ListByWorker(ctx context.Context, workerID int32) ([]domain.WorkerAssignment, error) {
	args := m.Called(ctx, workerID)
	return args.Get(0).([]domain.WorkerAssignment), args.Error(1)
}
func (m *MockAssignmentRepo) ListExcludedWorkerIDs(ctx context.Context, bookingID int32) ([]int32, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int32), args.Error(1)
}
func (m *MockAssignmentRepo) GetMaxOrder(ctx context.Context, bookingID int32) (int32, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).(int32), args.Error(1)
}
func (m *MockAssignmentRepo) ListStale(ctx context.Context, assignedBefore time.Time) ([]domain.WorkerAssignment, error) {
	args := m.Called(ctx, assignedBefore)
	return args.Get(0).([]domain.WorkerAssignment), args.Error(1)
}

// MockTokenManager
type MockTokenManager struct {
	mock.Mock
}

func (m *MockTokenManager) GenerateAccessToken(userID int32, email string, role domain.Role) (string, error) {
	args := m.Called(userID, email, role)
	return args.String(0), args.Error(1)
}
func (m *MockTokenManager) ValidateToken(tokenString string) (*security.UserClaims, error) {
	args := m.Called(tokenString)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*security.UserClaims), args.Error(1)
}

// recordingNotifier keeps every event for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []service.Event
}

func (n *recordingNotifier) Notify(_ context.Context, e service.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, e)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Type)
	}
	return out
}

// failingAssignments fails every new assignment with err.
type failingAssignments struct {
	repository.AssignmentRepository
	err error
}

func (f failingAssignments) Create(ctx context.Context, a *domain.WorkerAssignment) error {
	return f.err
}
