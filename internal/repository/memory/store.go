// Package memory is an in-process implementation of the repositories. It is
// used by tests and by the server when no database is configured.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"bluecollar-backend/internal/domain"
	"bluecollar-backend/internal/repository"
)

type Store struct {
	repository.UserRepository
	repository.WorkRepository
	repository.BookingRepository
	repository.AssignmentRepository
	repository.WalletRepository
	repository.NegotiationRepository

	// txMu serializes transactions; mu guards the tables.
	txMu sync.Mutex
	mu   sync.RWMutex
	data tables
}

type tables struct {
	seq          int32
	users        map[int32]domain.User
	works        map[int32]domain.Work
	bookings     map[int32]domain.Booking
	assignments  map[int32]domain.WorkerAssignment
	wallets      map[int32]domain.Wallet
	transactions []domain.WalletTransaction
	negotiations map[int32]domain.Negotiation
}

func NewStore() *Store {
	s := &Store{
		data: tables{
			users:        map[int32]domain.User{},
			works:        map[int32]domain.Work{},
			bookings:     map[int32]domain.Booking{},
			assignments:  map[int32]domain.WorkerAssignment{},
			wallets:      map[int32]domain.Wallet{},
			negotiations: map[int32]domain.Negotiation{},
		},
	}
	s.UserRepository = &userRepository{s}
	s.WorkRepository = &workRepository{s}
	s.BookingRepository = &bookingRepository{s}
	s.AssignmentRepository = &assignmentRepository{s}
	s.WalletRepository = &walletRepository{s}
	s.NegotiationRepository = &negotiationRepository{s}
	return s
}

type txKey struct{}

// WithinTx implements repository.TxManager. Transactions run one at a time;
// when fn fails every table is restored to its state before fn ran.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// write applies fn to the tables. Outside a transaction it also takes txMu
// so that a concurrent rollback cannot discard the change.
func (s *Store) write(ctx context.Context, fn func(t *tables) error) error {
	if ctx.Value(txKey{}) == nil {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&s.data)
}

func (s *Store) read(fn func(t *tables) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&s.data)
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// AddUser seeds a user and returns it with its assigned id.
func (s *Store) AddUser(u domain.User) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == 0 {
		u.ID = s.data.next()
	}
	s.data.users[u.ID] = u
	return u
}

// SetUserAvailability toggles a worker in or out of the candidate pool.
func (s *Store) SetUserAvailability(id int32, available bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.data.users[id]
	if !ok {
		return fmt.Errorf("user %w", domain.ErrNotFound)
	}
	u.IsAvailable = available
	s.data.users[id] = u
	return nil
}

// AddWork seeds a work listing and returns it with its assigned id.
func (s *Store) AddWork(w domain.Work) domain.Work {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.ID == 0 {
		w.ID = s.data.next()
	}
	s.data.works[w.ID] = w
	return w
}

func (t *tables) next() int32 {
	t.seq++
	return t.seq
}

func (t *tables) clone() tables {
	return tables{
		seq:          t.seq,
		users:        maps.Clone(t.users),
		works:        maps.Clone(t.works),
		bookings:     maps.Clone(t.bookings),
		assignments:  maps.Clone(t.assignments),
		wallets:      maps.Clone(t.wallets),
		transactions: append([]domain.WalletTransaction(nil), t.transactions...),
		negotiations: maps.Clone(t.negotiations),
	}
}
