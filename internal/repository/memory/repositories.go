package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"bluecollar-backend/internal/domain"
)

func notFound(what string) error {
	return fmt.Errorf("%s %w", what, domain.ErrNotFound)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneBooking(b domain.Booking) domain.Booking {
	b.WorkerID = clonePtr(b.WorkerID)
	return b
}

func cloneAssignment(a domain.WorkerAssignment) domain.WorkerAssignment {
	a.ResponseAt = clonePtr(a.ResponseAt)
	return a
}

func cloneNegotiation(n domain.Negotiation) domain.Negotiation {
	n.RespondedAt = clonePtr(n.RespondedAt)
	return n
}

type userRepository struct{ s *Store }

func (r *userRepository) GetByID(ctx context.Context, id int32) (*domain.User, error) {
	var out *domain.User
	err := r.s.read(func(t *tables) error {
		u, ok := t.users[id]
		if !ok {
			return notFound("user")
		}
		out = &u
		return nil
	})
	return out, err
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var out *domain.User
	err := r.s.read(func(t *tables) error {
		for _, u := range t.users {
			if strings.EqualFold(u.Email, email) {
				out = &u
				return nil
			}
		}
		return notFound("user")
	})
	return out, err
}

func (r *userRepository) ListAvailableWorkers(ctx context.Context, minRating float64, excludeIDs []int32) ([]domain.User, error) {
	var workers []domain.User
	err := r.s.read(func(t *tables) error {
		for _, u := range t.users {
			if u.Role != domain.RoleWorker || !u.IsAvailable || u.Rating < minRating || slices.Contains(excludeIDs, u.ID) {
				continue
			}
			workers = append(workers, u)
		}
		return nil
	})
	sort.Slice(workers, func(i, j int) bool {
		a, b := workers[i], workers[j]
		if a.Rating != b.Rating {
			return a.Rating > b.Rating
		}
		if a.ExperienceYears != b.ExperienceYears {
			return a.ExperienceYears > b.ExperienceYears
		}
		return a.ID < b.ID
	})
	return workers, err
}

type workRepository struct{ s *Store }

func (r *workRepository) GetByID(ctx context.Context, id int32) (*domain.Work, error) {
	var out *domain.Work
	err := r.s.read(func(t *tables) error {
		w, ok := t.works[id]
		if !ok {
			return notFound("work")
		}
		out = &w
		return nil
	})
	return out, err
}

type bookingRepository struct{ s *Store }

func (r *bookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	return r.s.write(ctx, func(t *tables) error {
		b.ID = t.next()
		t.bookings[b.ID] = cloneBooking(*b)
		return nil
	})
}

func (r *bookingRepository) GetByID(ctx context.Context, id int32) (*domain.Booking, error) {
	var out *domain.Booking
	err := r.s.read(func(t *tables) error {
		b, ok := t.bookings[id]
		if !ok {
			return notFound("booking")
		}
		b = cloneBooking(b)
		out = &b
		return nil
	})
	return out, err
}

// GetByIDForUpdate needs no row lock here: transactions are already serialized.
func (r *bookingRepository) GetByIDForUpdate(ctx context.Context, id int32) (*domain.Booking, error) {
	return r.GetByID(ctx, id)
}

func (r *bookingRepository) Update(ctx context.Context, b *domain.Booking) error {
	return r.s.write(ctx, func(t *tables) error {
		if _, ok := t.bookings[b.ID]; !ok {
			return notFound("booking")
		}
		t.bookings[b.ID] = cloneBooking(*b)
		return nil
	})
}

func (r *bookingRepository) Delete(ctx context.Context, id int32) error {
	return r.s.write(ctx, func(t *tables) error {
		if _, ok := t.bookings[id]; !ok {
			return notFound("booking")
		}
		delete(t.bookings, id)
		for aid, a := range t.assignments {
			if a.BookingID == id {
				delete(t.assignments, aid)
			}
		}
		for nid, n := range t.negotiations {
			if n.BookingID == id {
				delete(t.negotiations, nid)
			}
		}
		return nil
	})
}

func (r *bookingRepository) List(ctx context.Context) ([]domain.Booking, error) {
	return r.filter(func(domain.Booking) bool { return true })
}

func (r *bookingRepository) ListByCustomer(ctx context.Context, customerID int32) ([]domain.Booking, error) {
	return r.filter(func(b domain.Booking) bool { return b.CustomerID == customerID })
}

func (r *bookingRepository) ListByWorker(ctx context.Context, workerID int32) ([]domain.Booking, error) {
	return r.filter(func(b domain.Booking) bool { return b.IsWorker(workerID) })
}

func (r *bookingRepository) ListByWorkerAndStatus(ctx context.Context, workerID int32, status domain.BookingStatus) ([]domain.Booking, error) {
	return r.filter(func(b domain.Booking) bool { return b.IsWorker(workerID) && b.Status == status })
}

// filter returns matching bookings newest first.
func (r *bookingRepository) filter(keep func(domain.Booking) bool) ([]domain.Booking, error) {
	var out []domain.Booking
	err := r.s.read(func(t *tables) error {
		for _, b := range t.bookings {
			if keep(b) {
				out = append(out, cloneBooking(b))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, err
}

type assignmentRepository struct{ s *Store }

func (r *assignmentRepository) Create(ctx context.Context, a *domain.WorkerAssignment) error {
	return r.s.write(ctx, func(t *tables) error {
		for _, existing := range t.assignments {
			if existing.BookingID != a.BookingID {
				continue
			}
			if existing.AssignmentOrder == a.AssignmentOrder ||
				(existing.Status == domain.AssignmentStatusAssigned && a.Status == domain.AssignmentStatusAssigned) {
				return fmt.Errorf("booking %d already has an open or equally ordered assignment: %w", a.BookingID, domain.ErrConflict)
			}
		}
		a.ID = t.next()
		t.assignments[a.ID] = cloneAssignment(*a)
		return nil
	})
}

func (r *assignmentRepository) Update(ctx context.Context, a *domain.WorkerAssignment) error {
	return r.s.write(ctx, func(t *tables) error {
		existing, ok := t.assignments[a.ID]
		if !ok || existing.Status != domain.AssignmentStatusAssigned {
			return notFound("open assignment")
		}
		existing.Status = a.Status
		existing.RejectionReason = a.RejectionReason
		existing.ResponseAt = clonePtr(a.ResponseAt)
		t.assignments[a.ID] = existing
		return nil
	})
}

func (r *assignmentRepository) GetCurrent(ctx context.Context, bookingID int32) (*domain.WorkerAssignment, error) {
	var out *domain.WorkerAssignment
	err := r.s.read(func(t *tables) error {
		for _, a := range t.assignments {
			if a.BookingID == bookingID && a.Status == domain.AssignmentStatusAssigned {
				a = cloneAssignment(a)
				out = &a
				return nil
			}
		}
		return notFound("current assignment")
	})
	return out, err
}

func (r *assignmentRepository) ListByBooking(ctx context.Context, bookingID int32) ([]domain.WorkerAssignment, error) {
	out, err := r.filter(func(a domain.WorkerAssignment) bool { return a.BookingID == bookingID })
	sort.Slice(out, func(i, j int) bool { return out[i].AssignmentOrder < out[j].AssignmentOrder })
	return out, err
}

func (r *assignmentRepository) ListByWorker(ctx context.Context, workerID int32) ([]domain.WorkerAssignment, error) {
	out, err := r.filter(func(a domain.WorkerAssignment) bool { return a.WorkerID == workerID })
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, err
}

func (r *assignmentRepository) ListExcludedWorkerIDs(ctx context.Context, bookingID int32) ([]int32, error) {
	rows, err := r.filter(func(a domain.WorkerAssignment) bool {
		return a.BookingID == bookingID && a.Status.ExcludesWorker()
	})
	if err != nil {
		return nil, err
	}
	var ids []int32
	for _, a := range rows {
		if !slices.Contains(ids, a.WorkerID) {
			ids = append(ids, a.WorkerID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (r *assignmentRepository) GetMaxOrder(ctx context.Context, bookingID int32) (int32, error) {
	rows, err := r.filter(func(a domain.WorkerAssignment) bool { return a.BookingID == bookingID })
	var maxOrder int32
	for _, a := range rows {
		maxOrder = max(maxOrder, a.AssignmentOrder)
	}
	return maxOrder, err
}

func (r *assignmentRepository) ListStale(ctx context.Context, assignedBefore time.Time) ([]domain.WorkerAssignment, error) {
	var out []domain.WorkerAssignment
	err := r.s.read(func(t *tables) error {
		for _, a := range t.assignments {
			if a.Status != domain.AssignmentStatusAssigned || !a.AssignedAt.Before(assignedBefore) {
				continue
			}
			if b, ok := t.bookings[a.BookingID]; ok && b.Status == domain.BookingStatusWorkerAssigned {
				out = append(out, cloneAssignment(a))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].AssignedAt.Before(out[j].AssignedAt) })
	return out, err
}

func (r *assignmentRepository) filter(keep func(domain.WorkerAssignment) bool) ([]domain.WorkerAssignment, error) {
	var out []domain.WorkerAssignment
	err := r.s.read(func(t *tables) error {
		for _, a := range t.assignments {
			if keep(a) {
				out = append(out, cloneAssignment(a))
			}
		}
		return nil
	})
	return out, err
}

type walletRepository struct{ s *Store }

func (r *walletRepository) Create(ctx context.Context, w *domain.Wallet) error {
	return r.s.write(ctx, func(t *tables) error {
		for _, existing := range t.wallets {
			if existing.UserID == w.UserID {
				return fmt.Errorf("wallet for user %d: %w", w.UserID, domain.ErrConflict)
			}
		}
		w.ID = t.next()
		t.wallets[w.ID] = *w
		return nil
	})
}

func (r *walletRepository) GetByID(ctx context.Context, id int32) (*domain.Wallet, error) {
	var out *domain.Wallet
	err := r.s.read(func(t *tables) error {
		w, ok := t.wallets[id]
		if !ok {
			return notFound("wallet")
		}
		out = &w
		return nil
	})
	return out, err
}

func (r *walletRepository) GetByIDForUpdate(ctx context.Context, id int32) (*domain.Wallet, error) {
	return r.GetByID(ctx, id)
}

func (r *walletRepository) GetByUserID(ctx context.Context, userID int32) (*domain.Wallet, error) {
	var out *domain.Wallet
	err := r.s.read(func(t *tables) error {
		for _, w := range t.wallets {
			if w.UserID == userID {
				out = &w
				return nil
			}
		}
		return notFound("wallet")
	})
	return out, err
}

func (r *walletRepository) Update(ctx context.Context, w *domain.Wallet) error {
	return r.s.write(ctx, func(t *tables) error {
		if _, ok := t.wallets[w.ID]; !ok {
			return notFound("wallet")
		}
		t.wallets[w.ID] = *w
		return nil
	})
}

func (r *walletRepository) CreateTransaction(ctx context.Context, tx *domain.WalletTransaction) error {
	return r.s.write(ctx, func(t *tables) error {
		tx.ID = t.next()
		t.transactions = append(t.transactions, *tx)
		return nil
	})
}

func (r *walletRepository) ListTransactions(ctx context.Context, walletID int32, page, pageSize int32) ([]domain.WalletTransaction, int32, error) {
	var all []domain.WalletTransaction
	_ = r.s.read(func(t *tables) error {
		for _, tx := range t.transactions {
			if tx.WalletID == walletID {
				all = append(all, tx)
			}
		}
		return nil
	})
	slices.Reverse(all)

	total := int32(len(all))
	start := (page - 1) * pageSize
	if start >= total {
		return nil, total, nil
	}
	end := min(start+pageSize, total)
	return all[start:end], total, nil
}

type negotiationRepository struct{ s *Store }

func (r *negotiationRepository) Create(ctx context.Context, n *domain.Negotiation) error {
	return r.s.write(ctx, func(t *tables) error {
		for _, existing := range t.negotiations {
			if existing.BookingID == n.BookingID && existing.Status == domain.NegotiationStatusPending {
				return fmt.Errorf("booking %d: %w", n.BookingID, domain.ErrNegotiationInProgress)
			}
		}
		n.ID = t.next()
		t.negotiations[n.ID] = cloneNegotiation(*n)
		return nil
	})
}

func (r *negotiationRepository) GetByID(ctx context.Context, id int32) (*domain.Negotiation, error) {
	var out *domain.Negotiation
	err := r.s.read(func(t *tables) error {
		n, ok := t.negotiations[id]
		if !ok {
			return notFound("negotiation")
		}
		n = cloneNegotiation(n)
		out = &n
		return nil
	})
	return out, err
}

func (r *negotiationRepository) Update(ctx context.Context, n *domain.Negotiation) error {
	return r.s.write(ctx, func(t *tables) error {
		if _, ok := t.negotiations[n.ID]; !ok {
			return notFound("negotiation")
		}
		t.negotiations[n.ID] = cloneNegotiation(*n)
		return nil
	})
}

func (r *negotiationRepository) GetPendingByBooking(ctx context.Context, bookingID int32) (*domain.Negotiation, error) {
	rows, err := r.filter(func(n domain.Negotiation) bool {
		return n.BookingID == bookingID && n.Status == domain.NegotiationStatusPending
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, notFound("pending negotiation")
	}
	return &rows[0], nil
}

func (r *negotiationRepository) ListByCustomer(ctx context.Context, customerID int32) ([]domain.Negotiation, error) {
	return r.filter(func(n domain.Negotiation) bool { return n.CustomerID == customerID })
}

func (r *negotiationRepository) ListByWorker(ctx context.Context, workerID int32) ([]domain.Negotiation, error) {
	return r.filter(func(n domain.Negotiation) bool { return n.WorkerID == workerID })
}

func (r *negotiationRepository) ListStale(ctx context.Context, createdBefore time.Time) ([]domain.Negotiation, error) {
	return r.filter(func(n domain.Negotiation) bool {
		return n.Status == domain.NegotiationStatusPending && n.CreatedAt.Before(createdBefore)
	})
}

// filter returns matching negotiations newest first.
func (r *negotiationRepository) filter(keep func(domain.Negotiation) bool) ([]domain.Negotiation, error) {
	var out []domain.Negotiation
	err := r.s.read(func(t *tables) error {
		for _, n := range t.negotiations {
			if keep(n) {
				out = append(out, cloneNegotiation(n))
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, err
}
