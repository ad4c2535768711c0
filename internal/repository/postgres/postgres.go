package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bluecollar-backend/internal/domain"
	"bluecollar-backend/internal/repository"

	"github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.UserRepository
	repository.WorkRepository
	repository.BookingRepository
	repository.AssignmentRepository
	repository.WalletRepository
	repository.NegotiationRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                    db,
		UserRepository:        NewUserRepository(db),
		WorkRepository:        NewWorkRepository(db),
		BookingRepository:     NewBookingRepository(db),
		AssignmentRepository:  NewAssignmentRepository(db),
		WalletRepository:      NewWalletRepository(db),
		NegotiationRepository: NewNegotiationRepository(db),
	}
}

// WithinTx implements repository.TxManager.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type txKey struct{}

func txFromContext(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// querier is the subset shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the transaction carried by ctx, or db when there is none.
func conn(ctx context.Context, db *sql.DB) querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return db
}

type scanner interface {
	Scan(dest ...any) error
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %w", what, domain.ErrNotFound)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func expectOneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound(sql.ErrNoRows, what)
	}
	return nil
}

func int64s(ids []int32) []int64 {
	out := make([]int64, len(ids))
	for i, id := range ids {
		out[i] = int64(id)
	}
	return out
}
