package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"bluecollar-backend/internal/domain"
	"bluecollar-backend/internal/logger"
	"bluecollar-backend/internal/repository"
)

type walletRepository struct {
	db *sql.DB
}

func NewWalletRepository(db *sql.DB) repository.WalletRepository {
	return &walletRepository{db: db}
}

const walletColumns = `id, user_id, balance, escrow_balance, currency, created_at, updated_at`

func scanWallet(row scanner) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(&w.ID, &w.UserID, &w.Balance, &w.EscrowBalance, &w.Currency, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (r *walletRepository) Create(ctx context.Context, w *domain.Wallet) error {
	query := `INSERT INTO wallets (user_id, balance, escrow_balance, currency, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	err := conn(ctx, r.db).QueryRowContext(ctx, query, w.UserID, w.Balance, w.EscrowBalance, w.Currency, w.CreatedAt, w.UpdatedAt).Scan(&w.ID)
	if isUniqueViolation(err) {
		return fmt.Errorf("wallet for user %d: %w", w.UserID, domain.ErrConflict)
	}
	return err
}

func (r *walletRepository) GetByID(ctx context.Context, id int32) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1`
	w, err := scanWallet(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "wallet")
	}
	return w, nil
}

func (r *walletRepository) GetByIDForUpdate(ctx context.Context, id int32) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`
	w, err := scanWallet(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "wallet")
	}
	return w, nil
}

func (r *walletRepository) GetByUserID(ctx context.Context, userID int32) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE user_id = $1`
	w, err := scanWallet(conn(ctx, r.db).QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, notFound(err, "wallet")
	}
	return w, nil
}

func (r *walletRepository) Update(ctx context.Context, w *domain.Wallet) error {
	query := `UPDATE wallets SET balance=$1, escrow_balance=$2, updated_at=$3 WHERE id=$4`
	logger.DatabaseCall("UpdateWallet", query, "wallet_id", w.ID)
	res, err := conn(ctx, r.db).ExecContext(ctx, query, w.Balance, w.EscrowBalance, w.UpdatedAt, w.ID)
	if err != nil {
		logger.DatabaseResult("UpdateWallet", 0, err, "wallet_id", w.ID)
		return err
	}
	n, _ := res.RowsAffected()
	logger.DatabaseResult("UpdateWallet", n, nil, "wallet_id", w.ID)
	return expectOneRow(res, "wallet")
}

func (r *walletRepository) CreateTransaction(ctx context.Context, t *domain.WalletTransaction) error {
	query := `INSERT INTO wallet_transactions (wallet_id, transaction_type, amount, balance_before, balance_after,
	          escrow_balance_before, escrow_balance_after, description, reference_id, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id`
	return conn(ctx, r.db).QueryRowContext(ctx, query, t.WalletID, t.Type, t.Amount, t.BalanceBefore, t.BalanceAfter,
		t.EscrowBalanceBefore, t.EscrowBalanceAfter, t.Description, t.ReferenceID, t.CreatedAt).Scan(&t.ID)
}

func (r *walletRepository) ListTransactions(ctx context.Context, walletID int32, page, pageSize int32) ([]domain.WalletTransaction, int32, error) {
	q := conn(ctx, r.db)

	var count int32
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM wallet_transactions WHERE wallet_id = $1`, walletID).Scan(&count); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, wallet_id, transaction_type, amount, balance_before, balance_after, escrow_balance_before,
	          escrow_balance_after, COALESCE(description, ''), COALESCE(reference_id, ''), created_at
	          FROM wallet_transactions WHERE wallet_id = $1
	          ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`
	rows, err := q.QueryContext(ctx, query, walletID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var txs []domain.WalletTransaction
	for rows.Next() {
		var t domain.WalletTransaction
		if err := rows.Scan(&t.ID, &t.WalletID, &t.Type, &t.Amount, &t.BalanceBefore, &t.BalanceAfter,
			&t.EscrowBalanceBefore, &t.EscrowBalanceAfter, &t.Description, &t.ReferenceID, &t.CreatedAt); err != nil {
			return nil, 0, err
		}
		txs = append(txs, t)
	}
	return txs, count, rows.Err()
}
