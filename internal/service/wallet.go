package service

import (
	"context"
	"errors"
	"fmt"

	"bluecollar-backend/internal/clock"
	"bluecollar-backend/internal/domain"
	"bluecollar-backend/internal/logger"
	"bluecollar-backend/internal/repository"
	"bluecollar-backend/internal/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type walletService struct {
	txm         repository.TxManager
	walletRepo  repository.WalletRepository
	userRepo    repository.UserRepository
	bookingRepo repository.BookingRepository
	notifier    Notifier
	clock       clock.Clock
	currency    string
}

func NewWalletService(
	txm repository.TxManager,
	walletRepo repository.WalletRepository,
	userRepo repository.UserRepository,
	bookingRepo repository.BookingRepository,
	notifier Notifier,
	clk clock.Clock,
	currency string,
) WalletService {
	if currency == "" {
		currency = domain.DefaultCurrency
	}
	return &walletService{
		txm:         txm,
		walletRepo:  walletRepo,
		userRepo:    userRepo,
		bookingRepo: bookingRepo,
		notifier:    notifier,
		clock:       clk,
		currency:    currency,
	}
}

// GetOrCreateWallet returns the user's wallet, opening an empty one on first use.
func (s *walletService) GetOrCreateWallet(ctx context.Context, userID int32) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	wallet = domain.NewWallet(userID, s.currency, s.clock.Now())
	err = s.walletRepo.Create(ctx, wallet)
	if errors.Is(err, domain.ErrConflict) {
		// Opened concurrently by another request.
		return s.walletRepo.GetByUserID(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("create wallet: %w", err)
	}
	logger.InfoContext(ctx, "Wallet created", "user_id", userID, "wallet_id", wallet.ID)
	return wallet, nil
}

func (s *walletService) GetWallet(ctx context.Context, walletID int32) (*domain.Wallet, error) {
	return s.walletRepo.GetByID(ctx, walletID)
}

func (s *walletService) GetWalletByUserID(ctx context.Context, userID int32) (*domain.Wallet, error) {
	return s.walletRepo.GetByUserID(ctx, userID)
}

func (s *walletService) DepositToWallet(ctx context.Context, walletID int32, amount decimal.Decimal, description, referenceID string) (*domain.Wallet, error) {
	if description == "" {
		description = "Money added to wallet"
	}
	if referenceID == "" {
		referenceID = "DEP_" + uuid.NewString()
	}
	wallet, err := s.apply(ctx, "DepositToWallet", walletID, nil, func(w *domain.Wallet) ([]*domain.WalletTransaction, error) {
		tx, err := w.Credit(amount, s.clock.Now())
		if err != nil {
			return nil, err
		}
		return ledger(tx, description, referenceID), nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyWallet(ctx, EventWalletCredited, wallet, 0, amount)
	return wallet, nil
}

func (s *walletService) WithdrawFromWallet(ctx context.Context, walletID int32, amount decimal.Decimal, description, referenceID string) (*domain.Wallet, error) {
	if description == "" {
		description = "Money withdrawn from wallet"
	}
	if referenceID == "" {
		referenceID = "WDR_" + uuid.NewString()
	}
	wallet, err := s.apply(ctx, "WithdrawFromWallet", walletID, nil, func(w *domain.Wallet) ([]*domain.WalletTransaction, error) {
		tx, err := w.Debit(amount, s.clock.Now())
		if err != nil {
			return nil, err
		}
		return ledger(tx, description, referenceID), nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyWallet(ctx, EventWalletDebited, wallet, 0, amount)
	return wallet, nil
}

// MoveMoneyToEscrow holds amount from the spendable balance against a booking.
func (s *walletService) MoveMoneyToEscrow(ctx context.Context, walletID, bookingID int32, amount decimal.Decimal) (*domain.Wallet, error) {
	wallet, err := s.applyForBooking(ctx, "MoveMoneyToEscrow", walletID, bookingID, func(w *domain.Wallet) ([]*domain.WalletTransaction, error) {
		tx, err := w.HoldInEscrow(amount, s.clock.Now())
		if err != nil {
			return nil, err
		}
		return ledger(tx, fmt.Sprintf("Money moved to escrow for booking #%d", bookingID), bookingReference(bookingID)), nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyWallet(ctx, EventEscrowDeposited, wallet, bookingID, amount)
	return wallet, nil
}

// ReleaseMoneyFromEscrow pays out amount less commission from escrow.
func (s *walletService) ReleaseMoneyFromEscrow(ctx context.Context, walletID, bookingID int32, amount, commission decimal.Decimal) (*domain.Wallet, error) {
	wallet, err := s.applyForBooking(ctx, "ReleaseMoneyFromEscrow", walletID, bookingID, func(w *domain.Wallet) ([]*domain.WalletTransaction, error) {
		entries, err := w.ReleaseEscrow(amount, commission, s.clock.Now())
		if err != nil {
			return nil, err
		}
		ref := bookingReference(bookingID)
		for _, e := range entries {
			e.ReferenceID = ref
			if e.Type == domain.TransactionTypeCommissionDeduct {
				e.Description = fmt.Sprintf("Commission deducted for booking #%d", bookingID)
			} else {
				e.Description = fmt.Sprintf("Money released from escrow for booking #%d", bookingID)
			}
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyWallet(ctx, EventEscrowReleased, wallet, bookingID, amount)
	return wallet, nil
}

func (s *walletService) RefundMoneyFromEscrow(ctx context.Context, walletID, bookingID int32, amount decimal.Decimal) (*domain.Wallet, error) {
	wallet, err := s.applyForBooking(ctx, "RefundMoneyFromEscrow", walletID, bookingID, func(w *domain.Wallet) ([]*domain.WalletTransaction, error) {
		tx, err := w.RefundEscrow(amount, s.clock.Now())
		if err != nil {
			return nil, err
		}
		return ledger(tx, fmt.Sprintf("Money refunded from escrow for booking #%d", bookingID), bookingReference(bookingID)), nil
	})
	if err != nil {
		return nil, err
	}
	s.notifyWallet(ctx, EventEscrowRefunded, wallet, bookingID, amount)
	return wallet, nil
}

func (s *walletService) ListTransactions(ctx context.Context, walletID int32, page, pageSize int32) ([]domain.WalletTransaction, int32, error) {
	if _, err := s.walletRepo.GetByID(ctx, walletID); err != nil {
		return nil, 0, err
	}
	page, pageSize = utils.NormalizePage(page, pageSize)
	return s.walletRepo.ListTransactions(ctx, walletID, page, pageSize)
}

func (s *walletService) applyForBooking(
	ctx context.Context,
	op string,
	walletID, bookingID int32,
	fn func(w *domain.Wallet) ([]*domain.WalletTransaction, error),
) (*domain.Wallet, error) {
	return s.apply(ctx, op, walletID, func(ctx context.Context) error {
		if _, err := s.bookingRepo.GetByID(ctx, bookingID); err != nil {
			return fmt.Errorf("booking %d: %w", bookingID, err)
		}
		return nil
	}, fn)
}

// apply locks the wallet, lets fn change it, then stores the wallet and the
// ledger rows fn produced in the same transaction. check, when set, runs
// first inside that transaction.
func (s *walletService) apply(
	ctx context.Context,
	op string,
	walletID int32,
	check func(ctx context.Context) error,
	fn func(w *domain.Wallet) ([]*domain.WalletTransaction, error),
) (*domain.Wallet, error) {
	logger.EnterMethod("walletService."+op, "walletID", walletID)

	var wallet *domain.Wallet
	err := s.txm.WithinTx(ctx, func(ctx context.Context) error {
		if check != nil {
			if err := check(ctx); err != nil {
				return err
			}
		}
		var err error
		wallet, err = s.walletRepo.GetByIDForUpdate(ctx, walletID)
		if err != nil {
			return err
		}
		entries, err := fn(wallet)
		if err != nil {
			return err
		}
		if err := s.walletRepo.Update(ctx, wallet); err != nil {
			return err
		}
		for _, e := range entries {
			if err := s.walletRepo.CreateTransaction(ctx, e); err != nil {
				return fmt.Errorf("record %s transaction: %w", e.Type, err)
			}
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError("walletService."+op, err, "walletID", walletID)
		return nil, err
	}

	logger.ExitMethod("walletService."+op, "balance", wallet.Balance.String(), "escrow", wallet.EscrowBalance.String())
	return wallet, nil
}

func (s *walletService) notifyWallet(ctx context.Context, typ string, w *domain.Wallet, bookingID int32, amount decimal.Decimal) {
	s.notifier.Notify(ctx, Event{
		Type:       typ,
		WalletID:   w.ID,
		UserID:     w.UserID,
		BookingID:  bookingID,
		Amount:     amount.StringFixed(2),
		OccurredAt: w.UpdatedAt,
	})
}

func ledger(tx *domain.WalletTransaction, description, referenceID string) []*domain.WalletTransaction {
	tx.Description = description
	tx.ReferenceID = referenceID
	return []*domain.WalletTransaction{tx}
}

func bookingReference(bookingID int32) string {
	return fmt.Sprintf("BOOKING_%d", bookingID)
}
