package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "INR"

type TransactionType string

const (
	TransactionTypeCredit           TransactionType = "CREDIT"
	TransactionTypeDebit            TransactionType = "DEBIT"
	TransactionTypeEscrowDeposit    TransactionType = "ESCROW_DEPOSIT"
	TransactionTypeEscrowRelease    TransactionType = "ESCROW_RELEASE"
	TransactionTypeEscrowRefund     TransactionType = "ESCROW_REFUND"
	TransactionTypeCommissionDeduct TransactionType = "COMMISSION_DEDUCT"
)

type Wallet struct {
	ID            int32           `json:"id"`
	UserID        int32           `json:"user_id"`
	Balance       decimal.Decimal `json:"balance"`
	EscrowBalance decimal.Decimal `json:"escrow_balance"`
	Currency      string          `json:"currency"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// WalletTransaction is an append-only ledger row capturing both balances
// before and after it was applied.
type WalletTransaction struct {
	ID                  int32           `json:"id"`
	WalletID            int32           `json:"wallet_id"`
	Type                TransactionType `json:"transaction_type"`
	Amount              decimal.Decimal `json:"amount"`
	BalanceBefore       decimal.Decimal `json:"balance_before"`
	BalanceAfter        decimal.Decimal `json:"balance_after"`
	EscrowBalanceBefore decimal.Decimal `json:"escrow_balance_before"`
	EscrowBalanceAfter  decimal.Decimal `json:"escrow_balance_after"`
	Description         string          `json:"description"`
	ReferenceID         string          `json:"reference_id,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
}

func NewWallet(userID int32, currency string, at time.Time) *Wallet {
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Wallet{
		UserID:        userID,
		Balance:       decimal.Zero,
		EscrowBalance: decimal.Zero,
		Currency:      currency,
		CreatedAt:     at,
		UpdatedAt:     at,
	}
}

// Credit adds spendable funds.
func (w *Wallet) Credit(amount decimal.Decimal, at time.Time) (*WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	return w.apply(TransactionTypeCredit, amount, amount, decimal.Zero, at), nil
}

// Debit removes spendable funds.
func (w *Wallet) Debit(amount decimal.Decimal, at time.Time) (*WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if w.Balance.LessThan(amount) {
		return nil, ErrInsufficientFunds
	}
	return w.apply(TransactionTypeDebit, amount, amount.Neg(), decimal.Zero, at), nil
}

// HoldInEscrow moves amount from the spendable balance into escrow.
func (w *Wallet) HoldInEscrow(amount decimal.Decimal, at time.Time) (*WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if w.Balance.LessThan(amount) {
		return nil, ErrInsufficientFunds
	}
	return w.apply(TransactionTypeEscrowDeposit, amount, amount.Neg(), amount, at), nil
}

// ReleaseEscrow drains amount from escrow and credits amount minus
// commission to the spendable balance. A positive commission is recorded as
// a second row that leaves both balances unchanged; no platform account
// receives it.
func (w *Wallet) ReleaseEscrow(amount, commission decimal.Decimal, at time.Time) ([]*WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if commission.IsNegative() || commission.GreaterThan(amount) {
		return nil, ErrInvalidCommission
	}
	if w.EscrowBalance.LessThan(amount) {
		return nil, ErrInsufficientEscrow
	}
	entries := []*WalletTransaction{
		w.apply(TransactionTypeEscrowRelease, amount, amount.Sub(commission), amount.Neg(), at),
	}
	if commission.IsPositive() {
		entries = append(entries, w.apply(TransactionTypeCommissionDeduct, commission, decimal.Zero, decimal.Zero, at))
	}
	return entries, nil
}

// RefundEscrow returns amount from escrow to the spendable balance.
func (w *Wallet) RefundEscrow(amount decimal.Decimal, at time.Time) (*WalletTransaction, error) {
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if w.EscrowBalance.LessThan(amount) {
		return nil, ErrInsufficientEscrow
	}
	return w.apply(TransactionTypeEscrowRefund, amount, amount, amount.Neg(), at), nil
}

func (w *Wallet) apply(typ TransactionType, amount, balanceDelta, escrowDelta decimal.Decimal, at time.Time) *WalletTransaction {
	tx := &WalletTransaction{
		WalletID:            w.ID,
		Type:                typ,
		Amount:              amount,
		BalanceBefore:       w.Balance,
		EscrowBalanceBefore: w.EscrowBalance,
		CreatedAt:           at,
	}
	w.Balance = w.Balance.Add(balanceDelta)
	w.EscrowBalance = w.EscrowBalance.Add(escrowDelta)
	w.UpdatedAt = at
	tx.BalanceAfter = w.Balance
	tx.EscrowBalanceAfter = w.EscrowBalance
	return tx
}
