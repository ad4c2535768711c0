package domain

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("already exists")
	ErrInvalidAmount         = errors.New("amount must be greater than zero")
	ErrInvalidCommission     = errors.New("commission must be between zero and the released amount")
	ErrInsufficientFunds     = errors.New("insufficient funds in wallet")
	ErrInsufficientEscrow    = errors.New("insufficient funds in escrow")
	ErrAssignmentMismatch    = errors.New("worker is not the current assignee of this booking")
	ErrNoWorkersAvailable    = errors.New("no more available workers for this service")
	ErrInvalidStatus         = errors.New("invalid status")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrNegotiationInProgress = errors.New("a negotiation is already in progress for this booking")
	ErrNegotiationClosed     = errors.New("negotiation is no longer active")
	ErrNoWorkerAssigned      = errors.New("no worker assigned to this booking")
)
