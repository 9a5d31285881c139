package errors

import "errors"

var (
	ErrInvalidInput           = errors.New("invalid stake input")
	ErrInvalidAmount          = errors.New("amount must be a positive integer")
	ErrAccountNotFound        = errors.New("stake account not found")
	ErrInsufficientStake      = errors.New("insufficient stake balance")
	ErrStakeCommitted         = errors.New("stake committed to live votes")
	ErrCustodyUnavailable     = errors.New("custody transfer failed")
	ErrIdempotencyKeyRequired = errors.New("idempotency key required")
	ErrIdempotencyConflict    = errors.New("idempotency key reused with different request")
	ErrConflict               = errors.New("conflicting stake ledger state")
)
