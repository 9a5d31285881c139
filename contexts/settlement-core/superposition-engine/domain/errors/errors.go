package errors

import "errors"

var (
	ErrInvalidInput          = errors.New("superposition input is invalid")
	ErrProposalNotFound      = errors.New("proposal not found")
	ErrEventNotFound         = errors.New("superposition event not found")
	ErrVoteNotFound          = errors.New("voter has no live vote in this event")
	ErrInvalidState          = errors.New("operation not allowed in current state")
	ErrInvalidProposalState  = errors.New("proposal is not an unattached draft")
	ErrInsufficientProposals = errors.New("superposition event requires at least two proposals")
	ErrInsufficientStake     = errors.New("vote weight exceeds staked balance")
	ErrWindowClosed          = errors.New("voting window has closed")
	ErrWindowOpen            = errors.New("voting window has not elapsed yet")
	ErrNotAuthorized         = errors.New("caller is not authorized for this operation")
	ErrEntropyRequired       = errors.New("non-zero measurement entropy is required")
	ErrMeasurementInvariant  = errors.New("measurement failed to select a winner despite non-zero tally")
	ErrEffectFailed          = errors.New("effect execution failed")
	ErrConflict              = errors.New("superposition record conflict")
)
