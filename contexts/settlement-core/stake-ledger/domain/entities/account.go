package entities

import (
	"time"

	"github.com/holiman/uint256"
)

// StakeAccount is a participant's custody-backed balance. Balances only move
// through deposit and withdraw; voting references the balance but never
// escrows it.
type StakeAccount struct {
	Participant string
	Balance     *uint256.Int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (a StakeAccount) BalanceOrZero() *uint256.Int {
	if a.Balance == nil {
		return new(uint256.Int)
	}
	return a.Balance.Clone()
}
