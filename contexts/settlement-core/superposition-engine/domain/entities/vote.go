package entities

import (
	"time"

	"github.com/holiman/uint256"
)

// VoteRecord is the single live vote a voter holds inside one event. A voter
// backs at most one proposal per event; re-voting replaces the record in full.
type VoteRecord struct {
	EventID    uint64
	Voter      string
	ProposalID uint64
	Weight     *uint256.Int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ProposalTally is the cached vote-weight sum for one proposal in one event.
type ProposalTally struct {
	ProposalID uint64
	State      ProposalState
	Weight     *uint256.Int
}

// EventTallies is the aggregate view of an event: per-proposal tallies in
// member order plus the event grand total. Total always equals the sum of
// the proposal tallies; both are maintained incrementally on vote/revoke.
type EventTallies struct {
	EventID   uint64
	State     EventState
	Total     *uint256.Int
	WinnerID  uint64
	EndTime   time.Time
	Proposals []ProposalTally
}
