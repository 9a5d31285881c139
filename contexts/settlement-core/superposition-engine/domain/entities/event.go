package entities

import "time"

type EventState string

const (
	EventStatePending     EventState = "pending"
	EventStateSuperposed  EventState = "superposed"
	EventStateMeasurement EventState = "measurement"
	EventStateMeasured    EventState = "measured"
	EventStateExecuted    EventState = "executed"
	EventStateCancelled   EventState = "cancelled"
)

// SuperpositionEvent groups competing proposals behind a time-boxed voting
// window. ProposalIDs is kept sorted ascending; measurement iterates it in
// that order so the weighted draw is deterministic for a given entropy value.
type SuperpositionEvent struct {
	EventID     uint64
	State       EventState
	ProposalIDs []uint64
	StartTime   time.Time
	EndTime     time.Time
	WinnerID    uint64 // 0 until measured
	Entropy     []byte // entropy consumed by measurement, empty before
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (e SuperpositionEvent) HasMember(proposalID uint64) bool {
	for _, id := range e.ProposalIDs {
		if id == proposalID {
			return true
		}
	}
	return false
}

// WindowOpen reports whether votes are still accepted at the given instant.
func (e SuperpositionEvent) WindowOpen(now time.Time) bool {
	return e.State == EventStateSuperposed && !now.After(e.EndTime)
}

// WindowElapsed reports whether the voting window has passed, which is the
// precondition for triggering measurement.
func (e SuperpositionEvent) WindowElapsed(now time.Time) bool {
	return now.After(e.EndTime)
}
