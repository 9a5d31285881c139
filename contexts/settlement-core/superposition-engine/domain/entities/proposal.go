package entities

import "time"

type ProposalState string

const (
	ProposalStateDraft      ProposalState = "draft"
	ProposalStatePending    ProposalState = "pending"
	ProposalStateSuperposed ProposalState = "superposed"
	ProposalStateMeasured   ProposalState = "measured"
	ProposalStateFailed     ProposalState = "failed"
	ProposalStateExecuted   ProposalState = "executed"
)

// Proposal is one candidate decision competing inside a superposition event.
// EffectKind tags the opaque payload so the execution gate can dispatch it to
// a registered effect handler without interpreting the bytes itself.
type Proposal struct {
	ProposalID    uint64
	Creator       string
	Description   string
	EffectKind    string
	EffectPayload []byte
	State         ProposalState
	EventID       uint64 // 0 while the proposal is an unattached draft
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Attachable reports whether the proposal may still be linked to an event.
func (p Proposal) Attachable() bool {
	return p.State == ProposalStateDraft && p.EventID == 0
}
