package http

// Weights, tallies and balances travel as decimal strings so 256-bit values
// survive JSON without float truncation. Entropy travels hex encoded.

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateProposalRequest struct {
	Description   string `json:"description"`
	EffectKind    string `json:"effect_kind"`
	EffectPayload string `json:"effect_payload,omitempty"`
}

type ProposalResponse struct {
	ProposalID  uint64 `json:"proposal_id"`
	Creator     string `json:"creator"`
	Description string `json:"description"`
	EffectKind  string `json:"effect_kind"`
	State       string `json:"state"`
	EventID     uint64 `json:"event_id,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type CreateEventRequest struct {
	ProposalIDs []uint64 `json:"proposal_ids"`
}

type AddProposalRequest struct {
	ProposalID uint64 `json:"proposal_id"`
}

type ActivateEventRequest struct {
	VotingPeriod string `json:"voting_period,omitempty"`
}

type EventResponse struct {
	EventID     uint64   `json:"event_id"`
	State       string   `json:"state"`
	ProposalIDs []uint64 `json:"proposal_ids"`
	StartTime   string   `json:"start_time,omitempty"`
	EndTime     string   `json:"end_time,omitempty"`
	WinnerID    uint64   `json:"winner_id,omitempty"`
	Entropy     string   `json:"entropy,omitempty"`
}

type CastVoteRequest struct {
	ProposalID uint64 `json:"proposal_id"`
	Weight     string `json:"weight"`
}

type VoteResponse struct {
	EventID    uint64 `json:"event_id"`
	Voter      string `json:"voter"`
	ProposalID uint64 `json:"proposal_id"`
	Weight     string `json:"weight"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type MeasureEventRequest struct {
	Entropy string `json:"entropy"`
}

type MeasurementResponse struct {
	EventID         uint64 `json:"event_id"`
	State           string `json:"state"`
	WinnerID        uint64 `json:"winner_id"`
	TotalTally      string `json:"total_tally"`
	UniformFallback bool   `json:"uniform_fallback"`
}

type ProposalTallyItem struct {
	ProposalID uint64 `json:"proposal_id"`
	State      string `json:"state"`
	Weight     string `json:"weight"`
}

type EventTalliesResponse struct {
	EventID   uint64              `json:"event_id"`
	State     string              `json:"state"`
	Total     string              `json:"total"`
	WinnerID  uint64              `json:"winner_id,omitempty"`
	EndTime   string              `json:"end_time,omitempty"`
	Proposals []ProposalTallyItem `json:"proposals"`
}
