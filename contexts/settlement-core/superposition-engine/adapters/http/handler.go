package httpadapter

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/holiman/uint256"

	"quorum/contexts/settlement-core/superposition-engine/application/commands"
	"quorum/contexts/settlement-core/superposition-engine/application/queries"
	"quorum/contexts/settlement-core/superposition-engine/domain/entities"
	domainerrors "quorum/contexts/settlement-core/superposition-engine/domain/errors"
	httptransport "quorum/contexts/settlement-core/superposition-engine/transport/http"
)

// Handler adapts transport DTOs to application commands and back. All
// validation beyond parse errors lives in the use cases.
type Handler struct {
	Proposals    commands.ProposalUseCase
	Events       commands.EventUseCase
	Votes        commands.VoteUseCase
	Measurements commands.MeasurementUseCase
	Executions   commands.ExecutionUseCase
	Tallies      queries.TallyUseCase
	Logger       *slog.Logger
}

func (h Handler) CreateProposalHandler(
	ctx context.Context,
	userID string,
	req httptransport.CreateProposalRequest,
) (httptransport.ProposalResponse, error) {
	proposal, err := h.Proposals.CreateProposal(ctx, commands.CreateProposalCommand{
		Creator:       userID,
		Description:   req.Description,
		EffectKind:    req.EffectKind,
		EffectPayload: []byte(req.EffectPayload),
	})
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return proposalResponse(proposal), nil
}

func (h Handler) CancelProposalHandler(ctx context.Context, proposalID uint64, userID string) error {
	return h.Proposals.CancelDraft(ctx, commands.CancelDraftCommand{
		ProposalID: proposalID,
		Caller:     userID,
	})
}

func (h Handler) ProposalStatusHandler(ctx context.Context, proposalID uint64) (httptransport.ProposalResponse, error) {
	proposal, err := h.Tallies.ProposalStatus(ctx, proposalID)
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return proposalResponse(proposal), nil
}

func (h Handler) ExecuteProposalHandler(ctx context.Context, proposalID uint64) error {
	return h.Executions.ExecuteWinner(ctx, commands.ExecuteWinnerCommand{
		ProposalID: proposalID,
	})
}

func (h Handler) CreateEventHandler(
	ctx context.Context,
	req httptransport.CreateEventRequest,
) (httptransport.EventResponse, error) {
	event, err := h.Events.CreateEvent(ctx, commands.CreateEventCommand{
		ProposalIDs: req.ProposalIDs,
	})
	if err != nil {
		return httptransport.EventResponse{}, err
	}
	return eventResponse(event), nil
}

func (h Handler) AddProposalHandler(
	ctx context.Context,
	eventID uint64,
	req httptransport.AddProposalRequest,
) error {
	return h.Events.AddProposal(ctx, commands.AddProposalCommand{
		EventID:    eventID,
		ProposalID: req.ProposalID,
	})
}

func (h Handler) ActivateEventHandler(
	ctx context.Context,
	eventID uint64,
	req httptransport.ActivateEventRequest,
) (httptransport.EventResponse, error) {
	var period time.Duration
	if strings.TrimSpace(req.VotingPeriod) != "" {
		parsed, err := time.ParseDuration(strings.TrimSpace(req.VotingPeriod))
		if err != nil || parsed <= 0 {
			return httptransport.EventResponse{}, fmt.Errorf("%w: voting_period", domainerrors.ErrInvalidInput)
		}
		period = parsed
	}
	event, err := h.Events.ActivateEvent(ctx, commands.ActivateEventCommand{
		EventID:      eventID,
		VotingPeriod: period,
	})
	if err != nil {
		return httptransport.EventResponse{}, err
	}
	return eventResponse(event), nil
}

func (h Handler) CancelEventHandler(ctx context.Context, eventID uint64) error {
	return h.Events.CancelEvent(ctx, commands.CancelEventCommand{
		EventID: eventID,
	})
}

func (h Handler) CastVoteHandler(
	ctx context.Context,
	eventID uint64,
	userID string,
	req httptransport.CastVoteRequest,
) (httptransport.VoteResponse, error) {
	weight, err := parseWeight(req.Weight)
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	record, err := h.Votes.CastVote(ctx, commands.CastVoteCommand{
		EventID:    eventID,
		Voter:      userID,
		ProposalID: req.ProposalID,
		Weight:     weight,
	})
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	return voteResponse(record), nil
}

func (h Handler) RevokeVoteHandler(ctx context.Context, eventID uint64, userID string) error {
	return h.Votes.RevokeVote(ctx, commands.RevokeVoteCommand{
		EventID: eventID,
		Voter:   userID,
	})
}

func (h Handler) VoterVoteHandler(ctx context.Context, eventID uint64, voter string) (httptransport.VoteResponse, error) {
	record, err := h.Tallies.VoterVote(ctx, eventID, voter)
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	return voteResponse(record), nil
}

func (h Handler) MeasureEventHandler(
	ctx context.Context,
	eventID uint64,
	req httptransport.MeasureEventRequest,
) (httptransport.MeasurementResponse, error) {
	entropy, err := parseEntropy(req.Entropy)
	if err != nil {
		return httptransport.MeasurementResponse{}, err
	}
	result, err := h.Measurements.TriggerMeasurement(ctx, commands.TriggerMeasurementCommand{
		EventID: eventID,
		Entropy: entropy,
	})
	if err != nil {
		return httptransport.MeasurementResponse{}, err
	}
	total := "0"
	if result.Total != nil {
		total = result.Total.Dec()
	}
	return httptransport.MeasurementResponse{
		EventID:         result.Event.EventID,
		State:           string(result.Event.State),
		WinnerID:        result.WinnerID,
		TotalTally:      total,
		UniformFallback: result.UniformFallback,
	}, nil
}

func (h Handler) EventStatusHandler(ctx context.Context, eventID uint64) (httptransport.EventResponse, error) {
	event, err := h.Tallies.EventStatus(ctx, eventID)
	if err != nil {
		return httptransport.EventResponse{}, err
	}
	return eventResponse(event), nil
}

func (h Handler) EventTalliesHandler(ctx context.Context, eventID uint64) (httptransport.EventTalliesResponse, error) {
	tallies, err := h.Tallies.EventTallies(ctx, eventID)
	if err != nil {
		return httptransport.EventTalliesResponse{}, err
	}
	items := make([]httptransport.ProposalTallyItem, 0, len(tallies.Proposals))
	for _, item := range tallies.Proposals {
		items = append(items, httptransport.ProposalTallyItem{
			ProposalID: item.ProposalID,
			State:      string(item.State),
			Weight:     decString(item.Weight),
		})
	}
	resp := httptransport.EventTalliesResponse{
		EventID:   tallies.EventID,
		State:     string(tallies.State),
		Total:     decString(tallies.Total),
		WinnerID:  tallies.WinnerID,
		Proposals: items,
	}
	if !tallies.EndTime.IsZero() {
		resp.EndTime = tallies.EndTime.UTC().Format(time.RFC3339)
	}
	return resp, nil
}

func proposalResponse(proposal entities.Proposal) httptransport.ProposalResponse {
	return httptransport.ProposalResponse{
		ProposalID:  proposal.ProposalID,
		Creator:     proposal.Creator,
		Description: proposal.Description,
		EffectKind:  proposal.EffectKind,
		State:       string(proposal.State),
		EventID:     proposal.EventID,
		CreatedAt:   proposal.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func eventResponse(event entities.SuperpositionEvent) httptransport.EventResponse {
	resp := httptransport.EventResponse{
		EventID:     event.EventID,
		State:       string(event.State),
		ProposalIDs: append([]uint64(nil), event.ProposalIDs...),
		WinnerID:    event.WinnerID,
	}
	if !event.StartTime.IsZero() {
		resp.StartTime = event.StartTime.UTC().Format(time.RFC3339)
	}
	if !event.EndTime.IsZero() {
		resp.EndTime = event.EndTime.UTC().Format(time.RFC3339)
	}
	if len(event.Entropy) > 0 {
		resp.Entropy = hex.EncodeToString(event.Entropy)
	}
	return resp
}

func voteResponse(record entities.VoteRecord) httptransport.VoteResponse {
	return httptransport.VoteResponse{
		EventID:    record.EventID,
		Voter:      record.Voter,
		ProposalID: record.ProposalID,
		Weight:     decString(record.Weight),
		CreatedAt:  record.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  record.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func decString(value *uint256.Int) string {
	if value == nil {
		return "0"
	}
	return value.Dec()
}

func parseWeight(value string) (*uint256.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, fmt.Errorf("%w: weight is required", domainerrors.ErrInvalidInput)
	}
	weight, err := uint256.FromDecimal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: weight must be a decimal integer", domainerrors.ErrInvalidInput)
	}
	return weight, nil
}

func parseEntropy(value string) ([]byte, error) {
	value = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(value), "0x"))
	if value == "" {
		return nil, fmt.Errorf("%w: entropy is required", domainerrors.ErrEntropyRequired)
	}
	entropy, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: entropy must be hex encoded", domainerrors.ErrInvalidInput)
	}
	return entropy, nil
}
