package queries

import (
	"context"
	"log/slog"

	"github.com/holiman/uint256"

	"quorum/contexts/settlement-core/superposition-engine/domain/entities"
	domainerrors "quorum/contexts/settlement-core/superposition-engine/domain/errors"
	"quorum/contexts/settlement-core/superposition-engine/ports"
)

// TallyUseCase serves the read side of the engine: event status, per-proposal
// tallies and voter lookups. Reads are not serialized through the command
// gate; they observe whatever the repositories currently hold.
type TallyUseCase struct {
	Events    ports.EventRepository
	Proposals ports.ProposalRepository
	Votes     ports.VoteRepository
	Tallies   ports.TallyStore
	Logger    *slog.Logger
}

// EventStatus returns the stored event by id.
func (uc TallyUseCase) EventStatus(ctx context.Context, eventID uint64) (entities.SuperpositionEvent, error) {
	if eventID == 0 {
		return entities.SuperpositionEvent{}, domainerrors.ErrInvalidInput
	}
	return uc.Events.GetEvent(ctx, eventID)
}

// EventTallies reports the running total and per-member tallies for an event,
// in member order. Members with no votes yet report a zero tally.
func (uc TallyUseCase) EventTallies(ctx context.Context, eventID uint64) (entities.EventTallies, error) {
	if eventID == 0 {
		return entities.EventTallies{}, domainerrors.ErrInvalidInput
	}
	event, err := uc.Events.GetEvent(ctx, eventID)
	if err != nil {
		return entities.EventTallies{}, err
	}
	total, err := uc.Tallies.EventTotal(ctx, event.EventID)
	if err != nil {
		return entities.EventTallies{}, err
	}
	result := entities.EventTallies{
		EventID:   event.EventID,
		State:     event.State,
		Total:     total,
		WinnerID:  event.WinnerID,
		EndTime:   event.EndTime,
		Proposals: make([]entities.ProposalTally, 0, len(event.ProposalIDs)),
	}
	for _, memberID := range event.ProposalIDs {
		weight, err := uc.Tallies.ProposalTally(ctx, event.EventID, memberID)
		if err != nil {
			return entities.EventTallies{}, err
		}
		proposal, err := uc.Proposals.GetProposal(ctx, memberID)
		if err != nil {
			return entities.EventTallies{}, err
		}
		result.Proposals = append(result.Proposals, entities.ProposalTally{
			ProposalID: memberID,
			State:      proposal.State,
			Weight:     weight,
		})
	}
	return result, nil
}

// ProposalStatus returns the stored proposal by id.
func (uc TallyUseCase) ProposalStatus(ctx context.Context, proposalID uint64) (entities.Proposal, error) {
	if proposalID == 0 {
		return entities.Proposal{}, domainerrors.ErrInvalidInput
	}
	return uc.Proposals.GetProposal(ctx, proposalID)
}

// VoterVote returns a voter's current vote on an event.
func (uc TallyUseCase) VoterVote(ctx context.Context, eventID uint64, voter string) (entities.VoteRecord, error) {
	if eventID == 0 || voter == "" {
		return entities.VoteRecord{}, domainerrors.ErrInvalidInput
	}
	record, found, err := uc.Votes.GetVote(ctx, eventID, voter)
	if err != nil {
		return entities.VoteRecord{}, err
	}
	if !found {
		return entities.VoteRecord{}, domainerrors.ErrVoteNotFound
	}
	return record, nil
}

// CommittedWeight reports the largest weight the participant currently has
// riding on any event still in superposition. The stake ledger uses it to
// bound withdrawals: balance minus committed weight is what may leave.
func (uc TallyUseCase) CommittedWeight(ctx context.Context, participant string) (*uint256.Int, error) {
	if participant == "" {
		return nil, domainerrors.ErrInvalidInput
	}
	votes, err := uc.Votes.ListVotesByVoter(ctx, participant)
	if err != nil {
		return nil, err
	}
	committed := new(uint256.Int)
	for _, vote := range votes {
		event, err := uc.Events.GetEvent(ctx, vote.EventID)
		if err != nil {
			return nil, err
		}
		if event.State != entities.EventStateSuperposed {
			continue
		}
		if vote.Weight != nil && committed.Lt(vote.Weight) {
			committed.Set(vote.Weight)
		}
	}
	return committed, nil
}
