package commands

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	application "quorum/contexts/settlement-core/superposition-engine/application"
	"quorum/contexts/settlement-core/superposition-engine/domain/entities"
	domainerrors "quorum/contexts/settlement-core/superposition-engine/domain/errors"
	"quorum/contexts/settlement-core/superposition-engine/ports"

	"github.com/holiman/uint256"
)

type CastVoteCommand struct {
	EventID    uint64
	Voter      string
	ProposalID uint64
	Weight     *uint256.Int
}

type RevokeVoteCommand struct {
	EventID uint64
	Voter   string
}

// VoteUseCase maintains vote records and the cached tallies. A voter holds at
// most one live vote per event; casting again replaces the old vote entirely
// (last vote wins, no split voting), and both the per-proposal tally and the
// event total are adjusted in the same guarded section.
type VoteUseCase struct {
	Gate      *sync.Mutex
	Events    ports.EventRepository
	Proposals ports.ProposalRepository
	Votes     ports.VoteRepository
	Tallies   ports.TallyStore
	Stake     ports.StakeReader
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

// CastVote records or replaces the voter's vote in the event. Weight is
// capped by the voter's current stake balance; stake is not escrowed, so the
// same balance may back one proposal in each of several concurrent events.
func (uc VoteUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (entities.VoteRecord, error) {
	logger := application.ResolveLogger(uc.Logger)
	voter := strings.TrimSpace(cmd.Voter)
	if cmd.EventID == 0 || cmd.ProposalID == 0 || voter == "" || cmd.Weight == nil || cmd.Weight.IsZero() {
		logger.Warn("vote cast validation failed",
			"event", "engine_vote_cast_validation_failed",
			"module", "settlement-core/superposition-engine",
			"layer", "application",
			"event_id", cmd.EventID,
			"proposal_id", cmd.ProposalID,
			"voter", voter,
		)
		return entities.VoteRecord{}, domainerrors.ErrInvalidInput
	}

	uc.Gate.Lock()
	defer uc.Gate.Unlock()

	now := resolveNow(uc.Clock)
	event, err := uc.Events.GetEvent(ctx, cmd.EventID)
	if err != nil {
		return entities.VoteRecord{}, err
	}
	if event.State != entities.EventStateSuperposed {
		return entities.VoteRecord{}, domainerrors.ErrInvalidState
	}
	if !event.WindowOpen(now) {
		return entities.VoteRecord{}, domainerrors.ErrWindowClosed
	}
	if !event.HasMember(cmd.ProposalID) {
		return entities.VoteRecord{}, domainerrors.ErrInvalidProposalState
	}
	proposal, err := uc.Proposals.GetProposal(ctx, cmd.ProposalID)
	if err != nil {
		return entities.VoteRecord{}, err
	}
	if proposal.State != entities.ProposalStateSuperposed || proposal.EventID != event.EventID {
		return entities.VoteRecord{}, domainerrors.ErrInvalidProposalState
	}

	balance, found, err := uc.Stake.StakeBalance(ctx, voter)
	if err != nil {
		return entities.VoteRecord{}, err
	}
	if !found || balance.Lt(cmd.Weight) {
		logger.Warn("vote cast rejected for insufficient stake",
			"event", "engine_vote_cast_insufficient_stake",
			"module", "settlement-core/superposition-engine",
			"layer", "application",
			"event_id", cmd.EventID,
			"voter", voter,
			"weight", cmd.Weight.Dec(),
		)
		return entities.VoteRecord{}, domainerrors.ErrInsufficientStake
	}

	total, err := uc.Tallies.EventTotal(ctx, event.EventID)
	if err != nil {
		return entities.VoteRecord{}, err
	}

	record := entities.VoteRecord{
		EventID:    event.EventID,
		Voter:      voter,
		ProposalID: cmd.ProposalID,
		Weight:     cmd.Weight.Clone(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// Replace semantics: pull the previous weight out of the old proposal's
	// tally and the event total before crediting the new vote.
	previous, had, err := uc.Votes.GetVote(ctx, event.EventID, voter)
	if err != nil {
		return entities.VoteRecord{}, err
	}
	if had {
		oldTally, err := uc.Tallies.ProposalTally(ctx, event.EventID, previous.ProposalID)
		if err != nil {
			return entities.VoteRecord{}, err
		}
		if err := uc.Tallies.SetProposalTally(ctx, event.EventID, previous.ProposalID,
			new(uint256.Int).Sub(oldTally, previous.Weight)); err != nil {
			return entities.VoteRecord{}, err
		}
		total = new(uint256.Int).Sub(total, previous.Weight)
		record.CreatedAt = previous.CreatedAt
	}

	if err := uc.Votes.SaveVote(ctx, record); err != nil {
		return entities.VoteRecord{}, err
	}
	newTally, err := uc.Tallies.ProposalTally(ctx, event.EventID, record.ProposalID)
	if err != nil {
		return entities.VoteRecord{}, err
	}
	if err := uc.Tallies.SetProposalTally(ctx, event.EventID, record.ProposalID,
		new(uint256.Int).Add(newTally, record.Weight)); err != nil {
		return entities.VoteRecord{}, err
	}
	if err := uc.Tallies.SetEventTotal(ctx, event.EventID,
		new(uint256.Int).Add(total, record.Weight)); err != nil {
		return entities.VoteRecord{}, err
	}
	if err := appendEngineEvent(ctx, uc.Outbox, uc.IDGen, "vote.cast", event.EventID, now, map[string]any{
		"event_id":    event.EventID,
		"proposal_id": record.ProposalID,
		"voter":       voter,
		"weight":      record.Weight.Dec(),
		"replaced":    had,
	}); err != nil {
		return entities.VoteRecord{}, err
	}

	logger.Info("vote cast",
		"event", "engine_vote_cast",
		"module", "settlement-core/superposition-engine",
		"layer", "application",
		"event_id", event.EventID,
		"proposal_id", record.ProposalID,
		"voter", voter,
		"weight", record.Weight.Dec(),
		"replaced", had,
	)
	return record, nil
}

// RevokeVote zeroes the voter's record and deducts its weight from both the
// proposal tally and the event total.
func (uc VoteUseCase) RevokeVote(ctx context.Context, cmd RevokeVoteCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	voter := strings.TrimSpace(cmd.Voter)
	if cmd.EventID == 0 || voter == "" {
		return domainerrors.ErrInvalidInput
	}

	uc.Gate.Lock()
	defer uc.Gate.Unlock()

	now := resolveNow(uc.Clock)
	event, err := uc.Events.GetEvent(ctx, cmd.EventID)
	if err != nil {
		return err
	}
	if event.State != entities.EventStateSuperposed {
		return domainerrors.ErrInvalidState
	}
	if !event.WindowOpen(now) {
		return domainerrors.ErrWindowClosed
	}

	vote, found, err := uc.Votes.GetVote(ctx, event.EventID, voter)
	if err != nil {
		return err
	}
	if !found {
		return domainerrors.ErrVoteNotFound
	}

	tally, err := uc.Tallies.ProposalTally(ctx, event.EventID, vote.ProposalID)
	if err != nil {
		return err
	}
	total, err := uc.Tallies.EventTotal(ctx, event.EventID)
	if err != nil {
		return err
	}
	if err := uc.Tallies.SetProposalTally(ctx, event.EventID, vote.ProposalID,
		new(uint256.Int).Sub(tally, vote.Weight)); err != nil {
		return err
	}
	if err := uc.Tallies.SetEventTotal(ctx, event.EventID,
		new(uint256.Int).Sub(total, vote.Weight)); err != nil {
		return err
	}
	if err := uc.Votes.DeleteVote(ctx, event.EventID, voter); err != nil {
		return err
	}
	if err := appendEngineEvent(ctx, uc.Outbox, uc.IDGen, "vote.revoked", event.EventID, now, map[string]any{
		"event_id":    event.EventID,
		"proposal_id": vote.ProposalID,
		"voter":       voter,
		"weight":      vote.Weight.Dec(),
	}); err != nil {
		return err
	}

	logger.Info("vote revoked",
		"event", "engine_vote_revoked",
		"module", "settlement-core/superposition-engine",
		"layer", "application",
		"event_id", event.EventID,
		"proposal_id", vote.ProposalID,
		"voter", voter,
	)
	return nil
}
