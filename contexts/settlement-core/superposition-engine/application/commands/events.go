package commands

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	application "quorum/contexts/settlement-core/superposition-engine/application"
	"quorum/contexts/settlement-core/superposition-engine/domain/entities"
	domainerrors "quorum/contexts/settlement-core/superposition-engine/domain/errors"
	"quorum/contexts/settlement-core/superposition-engine/ports"
)

type CreateEventCommand struct {
	ProposalIDs []uint64
}

type AddProposalCommand struct {
	EventID    uint64
	ProposalID uint64
}

type ActivateEventCommand struct {
	EventID uint64
	// VotingPeriod overrides the module default when positive.
	VotingPeriod time.Duration
}

type CancelEventCommand struct {
	EventID uint64
}

// EventUseCase drives the superposition-event state machine. Every transition
// cascades member proposal states in the same guarded section, so an observer
// never sees an event and its members in mismatched lifecycle states.
type EventUseCase struct {
	Gate         *sync.Mutex
	Events       ports.EventRepository
	Proposals    ports.ProposalRepository
	Sequences    ports.SequenceAllocator
	Outbox       ports.OutboxWriter
	Clock        ports.Clock
	IDGen        ports.IDGenerator
	VotingPeriod time.Duration
	Logger       *slog.Logger
}

// CreateEvent opens a pending event around the given draft proposals. Each
// candidate must be an unattached draft; membership stays mutable until the
// event activates.
func (uc EventUseCase) CreateEvent(ctx context.Context, cmd CreateEventCommand) (entities.SuperpositionEvent, error) {
	logger := application.ResolveLogger(uc.Logger)

	uc.Gate.Lock()
	defer uc.Gate.Unlock()

	now := resolveNow(uc.Clock)
	proposals := make([]entities.Proposal, 0, len(cmd.ProposalIDs))
	seen := make(map[uint64]bool, len(cmd.ProposalIDs))
	for _, proposalID := range cmd.ProposalIDs {
		if proposalID == 0 || seen[proposalID] {
			return entities.SuperpositionEvent{}, domainerrors.ErrInvalidInput
		}
		seen[proposalID] = true
		proposal, err := uc.Proposals.GetProposal(ctx, proposalID)
		if err != nil {
			return entities.SuperpositionEvent{}, err
		}
		if !proposal.Attachable() {
			logger.Warn("event create rejected candidate",
				"event", "engine_event_create_invalid_candidate",
				"module", "settlement-core/superposition-engine",
				"layer", "application",
				"proposal_id", proposalID,
				"proposal_state", string(proposal.State),
			)
			return entities.SuperpositionEvent{}, domainerrors.ErrInvalidProposalState
		}
		proposals = append(proposals, proposal)
	}

	eventID, err := uc.Sequences.NextID(ctx, ports.SequenceEvents)
	if err != nil {
		return entities.SuperpositionEvent{}, err
	}

	memberIDs := make([]uint64, 0, len(proposals))
	for _, proposal := range proposals {
		memberIDs = append(memberIDs, proposal.ProposalID)
	}
	sort.Slice(memberIDs, func(i, j int) bool { return memberIDs[i] < memberIDs[j] })

	event := entities.SuperpositionEvent{
		EventID:     eventID,
		State:       entities.EventStatePending,
		ProposalIDs: memberIDs,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.Events.SaveEvent(ctx, event); err != nil {
		return entities.SuperpositionEvent{}, err
	}
	for _, proposal := range proposals {
		proposal.State = entities.ProposalStatePending
		proposal.EventID = eventID
		proposal.UpdatedAt = now
		if err := uc.Proposals.SaveProposal(ctx, proposal); err != nil {
			return entities.SuperpositionEvent{}, err
		}
	}
	if err := appendEngineEvent(ctx, uc.Outbox, uc.IDGen, "event.created", eventID, now, map[string]any{
		"event_id":     eventID,
		"proposal_ids": memberIDs,
	}); err != nil {
		return entities.SuperpositionEvent{}, err
	}

	logger.Info("superposition event created",
		"event", "engine_event_created",
		"module", "settlement-core/superposition-engine",
		"layer", "application",
		"event_id", eventID,
		"member_count", len(memberIDs),
	)
	return event, nil
}

// AddProposal attaches one more draft to a pending event.
func (uc EventUseCase) AddProposal(ctx context.Context, cmd AddProposalCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	if cmd.EventID == 0 || cmd.ProposalID == 0 {
		return domainerrors.ErrInvalidInput
	}

	uc.Gate.Lock()
	defer uc.Gate.Unlock()

	event, err := uc.Events.GetEvent(ctx, cmd.EventID)
	if err != nil {
		return err
	}
	if event.State != entities.EventStatePending {
		return domainerrors.ErrInvalidState
	}
	proposal, err := uc.Proposals.GetProposal(ctx, cmd.ProposalID)
	if err != nil {
		return err
	}
	if !proposal.Attachable() {
		return domainerrors.ErrInvalidProposalState
	}

	now := resolveNow(uc.Clock)
	event.ProposalIDs = insertSorted(event.ProposalIDs, cmd.ProposalID)
	event.UpdatedAt = now
	if err := uc.Events.SaveEvent(ctx, event); err != nil {
		return err
	}
	proposal.State = entities.ProposalStatePending
	proposal.EventID = event.EventID
	proposal.UpdatedAt = now
	if err := uc.Proposals.SaveProposal(ctx, proposal); err != nil {
		return err
	}

	logger.Info("proposal attached to event",
		"event", "engine_event_proposal_attached",
		"module", "settlement-core/superposition-engine",
		"layer", "application",
		"event_id", event.EventID,
		"proposal_id", proposal.ProposalID,
		"member_count", len(event.ProposalIDs),
	)
	return nil
}

// ActivateEvent opens the voting window and freezes membership. At least two
// proposals must compete; a one-horse race has nothing to measure.
func (uc EventUseCase) ActivateEvent(ctx context.Context, cmd ActivateEventCommand) (entities.SuperpositionEvent, error) {
	logger := application.ResolveLogger(uc.Logger)
	if cmd.EventID == 0 {
		return entities.SuperpositionEvent{}, domainerrors.ErrInvalidInput
	}

	uc.Gate.Lock()
	defer uc.Gate.Unlock()

	event, err := uc.Events.GetEvent(ctx, cmd.EventID)
	if err != nil {
		return entities.SuperpositionEvent{}, err
	}
	if event.State != entities.EventStatePending {
		return entities.SuperpositionEvent{}, domainerrors.ErrInvalidState
	}
	if len(event.ProposalIDs) < 2 {
		logger.Warn("event activation rejected",
			"event", "engine_event_activate_insufficient",
			"module", "settlement-core/superposition-engine",
			"layer", "application",
			"event_id", event.EventID,
			"member_count", len(event.ProposalIDs),
		)
		return entities.SuperpositionEvent{}, domainerrors.ErrInsufficientProposals
	}

	period := uc.VotingPeriod
	if cmd.VotingPeriod > 0 {
		period = cmd.VotingPeriod
	}
	if period <= 0 {
		period = 24 * time.Hour
	}

	now := resolveNow(uc.Clock)
	event.State = entities.EventStateSuperposed
	event.StartTime = now
	event.EndTime = now.Add(period)
	event.UpdatedAt = now
	if err := uc.Events.SaveEvent(ctx, event); err != nil {
		return entities.SuperpositionEvent{}, err
	}
	if err := uc.cascadeMembers(ctx, event, entities.ProposalStateSuperposed, now); err != nil {
		return entities.SuperpositionEvent{}, err
	}
	if err := appendEngineEvent(ctx, uc.Outbox, uc.IDGen, "event.activated", event.EventID, now, map[string]any{
		"event_id":   event.EventID,
		"start_time": event.StartTime,
		"end_time":   event.EndTime,
	}); err != nil {
		return entities.SuperpositionEvent{}, err
	}

	logger.Info("superposition event activated",
		"event", "engine_event_activated",
		"module", "settlement-core/superposition-engine",
		"layer", "application",
		"event_id", event.EventID,
		"end_time", event.EndTime,
		"member_count", len(event.ProposalIDs),
	)
	return event, nil
}

// CancelEvent aborts a pending event and releases its members back to draft.
func (uc EventUseCase) CancelEvent(ctx context.Context, cmd CancelEventCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	if cmd.EventID == 0 {
		return domainerrors.ErrInvalidInput
	}

	uc.Gate.Lock()
	defer uc.Gate.Unlock()

	event, err := uc.Events.GetEvent(ctx, cmd.EventID)
	if err != nil {
		return err
	}
	if event.State != entities.EventStatePending {
		return domainerrors.ErrInvalidState
	}

	now := resolveNow(uc.Clock)
	event.State = entities.EventStateCancelled
	event.UpdatedAt = now
	if err := uc.Events.SaveEvent(ctx, event); err != nil {
		return err
	}
	for _, proposalID := range event.ProposalIDs {
		proposal, err := uc.Proposals.GetProposal(ctx, proposalID)
		if err != nil {
			return err
		}
		proposal.State = entities.ProposalStateDraft
		proposal.EventID = 0
		proposal.UpdatedAt = now
		if err := uc.Proposals.SaveProposal(ctx, proposal); err != nil {
			return err
		}
	}
	if err := appendEngineEvent(ctx, uc.Outbox, uc.IDGen, "event.cancelled", event.EventID, now, map[string]any{
		"event_id": event.EventID,
	}); err != nil {
		return err
	}

	logger.Info("superposition event cancelled",
		"event", "engine_event_cancelled",
		"module", "settlement-core/superposition-engine",
		"layer", "application",
		"event_id", event.EventID,
	)
	return nil
}

func (uc EventUseCase) cascadeMembers(
	ctx context.Context,
	event entities.SuperpositionEvent,
	toState entities.ProposalState,
	updatedAt time.Time,
) error {
	for _, proposalID := range event.ProposalIDs {
		proposal, err := uc.Proposals.GetProposal(ctx, proposalID)
		if err != nil {
			return err
		}
		proposal.State = toState
		proposal.UpdatedAt = updatedAt
		if err := uc.Proposals.SaveProposal(ctx, proposal); err != nil {
			return err
		}
	}
	return nil
}

func insertSorted(ids []uint64, id uint64) []uint64 {
	pos := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	ids = append(ids, 0)
	copy(ids[pos+1:], ids[pos:])
	ids[pos] = id
	return ids
}
