package commands

import (
	"context"
	"encoding/hex"
	"log/slog"
	"strings"
	"sync"
	"time"

	application "quorum/contexts/settlement-core/superposition-engine/application"
	"quorum/contexts/settlement-core/superposition-engine/domain/entities"
	domainerrors "quorum/contexts/settlement-core/superposition-engine/domain/errors"
	"quorum/contexts/settlement-core/superposition-engine/ports"
)

// CreateProposalCommand is the write-model input for proposal creation.
type CreateProposalCommand struct {
	Creator       string
	Description   string
	EffectKind    string
	EffectPayload []byte
}

type CancelDraftCommand struct {
	ProposalID uint64
	Caller     string
}

// ProposalUseCase owns the draft side of the proposal lifecycle. Attachment
// to events and the superposed/measured transitions belong to EventUseCase
// and MeasurementUseCase, which cascade proposal state from event state.
type ProposalUseCase struct {
	Gate      *sync.Mutex
	Proposals ports.ProposalRepository
	Sequences ports.SequenceAllocator
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

// CreateProposal allocates a new proposal id and stores the draft. The id
// comes from the injected sequence allocator; ids are monotonic per process
// cluster and never reused.
func (uc ProposalUseCase) CreateProposal(ctx context.Context, cmd CreateProposalCommand) (entities.Proposal, error) {
	logger := application.ResolveLogger(uc.Logger)
	creator := strings.TrimSpace(cmd.Creator)
	if creator == "" {
		logger.Warn("proposal create validation failed",
			"event", "engine_proposal_create_validation_failed",
			"module", "settlement-core/superposition-engine",
			"layer", "application",
		)
		return entities.Proposal{}, domainerrors.ErrInvalidInput
	}

	uc.Gate.Lock()
	defer uc.Gate.Unlock()

	now := resolveNow(uc.Clock)
	proposalID, err := uc.Sequences.NextID(ctx, ports.SequenceProposals)
	if err != nil {
		return entities.Proposal{}, err
	}
	proposal := entities.Proposal{
		ProposalID:    proposalID,
		Creator:       creator,
		Description:   strings.TrimSpace(cmd.Description),
		EffectKind:    strings.TrimSpace(cmd.EffectKind),
		EffectPayload: append([]byte(nil), cmd.EffectPayload...),
		State:         entities.ProposalStateDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := uc.Proposals.SaveProposal(ctx, proposal); err != nil {
		return entities.Proposal{}, err
	}
	if err := appendEngineEvent(ctx, uc.Outbox, uc.IDGen, "proposal.created", 0, now, map[string]any{
		"proposal_id": proposal.ProposalID,
		"creator":     proposal.Creator,
		"effect_kind": proposal.EffectKind,
	}); err != nil {
		return entities.Proposal{}, err
	}

	logger.Info("proposal created",
		"event", "engine_proposal_created",
		"module", "settlement-core/superposition-engine",
		"layer", "application",
		"proposal_id", proposal.ProposalID,
		"creator", proposal.Creator,
		"effect_kind", proposal.EffectKind,
	)
	return proposal, nil
}

// CancelDraft marks an unattached draft as failed. Only the creator may
// cancel, and only while the proposal has not joined an event.
func (uc ProposalUseCase) CancelDraft(ctx context.Context, cmd CancelDraftCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	caller := strings.TrimSpace(cmd.Caller)
	if cmd.ProposalID == 0 || caller == "" {
		return domainerrors.ErrInvalidInput
	}

	uc.Gate.Lock()
	defer uc.Gate.Unlock()

	proposal, err := uc.Proposals.GetProposal(ctx, cmd.ProposalID)
	if err != nil {
		return err
	}
	if !strings.EqualFold(proposal.Creator, caller) {
		logger.Warn("proposal cancel rejected",
			"event", "engine_proposal_cancel_unauthorized",
			"module", "settlement-core/superposition-engine",
			"layer", "application",
			"proposal_id", cmd.ProposalID,
			"caller", caller,
		)
		return domainerrors.ErrNotAuthorized
	}
	if proposal.State != entities.ProposalStateDraft {
		return domainerrors.ErrInvalidState
	}

	now := resolveNow(uc.Clock)
	proposal.State = entities.ProposalStateFailed
	proposal.UpdatedAt = now
	if err := uc.Proposals.SaveProposal(ctx, proposal); err != nil {
		return err
	}
	if err := appendEngineEvent(ctx, uc.Outbox, uc.IDGen, "proposal.cancelled", 0, now, map[string]any{
		"proposal_id": proposal.ProposalID,
		"creator":     proposal.Creator,
	}); err != nil {
		return err
	}
	logger.Info("proposal draft cancelled",
		"event", "engine_proposal_cancelled",
		"module", "settlement-core/superposition-engine",
		"layer", "application",
		"proposal_id", proposal.ProposalID,
	)
	return nil
}

func resolveNow(clock ports.Clock) time.Time {
	if clock != nil {
		return clock.Now().UTC()
	}
	return time.Now().UTC()
}

// appendEngineEvent writes a command event to the outbox. Outbox is optional
// for pure read/test wiring, so nil is treated as no-op.
func appendEngineEvent(
	ctx context.Context,
	outbox ports.OutboxWriter,
	idgen ports.IDGenerator,
	eventType string,
	eventID uint64,
	occurredAt time.Time,
	data map[string]any,
) error {
	if outbox == nil {
		return nil
	}
	envelopeID, err := idgen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := newEngineEnvelope(envelopeID, eventType, eventID, occurredAt, data)
	if err != nil {
		return err
	}
	return outbox.AppendOutbox(ctx, envelope)
}

func encodeEntropy(entropy []byte) string {
	return hex.EncodeToString(entropy)
}
