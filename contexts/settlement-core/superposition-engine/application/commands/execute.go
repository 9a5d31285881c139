package commands

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	application "quorum/contexts/settlement-core/superposition-engine/application"
	"quorum/contexts/settlement-core/superposition-engine/domain/entities"
	domainerrors "quorum/contexts/settlement-core/superposition-engine/domain/errors"
	"quorum/contexts/settlement-core/superposition-engine/ports"
)

type ExecuteWinnerCommand struct {
	ProposalID uint64
}

// ExecutionUseCase is the one-shot gate between a measured winner and its
// side effect. Idempotency comes from the state machine itself: the first
// successful call moves proposal and event to executed, so a second call
// fails the state precondition.
type ExecutionUseCase struct {
	Gate      *sync.Mutex
	Events    ports.EventRepository
	Proposals ports.ProposalRepository
	Effects   ports.EffectExecutor
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

// ExecuteWinner applies the winning proposal's effect payload. The effect
// handler runs before any state is mutated; if it fails, proposal and event
// stay measured and the caller may retry.
func (uc ExecutionUseCase) ExecuteWinner(ctx context.Context, cmd ExecuteWinnerCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	if cmd.ProposalID == 0 {
		return domainerrors.ErrInvalidInput
	}

	uc.Gate.Lock()
	defer uc.Gate.Unlock()

	proposal, err := uc.Proposals.GetProposal(ctx, cmd.ProposalID)
	if err != nil {
		return err
	}
	if proposal.State != entities.ProposalStateMeasured {
		return domainerrors.ErrInvalidState
	}
	event, err := uc.Events.GetEvent(ctx, proposal.EventID)
	if err != nil {
		return err
	}
	// The event must agree that this proposal won.
	if event.State != entities.EventStateMeasured || event.WinnerID != proposal.ProposalID {
		return domainerrors.ErrInvalidState
	}

	if err := uc.Effects.Apply(ctx, proposal.EffectKind, proposal.EffectPayload); err != nil {
		logger.Error("winning proposal effect failed",
			"event", "engine_execution_effect_failed",
			"module", "settlement-core/superposition-engine",
			"layer", "application",
			"proposal_id", proposal.ProposalID,
			"event_id", event.EventID,
			"effect_kind", proposal.EffectKind,
			"error", err.Error(),
		)
		return fmt.Errorf("%w: %w", domainerrors.ErrEffectFailed, err)
	}

	now := resolveNow(uc.Clock)
	proposal.State = entities.ProposalStateExecuted
	proposal.UpdatedAt = now
	if err := uc.Proposals.SaveProposal(ctx, proposal); err != nil {
		return err
	}
	event.State = entities.EventStateExecuted
	event.UpdatedAt = now
	if err := uc.Events.SaveEvent(ctx, event); err != nil {
		return err
	}
	if err := appendEngineEvent(ctx, uc.Outbox, uc.IDGen, "proposal.executed", event.EventID, now, map[string]any{
		"event_id":    event.EventID,
		"proposal_id": proposal.ProposalID,
		"effect_kind": proposal.EffectKind,
	}); err != nil {
		return err
	}

	logger.Info("winning proposal executed",
		"event", "engine_proposal_executed",
		"module", "settlement-core/superposition-engine",
		"layer", "application",
		"proposal_id", proposal.ProposalID,
		"event_id", event.EventID,
		"effect_kind", proposal.EffectKind,
	)
	return nil
}
