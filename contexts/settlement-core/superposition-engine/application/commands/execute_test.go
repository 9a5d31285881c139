package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"

	"quorum/contexts/settlement-core/superposition-engine/adapters/effects"
	"quorum/contexts/settlement-core/superposition-engine/domain/entities"
	domainerrors "quorum/contexts/settlement-core/superposition-engine/domain/errors"
)

// measureWinner walks one event from active voting to a measured outcome with
// the full weight on p1, so the winner is known in advance.
func (f *engineFixture) measureWinner(t *testing.T) (entities.SuperpositionEvent, uint64, uint64) {
	t.Helper()
	event, p1, p2 := f.createActiveEvent(t)
	f.setStake("dora", 100)
	if _, err := f.votes.CastVote(context.Background(), CastVoteCommand{
		EventID:    event.EventID,
		Voter:      "dora",
		ProposalID: p1.ProposalID,
		Weight:     uint256.NewInt(100),
	}); err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	f.clock.Advance(2 * time.Hour)
	result, err := f.measurements.TriggerMeasurement(context.Background(), TriggerMeasurementCommand{
		EventID: event.EventID,
		Entropy: []byte{7, 7, 7},
	})
	if err != nil {
		t.Fatalf("measurement failed: %v", err)
	}
	if result.WinnerID != p1.ProposalID {
		t.Fatalf("expected %d to win, got %d", p1.ProposalID, result.WinnerID)
	}
	return result.Event, p1.ProposalID, p2.ProposalID
}

func TestExecuteWinnerIsOneShot(t *testing.T) {
	f := newEngineFixture()
	event, winnerID, _ := f.measureWinner(t)

	applied := 0
	registry := effects.NewRegistry(nil)
	registry.Register("noop", func(context.Context, []byte) error {
		applied++
		return nil
	})
	f.executions.Effects = registry

	if err := f.executions.ExecuteWinner(context.Background(), ExecuteWinnerCommand{ProposalID: winnerID}); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if applied != 1 {
		t.Fatalf("expected one effect application, got %d", applied)
	}

	err := f.executions.ExecuteWinner(context.Background(), ExecuteWinnerCommand{ProposalID: winnerID})
	if !errors.Is(err, domainerrors.ErrInvalidState) {
		t.Fatalf("expected invalid state on second execute, got %v", err)
	}
	if applied != 1 {
		t.Fatalf("effect ran again on replay, count %d", applied)
	}

	proposal, _ := f.store.GetProposal(context.Background(), winnerID)
	stored, _ := f.store.GetEvent(context.Background(), event.EventID)
	if proposal.State != entities.ProposalStateExecuted {
		t.Fatalf("expected executed proposal, got %s", proposal.State)
	}
	if stored.State != entities.EventStateExecuted {
		t.Fatalf("expected executed event, got %s", stored.State)
	}
}

func TestExecuteWinnerRejectsLoser(t *testing.T) {
	f := newEngineFixture()
	_, _, loserID := f.measureWinner(t)

	err := f.executions.ExecuteWinner(context.Background(), ExecuteWinnerCommand{ProposalID: loserID})
	if !errors.Is(err, domainerrors.ErrInvalidState) {
		t.Fatalf("expected invalid state for loser, got %v", err)
	}
}

func TestExecuteWinnerEffectFailureLeavesStateMeasured(t *testing.T) {
	f := newEngineFixture()
	event, winnerID, _ := f.measureWinner(t)

	registry := effects.NewRegistry(nil)
	registry.Register("noop", func(context.Context, []byte) error {
		return errors.New("downstream unavailable")
	})
	f.executions.Effects = registry

	err := f.executions.ExecuteWinner(context.Background(), ExecuteWinnerCommand{ProposalID: winnerID})
	if !errors.Is(err, domainerrors.ErrEffectFailed) {
		t.Fatalf("expected effect failed, got %v", err)
	}

	proposal, _ := f.store.GetProposal(context.Background(), winnerID)
	stored, _ := f.store.GetEvent(context.Background(), event.EventID)
	if proposal.State != entities.ProposalStateMeasured {
		t.Fatalf("expected proposal still measured after failure, got %s", proposal.State)
	}
	if stored.State != entities.EventStateMeasured {
		t.Fatalf("expected event still measured after failure, got %s", stored.State)
	}

	// Retry succeeds once the effect recovers.
	registry.Register("noop", func(context.Context, []byte) error { return nil })
	if err := f.executions.ExecuteWinner(context.Background(), ExecuteWinnerCommand{ProposalID: winnerID}); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
}

func TestExecuteWinnerRejectsUnmeasuredProposal(t *testing.T) {
	f := newEngineFixture()
	draft := f.createDraft(t, "alice")

	err := f.executions.ExecuteWinner(context.Background(), ExecuteWinnerCommand{ProposalID: draft.ProposalID})
	if !errors.Is(err, domainerrors.ErrInvalidState) {
		t.Fatalf("expected invalid state for draft, got %v", err)
	}
}
