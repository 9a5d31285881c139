package commands

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"log/slog"
	"sync"

	application "quorum/contexts/settlement-core/superposition-engine/application"
	"quorum/contexts/settlement-core/superposition-engine/domain/entities"
	domainerrors "quorum/contexts/settlement-core/superposition-engine/domain/errors"
	"quorum/contexts/settlement-core/superposition-engine/ports"

	"github.com/holiman/uint256"
)

// measurementDomainTag separates this hash usage from any other consumer of
// the same entropy value; mixing in the event id prevents one entropy value
// from producing correlated outcomes across events.
const measurementDomainTag = "quorum/superposition-measurement/v1"

type TriggerMeasurementCommand struct {
	EventID uint64
	Entropy []byte
}

type MeasurementResult struct {
	Event           entities.SuperpositionEvent
	WinnerID        uint64
	Total           *uint256.Int
	UniformFallback bool
}

// MeasurementUseCase collapses a superposition event to exactly one winner.
// The event passes through the measurement state before the draw runs, so a
// second trigger (or a late vote) observes a non-superposed state and fails
// its precondition instead of interleaving.
type MeasurementUseCase struct {
	Gate      *sync.Mutex
	Events    ports.EventRepository
	Proposals ports.ProposalRepository
	Tallies   ports.TallyStore
	Outbox    ports.OutboxWriter
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Logger    *slog.Logger
}

// TriggerMeasurement resolves the event once its window has elapsed. The
// entropy value is supplied by the caller and must already be verified
// unpredictable; the engine only checks that it is present and non-zero.
func (uc MeasurementUseCase) TriggerMeasurement(ctx context.Context, cmd TriggerMeasurementCommand) (MeasurementResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	if cmd.EventID == 0 {
		return MeasurementResult{}, domainerrors.ErrInvalidInput
	}
	if !entropyUsable(cmd.Entropy) {
		logger.Warn("measurement rejected without entropy",
			"event", "engine_measurement_entropy_missing",
			"module", "settlement-core/superposition-engine",
			"layer", "application",
			"event_id", cmd.EventID,
		)
		return MeasurementResult{}, domainerrors.ErrEntropyRequired
	}

	uc.Gate.Lock()
	defer uc.Gate.Unlock()

	now := resolveNow(uc.Clock)
	event, err := uc.Events.GetEvent(ctx, cmd.EventID)
	if err != nil {
		return MeasurementResult{}, err
	}
	if event.State != entities.EventStateSuperposed {
		return MeasurementResult{}, domainerrors.ErrInvalidState
	}
	if !event.WindowElapsed(now) {
		return MeasurementResult{}, domainerrors.ErrWindowOpen
	}

	// Leave the superposed state before running the draw. If anything below
	// fails the event stays in measurement for operator intervention rather
	// than becoming measurable again.
	event.State = entities.EventStateMeasurement
	event.UpdatedAt = now
	if err := uc.Events.SaveEvent(ctx, event); err != nil {
		return MeasurementResult{}, err
	}

	total, err := uc.Tallies.EventTotal(ctx, event.EventID)
	if err != nil {
		return MeasurementResult{}, err
	}
	tallies := make(map[uint64]*uint256.Int, len(event.ProposalIDs))
	for _, proposalID := range event.ProposalIDs {
		tally, err := uc.Tallies.ProposalTally(ctx, event.EventID, proposalID)
		if err != nil {
			return MeasurementResult{}, err
		}
		tallies[proposalID] = tally
	}

	winnerID, uniform, ok := selectWinner(event.ProposalIDs, tallies, total, cmd.Entropy, event.EventID)
	if !ok {
		// Mathematically unreachable for total > 0; treated as a fatal
		// invariant violation rather than defaulting to any member.
		logger.Error("measurement failed to locate winner",
			"event", "engine_measurement_invariant_violation",
			"module", "settlement-core/superposition-engine",
			"layer", "application",
			"event_id", event.EventID,
			"total_tally", total.Dec(),
		)
		return MeasurementResult{}, domainerrors.ErrMeasurementInvariant
	}
	if uniform {
		logger.Warn("measurement fell back to uniform selection with zero tally",
			"event", "engine_measurement_uniform_fallback",
			"module", "settlement-core/superposition-engine",
			"layer", "application",
			"event_id", event.EventID,
			"member_count", len(event.ProposalIDs),
		)
	}

	event.State = entities.EventStateMeasured
	event.WinnerID = winnerID
	event.Entropy = append([]byte(nil), cmd.Entropy...)
	event.UpdatedAt = now
	if err := uc.Events.SaveEvent(ctx, event); err != nil {
		return MeasurementResult{}, err
	}
	for _, proposalID := range event.ProposalIDs {
		proposal, err := uc.Proposals.GetProposal(ctx, proposalID)
		if err != nil {
			return MeasurementResult{}, err
		}
		if proposalID == winnerID {
			proposal.State = entities.ProposalStateMeasured
		} else {
			proposal.State = entities.ProposalStateFailed
		}
		proposal.UpdatedAt = now
		if err := uc.Proposals.SaveProposal(ctx, proposal); err != nil {
			return MeasurementResult{}, err
		}
	}
	if err := appendEngineEvent(ctx, uc.Outbox, uc.IDGen, "event.measured", event.EventID, now, map[string]any{
		"event_id":         event.EventID,
		"winner_id":        winnerID,
		"total_tally":      total.Dec(),
		"entropy":          encodeEntropy(cmd.Entropy),
		"uniform_fallback": uniform,
	}); err != nil {
		return MeasurementResult{}, err
	}

	logger.Info("superposition event measured",
		"event", "engine_event_measured",
		"module", "settlement-core/superposition-engine",
		"layer", "application",
		"event_id", event.EventID,
		"winner_id", winnerID,
		"total_tally", total.Dec(),
		"uniform_fallback", uniform,
	)
	return MeasurementResult{
		Event:           event,
		WinnerID:        winnerID,
		Total:           total,
		UniformFallback: uniform,
	}, nil
}

// measurementDraw hashes the entropy with a domain tag and the event id into
// a 256-bit draw value.
func measurementDraw(entropy []byte, eventID uint64) *uint256.Int {
	h := sha256.New()
	h.Write(entropy)
	h.Write([]byte(measurementDomainTag))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], eventID)
	h.Write(buf[:])
	return new(uint256.Int).SetBytes(h.Sum(nil))
}

// selectWinner performs CDF-inversion over the members in ascending-id order:
// r = draw mod total, and the winner is the first member whose cumulative
// tally exceeds r, giving each member probability tally/total. With a zero
// total it degrades to a uniform pick over the members (flagged to the
// caller). ok is false only if the cumulative walk never covers r, which
// cannot happen while the tallies sum to the total.
func selectWinner(
	memberIDs []uint64,
	tallies map[uint64]*uint256.Int,
	total *uint256.Int,
	entropy []byte,
	eventID uint64,
) (winnerID uint64, uniformFallback bool, ok bool) {
	if len(memberIDs) == 0 {
		return 0, false, false
	}
	draw := measurementDraw(entropy, eventID)
	if total == nil || total.IsZero() {
		idx := new(uint256.Int).Mod(draw, uint256.NewInt(uint64(len(memberIDs)))).Uint64()
		return memberIDs[idx], true, true
	}

	r := new(uint256.Int).Mod(draw, total)
	cumulative := new(uint256.Int)
	for _, id := range memberIDs {
		if tally := tallies[id]; tally != nil {
			cumulative.Add(cumulative, tally)
		}
		if r.Lt(cumulative) {
			return id, false, true
		}
	}
	return 0, false, false
}

func entropyUsable(entropy []byte) bool {
	if len(entropy) == 0 {
		return false
	}
	for _, b := range entropy {
		if b != 0 {
			return true
		}
	}
	return false
}
