package commands

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"

	"quorum/contexts/settlement-core/superposition-engine/domain/entities"
	domainerrors "quorum/contexts/settlement-core/superposition-engine/domain/errors"
)

// entropyForRemainder searches for an entropy value whose draw lands on the
// given remainder modulo total, so tests can pin the measurement outcome.
func entropyForRemainder(t *testing.T, eventID uint64, total uint64, want uint64) []byte {
	t.Helper()
	modulus := uint256.NewInt(total)
	for i := uint64(1); i < 1<<20; i++ {
		var entropy [8]byte
		binary.BigEndian.PutUint64(entropy[:], i)
		r := new(uint256.Int).Mod(measurementDraw(entropy[:], eventID), modulus)
		if r.Uint64() == want {
			return entropy[:]
		}
	}
	t.Fatalf("no entropy found with draw remainder %d mod %d", want, total)
	return nil
}

func TestTriggerMeasurementRequiresEntropy(t *testing.T) {
	f := newEngineFixture()
	event, _, _ := f.createActiveEvent(t)
	f.clock.Advance(2 * time.Hour)

	for _, entropy := range [][]byte{nil, {}, {0, 0, 0, 0}} {
		_, err := f.measurements.TriggerMeasurement(context.Background(), TriggerMeasurementCommand{
			EventID: event.EventID,
			Entropy: entropy,
		})
		if !errors.Is(err, domainerrors.ErrEntropyRequired) {
			t.Fatalf("expected entropy required for %v, got %v", entropy, err)
		}
	}
}

func TestTriggerMeasurementRejectsOpenWindow(t *testing.T) {
	f := newEngineFixture()
	event, _, _ := f.createActiveEvent(t)

	_, err := f.measurements.TriggerMeasurement(context.Background(), TriggerMeasurementCommand{
		EventID: event.EventID,
		Entropy: []byte{1, 2, 3},
	})
	if !errors.Is(err, domainerrors.ErrWindowOpen) {
		t.Fatalf("expected window open, got %v", err)
	}
}

func TestTriggerMeasurementFullWeightWinnerIsCertain(t *testing.T) {
	f := newEngineFixture()
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
		Entropy: []byte{0xde, 0xad, 0xbe, 0xef},
	})
	if err != nil {
		t.Fatalf("measurement failed: %v", err)
	}
	if result.WinnerID != p1.ProposalID {
		t.Fatalf("expected sole backed proposal %d to win, got %d", p1.ProposalID, result.WinnerID)
	}
	if result.UniformFallback {
		t.Fatalf("unexpected uniform fallback with non-zero total")
	}
	if result.Event.State != entities.EventStateMeasured {
		t.Fatalf("expected measured event, got %s", result.Event.State)
	}

	winner, _ := f.store.GetProposal(context.Background(), p1.ProposalID)
	loser, _ := f.store.GetProposal(context.Background(), p2.ProposalID)
	if winner.State != entities.ProposalStateMeasured {
		t.Fatalf("expected measured winner, got %s", winner.State)
	}
	if loser.State != entities.ProposalStateFailed {
		t.Fatalf("expected failed loser, got %s", loser.State)
	}
}

func TestTriggerMeasurementPinnedDrawSelectsByCumulativeTally(t *testing.T) {
	f := newEngineFixture()
	event, p1, p2 := f.createActiveEvent(t)
	f.setStake("dora", 100)
	f.setStake("erin", 100)
	if _, err := f.votes.CastVote(context.Background(), CastVoteCommand{
		EventID:    event.EventID,
		Voter:      "dora",
		ProposalID: p1.ProposalID,
		Weight:     uint256.NewInt(60),
	}); err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	if _, err := f.votes.CastVote(context.Background(), CastVoteCommand{
		EventID:    event.EventID,
		Voter:      "erin",
		ProposalID: p2.ProposalID,
		Weight:     uint256.NewInt(20),
	}); err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	f.clock.Advance(2 * time.Hour)

	// Tallies are 60/20 in ascending member order, so remainders below 60
	// land on the first member and 60..79 on the second.
	entropy := entropyForRemainder(t, event.EventID, 80, 40)
	result, err := f.measurements.TriggerMeasurement(context.Background(), TriggerMeasurementCommand{
		EventID: event.EventID,
		Entropy: entropy,
	})
	if err != nil {
		t.Fatalf("measurement failed: %v", err)
	}
	if result.WinnerID != p1.ProposalID {
		t.Fatalf("expected first member to win at remainder 40, got %d", result.WinnerID)
	}
	if result.Total.Uint64() != 80 {
		t.Fatalf("expected total 80, got %s", result.Total.Dec())
	}
}

func TestSelectWinnerBoundaryRemainders(t *testing.T) {
	memberIDs := []uint64{1, 2}
	tallies := map[uint64]*uint256.Int{
		1: uint256.NewInt(60),
		2: uint256.NewInt(20),
	}
	total := uint256.NewInt(80)

	cases := []struct {
		remainder uint64
		want      uint64
	}{
		{0, 1},
		{40, 1},
		{59, 1},
		{60, 2},
		{79, 2},
	}
	for _, c := range cases {
		entropy := entropyForRemainder(t, 7, 80, c.remainder)
		winnerID, uniform, ok := selectWinner(memberIDs, tallies, total, entropy, 7)
		if !ok || uniform {
			t.Fatalf("remainder %d: ok=%v uniform=%v", c.remainder, ok, uniform)
		}
		if winnerID != c.want {
			t.Fatalf("remainder %d: expected winner %d, got %d", c.remainder, c.want, winnerID)
		}
	}
}

func TestTriggerMeasurementZeroTallyFallsBackUniform(t *testing.T) {
	f := newEngineFixture()
	event, _, _ := f.createActiveEvent(t)
	f.clock.Advance(2 * time.Hour)

	result, err := f.measurements.TriggerMeasurement(context.Background(), TriggerMeasurementCommand{
		EventID: event.EventID,
		Entropy: []byte{0x42},
	})
	if err != nil {
		t.Fatalf("measurement failed: %v", err)
	}
	if !result.UniformFallback {
		t.Fatalf("expected uniform fallback with zero total")
	}
	if !result.Event.HasMember(result.WinnerID) {
		t.Fatalf("uniform winner %d is not a member", result.WinnerID)
	}
}

func TestTriggerMeasurementIsOneShot(t *testing.T) {
	f := newEngineFixture()
	event, p1, _ := f.createActiveEvent(t)
	f.setStake("dora", 100)
	if _, err := f.votes.CastVote(context.Background(), CastVoteCommand{
		EventID:    event.EventID,
		Voter:      "dora",
		ProposalID: p1.ProposalID,
		Weight:     uint256.NewInt(10),
	}); err != nil {
		t.Fatalf("cast failed: %v", err)
	}
	f.clock.Advance(2 * time.Hour)

	first, err := f.measurements.TriggerMeasurement(context.Background(), TriggerMeasurementCommand{
		EventID: event.EventID,
		Entropy: []byte{9, 9, 9},
	})
	if err != nil {
		t.Fatalf("first measurement failed: %v", err)
	}

	_, err = f.measurements.TriggerMeasurement(context.Background(), TriggerMeasurementCommand{
		EventID: event.EventID,
		Entropy: []byte{9, 9, 9},
	})
	if !errors.Is(err, domainerrors.ErrInvalidState) {
		t.Fatalf("expected invalid state on second trigger, got %v", err)
	}

	// The stored event keeps the first outcome and the consumed entropy.
	stored, _ := f.store.GetEvent(context.Background(), event.EventID)
	if stored.WinnerID != first.WinnerID {
		t.Fatalf("winner changed from %d to %d", first.WinnerID, stored.WinnerID)
	}
	if len(stored.Entropy) == 0 {
		t.Fatalf("expected consumed entropy to be recorded")
	}

	_, err = f.votes.CastVote(context.Background(), CastVoteCommand{
		EventID:    event.EventID,
		Voter:      "dora",
		ProposalID: p1.ProposalID,
		Weight:     uint256.NewInt(5),
	})
	if !errors.Is(err, domainerrors.ErrInvalidState) {
		t.Fatalf("expected invalid state for post-measurement vote, got %v", err)
	}
}

func TestMeasurementDrawVariesWithEventID(t *testing.T) {
	entropy := []byte{1, 2, 3, 4}
	if measurementDraw(entropy, 1).Cmp(measurementDraw(entropy, 2)) == 0 {
		t.Fatalf("expected different draws for different event ids")
	}
	if measurementDraw(entropy, 1).Cmp(measurementDraw(entropy, 1)) != 0 {
		t.Fatalf("expected deterministic draw for fixed inputs")
	}
}

// Reference walkthrough: xavier backs the first member with 60, yolanda backs
// the second with 50, xavier revokes and re-votes 30 on the second member.
// Tallies end 0/80, so a draw landing on r=40 collapses the event to the
// second member even though the first once led.
func TestMeasurementAfterRevoteCollapsesToSecondMember(t *testing.T) {
	f := newEngineFixture()
	f.setStake("xavier", 60)
	f.setStake("yolanda", 50)
	event, p1, p2 := f.createActiveEvent(t)

	if _, err := f.votes.CastVote(context.Background(), CastVoteCommand{
		EventID:    event.EventID,
		Voter:      "xavier",
		ProposalID: p1.ProposalID,
		Weight:     uint256.NewInt(60),
	}); err != nil {
		t.Fatalf("xavier vote failed: %v", err)
	}
	if _, err := f.votes.CastVote(context.Background(), CastVoteCommand{
		EventID:    event.EventID,
		Voter:      "yolanda",
		ProposalID: p2.ProposalID,
		Weight:     uint256.NewInt(50),
	}); err != nil {
		t.Fatalf("yolanda vote failed: %v", err)
	}
	if err := f.votes.RevokeVote(context.Background(), RevokeVoteCommand{
		EventID: event.EventID,
		Voter:   "xavier",
	}); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}
	if _, err := f.votes.CastVote(context.Background(), CastVoteCommand{
		EventID:    event.EventID,
		Voter:      "xavier",
		ProposalID: p2.ProposalID,
		Weight:     uint256.NewInt(30),
	}); err != nil {
		t.Fatalf("xavier re-vote failed: %v", err)
	}

	firstTally, err := f.store.ProposalTally(context.Background(), event.EventID, p1.ProposalID)
	if err != nil {
		t.Fatalf("tally read failed: %v", err)
	}
	if !firstTally.IsZero() {
		t.Fatalf("expected drained first tally, got %s", firstTally.Dec())
	}

	f.clock.Advance(2 * time.Hour)
	entropy := entropyForRemainder(t, event.EventID, 80, 40)
	result, err := f.measurements.TriggerMeasurement(context.Background(), TriggerMeasurementCommand{
		EventID: event.EventID,
		Entropy: entropy,
	})
	if err != nil {
		t.Fatalf("measurement failed: %v", err)
	}
	if result.WinnerID != p2.ProposalID {
		t.Fatalf("expected member %d to win at r=40, got %d", p2.ProposalID, result.WinnerID)
	}
	if result.UniformFallback {
		t.Fatalf("unexpected uniform fallback with total 80")
	}
	if result.Total.Uint64() != 80 {
		t.Fatalf("expected total 80, got %s", result.Total.Dec())
	}

	winner, _ := f.store.GetProposal(context.Background(), p2.ProposalID)
	loser, _ := f.store.GetProposal(context.Background(), p1.ProposalID)
	if winner.State != entities.ProposalStateMeasured {
		t.Fatalf("expected measured winner, got %s", winner.State)
	}
	if loser.State != entities.ProposalStateFailed {
		t.Fatalf("expected failed loser, got %s", loser.State)
	}
}

func TestSelectWinnerWeightedDistribution(t *testing.T) {
	memberIDs := []uint64{1, 2}
	tallies := map[uint64]*uint256.Int{
		1: uint256.NewInt(60),
		2: uint256.NewInt(20),
	}
	total := uint256.NewInt(80)

	const draws = 2000
	wins := map[uint64]int{}
	for i := uint64(0); i < draws; i++ {
		var entropy [8]byte
		binary.BigEndian.PutUint64(entropy[:], i+1)
		winnerID, uniform, ok := selectWinner(memberIDs, tallies, total, entropy[:], 42)
		if !ok || uniform {
			t.Fatalf("draw %d: ok=%v uniform=%v", i, ok, uniform)
		}
		wins[winnerID]++
	}

	// Expected win rate for member 1 is 60/80 = 0.75; with 2000 draws the
	// observed rate stays well inside a 0.10 band.
	rate := float64(wins[1]) / draws
	if rate < 0.65 || rate > 0.85 {
		t.Fatalf("member 1 win rate %.3f outside expected band around 0.75", rate)
	}
	if wins[1]+wins[2] != draws {
		t.Fatalf("wins split %v does not cover all draws", wins)
	}
}
