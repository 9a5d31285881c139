package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/holiman/uint256"

	domainerrors "quorum/contexts/settlement-core/superposition-engine/domain/errors"
)

func TestCastVoteRecordsWeightAndTallies(t *testing.T) {
	f := newEngineFixture()
	event, p1, _ := f.createActiveEvent(t)
	f.setStake("dora", 100)

	record, err := f.votes.CastVote(context.Background(), CastVoteCommand{
		EventID:    event.EventID,
		Voter:      "dora",
		ProposalID: p1.ProposalID,
		Weight:     uint256.NewInt(60),
	})
	if err != nil {
		t.Fatalf("cast vote failed: %v", err)
	}
	if record.Weight.Uint64() != 60 {
		t.Fatalf("expected weight 60, got %s", record.Weight.Dec())
	}

	tally, err := f.store.ProposalTally(context.Background(), event.EventID, p1.ProposalID)
	if err != nil {
		t.Fatalf("proposal tally failed: %v", err)
	}
	total, err := f.store.EventTotal(context.Background(), event.EventID)
	if err != nil {
		t.Fatalf("event total failed: %v", err)
	}
	if tally.Uint64() != 60 || total.Uint64() != 60 {
		t.Fatalf("expected tally=60 total=60, got tally=%s total=%s", tally.Dec(), total.Dec())
	}
}

func TestCastVoteReplacesPreviousVote(t *testing.T) {
	f := newEngineFixture()
	event, p1, p2 := f.createActiveEvent(t)
	f.setStake("dora", 100)

	if _, err := f.votes.CastVote(context.Background(), CastVoteCommand{
		EventID:    event.EventID,
		Voter:      "dora",
		ProposalID: p1.ProposalID,
		Weight:     uint256.NewInt(60),
	}); err != nil {
		t.Fatalf("first cast failed: %v", err)
	}
	if _, err := f.votes.CastVote(context.Background(), CastVoteCommand{
		EventID:    event.EventID,
		Voter:      "dora",
		ProposalID: p2.ProposalID,
		Weight:     uint256.NewInt(25),
	}); err != nil {
		t.Fatalf("replacement cast failed: %v", err)
	}

	oldTally, _ := f.store.ProposalTally(context.Background(), event.EventID, p1.ProposalID)
	newTally, _ := f.store.ProposalTally(context.Background(), event.EventID, p2.ProposalID)
	total, _ := f.store.EventTotal(context.Background(), event.EventID)
	if oldTally.Uint64() != 0 {
		t.Fatalf("expected old tally drained, got %s", oldTally.Dec())
	}
	if newTally.Uint64() != 25 || total.Uint64() != 25 {
		t.Fatalf("expected replacement tally=25 total=25, got tally=%s total=%s", newTally.Dec(), total.Dec())
	}

	record, found, err := f.store.GetVote(context.Background(), event.EventID, "dora")
	if err != nil || !found {
		t.Fatalf("expected live vote, found=%v err=%v", found, err)
	}
	if record.ProposalID != p2.ProposalID {
		t.Fatalf("expected vote moved to %d, got %d", p2.ProposalID, record.ProposalID)
	}
}

func TestCastVoteRejectsWeightAboveStake(t *testing.T) {
	f := newEngineFixture()
	event, p1, _ := f.createActiveEvent(t)
	f.setStake("dora", 10)

	_, err := f.votes.CastVote(context.Background(), CastVoteCommand{
		EventID:    event.EventID,
		Voter:      "dora",
		ProposalID: p1.ProposalID,
		Weight:     uint256.NewInt(11),
	})
	if !errors.Is(err, domainerrors.ErrInsufficientStake) {
		t.Fatalf("expected insufficient stake, got %v", err)
	}

	_, err = f.votes.CastVote(context.Background(), CastVoteCommand{
		EventID:    event.EventID,
		Voter:      "unknown",
		ProposalID: p1.ProposalID,
		Weight:     uint256.NewInt(1),
	})
	if !errors.Is(err, domainerrors.ErrInsufficientStake) {
		t.Fatalf("expected insufficient stake for unstaked voter, got %v", err)
	}
}

func TestCastVoteRejectsZeroWeightAndNonMember(t *testing.T) {
	f := newEngineFixture()
	event, _, _ := f.createActiveEvent(t)
	f.setStake("dora", 100)

	_, err := f.votes.CastVote(context.Background(), CastVoteCommand{
		EventID:    event.EventID,
		Voter:      "dora",
		ProposalID: event.ProposalIDs[0],
		Weight:     new(uint256.Int),
	})
	if !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input for zero weight, got %v", err)
	}

	outsider := f.createDraft(t, "eve")
	_, err = f.votes.CastVote(context.Background(), CastVoteCommand{
		EventID:    event.EventID,
		Voter:      "dora",
		ProposalID: outsider.ProposalID,
		Weight:     uint256.NewInt(1),
	})
	if !errors.Is(err, domainerrors.ErrInvalidProposalState) {
		t.Fatalf("expected invalid proposal state for non-member, got %v", err)
	}
}

func TestCastVoteRejectsClosedWindow(t *testing.T) {
	f := newEngineFixture()
	event, p1, _ := f.createActiveEvent(t)
	f.setStake("dora", 100)

	f.clock.Advance(time.Hour + time.Second)
	_, err := f.votes.CastVote(context.Background(), CastVoteCommand{
		EventID:    event.EventID,
		Voter:      "dora",
		ProposalID: p1.ProposalID,
		Weight:     uint256.NewInt(5),
	})
	if !errors.Is(err, domainerrors.ErrWindowClosed) {
		t.Fatalf("expected window closed, got %v", err)
	}
}

func TestRevokeVoteDrainsTallies(t *testing.T) {
	f := newEngineFixture()
	event, p1, _ := f.createActiveEvent(t)
	f.setStake("dora", 100)

	if _, err := f.votes.CastVote(context.Background(), CastVoteCommand{
		EventID:    event.EventID,
		Voter:      "dora",
		ProposalID: p1.ProposalID,
		Weight:     uint256.NewInt(40),
	}); err != nil {
		t.Fatalf("cast failed: %v", err)
	}

	if err := f.votes.RevokeVote(context.Background(), RevokeVoteCommand{
		EventID: event.EventID,
		Voter:   "dora",
	}); err != nil {
		t.Fatalf("revoke failed: %v", err)
	}

	tally, _ := f.store.ProposalTally(context.Background(), event.EventID, p1.ProposalID)
	total, _ := f.store.EventTotal(context.Background(), event.EventID)
	if !tally.IsZero() || !total.IsZero() {
		t.Fatalf("expected drained tallies, got tally=%s total=%s", tally.Dec(), total.Dec())
	}

	err := f.votes.RevokeVote(context.Background(), RevokeVoteCommand{
		EventID: event.EventID,
		Voter:   "dora",
	})
	if !errors.Is(err, domainerrors.ErrVoteNotFound) {
		t.Fatalf("expected vote not found on second revoke, got %v", err)
	}
}

func TestTotalTallyMatchesSumAcrossVoters(t *testing.T) {
	f := newEngineFixture()
	event, p1, p2 := f.createActiveEvent(t)
	f.setStake("dora", 100)
	f.setStake("erin", 100)
	f.setStake("finn", 100)

	casts := []struct {
		voter      string
		proposalID uint64
		weight     uint64
	}{
		{"dora", p1.ProposalID, 60},
		{"erin", p2.ProposalID, 20},
		{"finn", p1.ProposalID, 7},
	}
	for _, c := range casts {
		if _, err := f.votes.CastVote(context.Background(), CastVoteCommand{
			EventID:    event.EventID,
			Voter:      c.voter,
			ProposalID: c.proposalID,
			Weight:     uint256.NewInt(c.weight),
		}); err != nil {
			t.Fatalf("cast by %s failed: %v", c.voter, err)
		}
	}

	t1, _ := f.store.ProposalTally(context.Background(), event.EventID, p1.ProposalID)
	t2, _ := f.store.ProposalTally(context.Background(), event.EventID, p2.ProposalID)
	total, _ := f.store.EventTotal(context.Background(), event.EventID)
	sum := new(uint256.Int).Add(t1, t2)
	if sum.Cmp(total) != 0 {
		t.Fatalf("expected total %s to equal tally sum %s", total.Dec(), sum.Dec())
	}
	if total.Uint64() != 87 {
		t.Fatalf("expected total 87, got %s", total.Dec())
	}
}
