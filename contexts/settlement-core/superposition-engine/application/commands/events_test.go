package commands

import (
	"context"
	"errors"
	"testing"
	"time"

	"quorum/contexts/settlement-core/superposition-engine/domain/entities"
	domainerrors "quorum/contexts/settlement-core/superposition-engine/domain/errors"
)

func TestCreateEventSortsMembersAndCascadesPending(t *testing.T) {
	f := newEngineFixture()
	p1 := f.createDraft(t, "alice")
	p2 := f.createDraft(t, "bob")
	p3 := f.createDraft(t, "carol")

	event, err := f.events.CreateEvent(context.Background(), CreateEventCommand{
		ProposalIDs: []uint64{p3.ProposalID, p1.ProposalID, p2.ProposalID},
	})
	if err != nil {
		t.Fatalf("create event failed: %v", err)
	}
	want := []uint64{p1.ProposalID, p2.ProposalID, p3.ProposalID}
	if len(event.ProposalIDs) != len(want) {
		t.Fatalf("expected %d members, got %d", len(want), len(event.ProposalIDs))
	}
	for i, id := range want {
		if event.ProposalIDs[i] != id {
			t.Fatalf("expected member %d at index %d, got %d", id, i, event.ProposalIDs[i])
		}
	}
	if event.State != entities.EventStatePending {
		t.Fatalf("expected pending event, got %s", event.State)
	}

	for _, id := range want {
		proposal, err := f.store.GetProposal(context.Background(), id)
		if err != nil {
			t.Fatalf("get proposal failed: %v", err)
		}
		if proposal.State != entities.ProposalStatePending || proposal.EventID != event.EventID {
			t.Fatalf("expected pending member of event %d, got state=%s event=%d",
				event.EventID, proposal.State, proposal.EventID)
		}
	}
}

func TestCreateEventRejectsDuplicateAndAttachedCandidates(t *testing.T) {
	f := newEngineFixture()
	p1 := f.createDraft(t, "alice")

	_, err := f.events.CreateEvent(context.Background(), CreateEventCommand{
		ProposalIDs: []uint64{p1.ProposalID, p1.ProposalID},
	})
	if !errors.Is(err, domainerrors.ErrInvalidInput) {
		t.Fatalf("expected invalid input for duplicate candidate, got %v", err)
	}

	_, taken, _ := f.createActiveEvent(t)
	_, err = f.events.CreateEvent(context.Background(), CreateEventCommand{
		ProposalIDs: []uint64{taken.ProposalID},
	})
	if !errors.Is(err, domainerrors.ErrInvalidProposalState) {
		t.Fatalf("expected invalid proposal state for attached candidate, got %v", err)
	}
}

func TestAddProposalOnlyWhilePending(t *testing.T) {
	f := newEngineFixture()
	p1 := f.createDraft(t, "alice")
	event, err := f.events.CreateEvent(context.Background(), CreateEventCommand{
		ProposalIDs: []uint64{p1.ProposalID},
	})
	if err != nil {
		t.Fatalf("create event failed: %v", err)
	}

	p2 := f.createDraft(t, "bob")
	if err := f.events.AddProposal(context.Background(), AddProposalCommand{
		EventID:    event.EventID,
		ProposalID: p2.ProposalID,
	}); err != nil {
		t.Fatalf("add proposal failed: %v", err)
	}

	if _, err := f.events.ActivateEvent(context.Background(), ActivateEventCommand{EventID: event.EventID}); err != nil {
		t.Fatalf("activate failed: %v", err)
	}

	p3 := f.createDraft(t, "carol")
	err = f.events.AddProposal(context.Background(), AddProposalCommand{
		EventID:    event.EventID,
		ProposalID: p3.ProposalID,
	})
	if !errors.Is(err, domainerrors.ErrInvalidState) {
		t.Fatalf("expected invalid state after activation, got %v", err)
	}
}

func TestActivateEventRequiresTwoMembers(t *testing.T) {
	f := newEngineFixture()
	p1 := f.createDraft(t, "alice")
	event, err := f.events.CreateEvent(context.Background(), CreateEventCommand{
		ProposalIDs: []uint64{p1.ProposalID},
	})
	if err != nil {
		t.Fatalf("create event failed: %v", err)
	}

	_, err = f.events.ActivateEvent(context.Background(), ActivateEventCommand{EventID: event.EventID})
	if !errors.Is(err, domainerrors.ErrInsufficientProposals) {
		t.Fatalf("expected insufficient proposals, got %v", err)
	}
}

func TestActivateEventSetsWindowAndCascadesSuperposed(t *testing.T) {
	f := newEngineFixture()
	event, p1, p2 := f.createActiveEvent(t)

	if event.State != entities.EventStateSuperposed {
		t.Fatalf("expected superposed event, got %s", event.State)
	}
	if got := event.EndTime.Sub(event.StartTime); got != time.Hour {
		t.Fatalf("expected one hour window, got %s", got)
	}
	for _, id := range []uint64{p1.ProposalID, p2.ProposalID} {
		proposal, err := f.store.GetProposal(context.Background(), id)
		if err != nil {
			t.Fatalf("get proposal failed: %v", err)
		}
		if proposal.State != entities.ProposalStateSuperposed {
			t.Fatalf("expected superposed member, got %s", proposal.State)
		}
	}

	_, err := f.events.ActivateEvent(context.Background(), ActivateEventCommand{EventID: event.EventID})
	if !errors.Is(err, domainerrors.ErrInvalidState) {
		t.Fatalf("expected invalid state on re-activation, got %v", err)
	}
}

func TestActivateEventHonorsPeriodOverride(t *testing.T) {
	f := newEngineFixture()
	p1 := f.createDraft(t, "alice")
	p2 := f.createDraft(t, "bob")
	event, err := f.events.CreateEvent(context.Background(), CreateEventCommand{
		ProposalIDs: []uint64{p1.ProposalID, p2.ProposalID},
	})
	if err != nil {
		t.Fatalf("create event failed: %v", err)
	}

	event, err = f.events.ActivateEvent(context.Background(), ActivateEventCommand{
		EventID:      event.EventID,
		VotingPeriod: 15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if got := event.EndTime.Sub(event.StartTime); got != 15*time.Minute {
		t.Fatalf("expected fifteen minute window, got %s", got)
	}
}

func TestCancelEventReleasesMembersToDraft(t *testing.T) {
	f := newEngineFixture()
	p1 := f.createDraft(t, "alice")
	p2 := f.createDraft(t, "bob")
	event, err := f.events.CreateEvent(context.Background(), CreateEventCommand{
		ProposalIDs: []uint64{p1.ProposalID, p2.ProposalID},
	})
	if err != nil {
		t.Fatalf("create event failed: %v", err)
	}

	if err := f.events.CancelEvent(context.Background(), CancelEventCommand{EventID: event.EventID}); err != nil {
		t.Fatalf("cancel event failed: %v", err)
	}

	stored, err := f.store.GetEvent(context.Background(), event.EventID)
	if err != nil {
		t.Fatalf("get event failed: %v", err)
	}
	if stored.State != entities.EventStateCancelled {
		t.Fatalf("expected cancelled event, got %s", stored.State)
	}
	for _, id := range []uint64{p1.ProposalID, p2.ProposalID} {
		proposal, err := f.store.GetProposal(context.Background(), id)
		if err != nil {
			t.Fatalf("get proposal failed: %v", err)
		}
		if !proposal.Attachable() {
			t.Fatalf("expected released draft, got state=%s event=%d", proposal.State, proposal.EventID)
		}
	}
}

func TestCancelEventRejectsActiveEvent(t *testing.T) {
	f := newEngineFixture()
	event, _, _ := f.createActiveEvent(t)

	err := f.events.CancelEvent(context.Background(), CancelEventCommand{EventID: event.EventID})
	if !errors.Is(err, domainerrors.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}
