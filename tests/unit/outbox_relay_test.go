package unit

import (
	"context"
	"testing"

	engineworkers "quorum/contexts/settlement-core/superposition-engine/application/workers"
	engineports "quorum/contexts/settlement-core/superposition-engine/ports"
	enginehttp "quorum/contexts/settlement-core/superposition-engine/transport/http"
)

type capturePublisher struct {
	topics []string
}

func (p *capturePublisher) Publish(_ context.Context, topic string, _ engineports.EventEnvelope) error {
	p.topics = append(p.topics, topic)
	return nil
}

func TestOutboxRelayDrainsEngineEvents(t *testing.T) {
	f := newSettlementFixture()
	f.deposit(t, "dora", "dep-dora", "100")
	event, p1, _ := f.activeEvent(t)
	if _, err := f.engine.Handler.CastVoteHandler(context.Background(), event.EventID, "dora", enginehttp.CastVoteRequest{
		ProposalID: p1,
		Weight:     "10",
	}); err != nil {
		t.Fatalf("vote failed: %v", err)
	}

	publisher := &capturePublisher{}
	relay := engineworkers.OutboxRelay{
		Outbox:    f.engine.Store,
		Publisher: publisher,
		Clock:     f.clock,
		BatchSize: 100,
	}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay run failed: %v", err)
	}

	counts := make(map[string]int, len(publisher.topics))
	for _, topic := range publisher.topics {
		counts[topic]++
	}
	for _, want := range []string{"proposal.created", "event.created", "event.activated", "vote.cast"} {
		if counts[want] == 0 {
			t.Fatalf("expected %s to be published, got %v", want, counts)
		}
	}

	// A second pass finds nothing pending.
	publisher.topics = nil
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("second relay run failed: %v", err)
	}
	if len(publisher.topics) != 0 {
		t.Fatalf("expected drained outbox, republished %v", publisher.topics)
	}
}
