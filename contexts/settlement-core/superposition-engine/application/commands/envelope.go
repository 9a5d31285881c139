package commands

import (
	"encoding/json"
	"strconv"
	"time"

	"quorum/contexts/settlement-core/superposition-engine/ports"
)

// newEngineEnvelope builds canonical envelopes for command-side events.
// Events are partitioned by event id so consumers observe each event's
// lifecycle in order.
func newEngineEnvelope(
	envelopeID string,
	eventType string,
	eventID uint64,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          envelopeID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "superposition-engine",
		TraceID:          envelopeID,
		SchemaVersion:    1,
		PartitionKeyPath: "event_id",
		PartitionKey:     strconv.FormatUint(eventID, 10),
		Data:             payload,
	}, nil
}
