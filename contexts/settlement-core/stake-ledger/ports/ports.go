package ports

import (
	"context"
	"encoding/json"
	"time"

	"github.com/holiman/uint256"

	"quorum/contexts/settlement-core/stake-ledger/domain/entities"
)

// AccountRepository persists stake accounts keyed by participant id.
type AccountRepository interface {
	SaveAccount(ctx context.Context, account entities.StakeAccount) error
	GetAccount(ctx context.Context, participant string) (entities.StakeAccount, bool, error)
}

// CustodyGateway moves real funds in and out of the ledger's custody. Both
// calls happen before the ledger mutates, so a failed transfer never leaves a
// phantom balance.
type CustodyGateway interface {
	TransferIn(ctx context.Context, participant string, amount *uint256.Int) error
	TransferOut(ctx context.Context, participant string, amount *uint256.Int) error
}

// CommitmentReader reports how much of a participant's balance is currently
// backing live votes. Withdrawals may not dip below that amount.
type CommitmentReader interface {
	CommittedWeight(ctx context.Context, participant string) (*uint256.Int, error)
}

type IdempotencyRecord struct {
	Key         string
	RequestHash string
	Participant string
	ExpiresAt   time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	Put(ctx context.Context, record IdempotencyRecord) error
}

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id,omitempty"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
