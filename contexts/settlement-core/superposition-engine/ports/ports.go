package ports

import (
	"context"
	"encoding/json"
	"time"

	"quorum/contexts/settlement-core/superposition-engine/domain/entities"

	"github.com/holiman/uint256"
)

// Sequence names used with SequenceAllocator. Identifiers are monotonic and
// never reused, so allocation lives behind an injected port instead of a
// package-level counter.
const (
	SequenceProposals = "proposals"
	SequenceEvents    = "superposition_events"
)

type ProposalRepository interface {
	SaveProposal(ctx context.Context, proposal entities.Proposal) error
	GetProposal(ctx context.Context, proposalID uint64) (entities.Proposal, error)
	ListProposalsByEvent(ctx context.Context, eventID uint64) ([]entities.Proposal, error)
}

type EventRepository interface {
	SaveEvent(ctx context.Context, event entities.SuperpositionEvent) error
	GetEvent(ctx context.Context, eventID uint64) (entities.SuperpositionEvent, error)
}

type VoteRepository interface {
	SaveVote(ctx context.Context, vote entities.VoteRecord) error
	GetVote(ctx context.Context, eventID uint64, voter string) (entities.VoteRecord, bool, error)
	DeleteVote(ctx context.Context, eventID uint64, voter string) error
	ListVotesByEvent(ctx context.Context, eventID uint64) ([]entities.VoteRecord, error)
	ListVotesByVoter(ctx context.Context, voter string) ([]entities.VoteRecord, error)
}

// TallyStore holds the cached per-proposal sums and per-event totals. Reads
// return zero for absent rows; writes replace the stored value. Commands keep
// the cache consistent with the live vote records under the module gate.
type TallyStore interface {
	ProposalTally(ctx context.Context, eventID uint64, proposalID uint64) (*uint256.Int, error)
	EventTotal(ctx context.Context, eventID uint64) (*uint256.Int, error)
	SetProposalTally(ctx context.Context, eventID uint64, proposalID uint64, weight *uint256.Int) error
	SetEventTotal(ctx context.Context, eventID uint64, weight *uint256.Int) error
}

// StakeReader exposes the stake-ledger balance that caps vote weight. The
// engine only reads; all stake mutation goes through the stake-ledger module.
type StakeReader interface {
	StakeBalance(ctx context.Context, participant string) (*uint256.Int, bool, error)
}

// EffectExecutor applies a winning proposal's opaque payload. Failure aborts
// execution before any state is committed.
type EffectExecutor interface {
	Apply(ctx context.Context, kind string, payload []byte) error
}

type SequenceAllocator interface {
	NextID(ctx context.Context, sequence string) (uint64, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
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
