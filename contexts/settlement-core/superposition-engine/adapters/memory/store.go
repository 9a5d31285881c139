package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"quorum/contexts/settlement-core/superposition-engine/domain/entities"
	domainerrors "quorum/contexts/settlement-core/superposition-engine/domain/errors"
	"quorum/contexts/settlement-core/superposition-engine/ports"
)

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

// Store is the in-memory adapter backing all engine ports. Production wiring
// swaps it for the postgres repository; tests and the zero-config dev server
// run on it directly.
type Store struct {
	mu sync.RWMutex

	proposals map[uint64]entities.Proposal
	events    map[uint64]entities.SuperpositionEvent
	votes     map[string]entities.VoteRecord
	tallies   map[string]*uint256.Int
	totals    map[uint64]*uint256.Int
	stake     map[string]*uint256.Int
	sequences map[string]uint64
	outbox    map[string]outboxRecord
}

func NewStore() *Store {
	return &Store{
		proposals: make(map[uint64]entities.Proposal),
		events:    make(map[uint64]entities.SuperpositionEvent),
		votes:     make(map[string]entities.VoteRecord),
		tallies:   make(map[string]*uint256.Int),
		totals:    make(map[uint64]*uint256.Int),
		stake:     make(map[string]*uint256.Int),
		sequences: make(map[string]uint64),
		outbox:    make(map[string]outboxRecord),
	}
}

func voteKey(eventID uint64, voter string) string {
	return fmt.Sprintf("%d/%s", eventID, strings.TrimSpace(voter))
}

func tallyKey(eventID, proposalID uint64) string {
	return fmt.Sprintf("%d/%d", eventID, proposalID)
}

// SetStakeBalance seeds a participant balance for wiring that does not run a
// real stake ledger alongside the engine.
func (s *Store) SetStakeBalance(participant string, balance *uint256.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if balance == nil {
		delete(s.stake, strings.TrimSpace(participant))
		return
	}
	s.stake[strings.TrimSpace(participant)] = balance.Clone()
}

func (s *Store) SaveProposal(_ context.Context, proposal entities.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.proposals[proposal.ProposalID] = proposal
	return nil
}

func (s *Store) GetProposal(_ context.Context, proposalID uint64) (entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	proposal, ok := s.proposals[proposalID]
	if !ok {
		return entities.Proposal{}, domainerrors.ErrProposalNotFound
	}
	return proposal, nil
}

func (s *Store) ListProposalsByEvent(_ context.Context, eventID uint64) ([]entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Proposal, 0)
	for _, proposal := range s.proposals {
		if proposal.EventID == eventID {
			items = append(items, proposal)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].ProposalID < items[j].ProposalID
	})
	return items, nil
}

func (s *Store) SaveEvent(_ context.Context, event entities.SuperpositionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event.ProposalIDs = append([]uint64(nil), event.ProposalIDs...)
	event.Entropy = append([]byte(nil), event.Entropy...)
	s.events[event.EventID] = event
	return nil
}

func (s *Store) GetEvent(_ context.Context, eventID uint64) (entities.SuperpositionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[eventID]
	if !ok {
		return entities.SuperpositionEvent{}, domainerrors.ErrEventNotFound
	}
	event.ProposalIDs = append([]uint64(nil), event.ProposalIDs...)
	event.Entropy = append([]byte(nil), event.Entropy...)
	return event, nil
}

func (s *Store) SaveVote(_ context.Context, record entities.VoteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record.Weight != nil {
		record.Weight = record.Weight.Clone()
	}
	s.votes[voteKey(record.EventID, record.Voter)] = record
	return nil
}

func (s *Store) GetVote(_ context.Context, eventID uint64, voter string) (entities.VoteRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.votes[voteKey(eventID, voter)]
	if !ok {
		return entities.VoteRecord{}, false, nil
	}
	if record.Weight != nil {
		record.Weight = record.Weight.Clone()
	}
	return record, true, nil
}

func (s *Store) DeleteVote(_ context.Context, eventID uint64, voter string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := voteKey(eventID, voter)
	if _, ok := s.votes[key]; !ok {
		return domainerrors.ErrVoteNotFound
	}
	delete(s.votes, key)
	return nil
}

func (s *Store) ListVotesByEvent(_ context.Context, eventID uint64) ([]entities.VoteRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.VoteRecord, 0)
	for _, record := range s.votes {
		if record.EventID != eventID {
			continue
		}
		if record.Weight != nil {
			record.Weight = record.Weight.Clone()
		}
		items = append(items, record)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Voter < items[j].Voter
	})
	return items, nil
}

func (s *Store) ListVotesByVoter(_ context.Context, voter string) ([]entities.VoteRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	voter = strings.TrimSpace(voter)
	items := make([]entities.VoteRecord, 0)
	for _, record := range s.votes {
		if !strings.EqualFold(record.Voter, voter) {
			continue
		}
		if record.Weight != nil {
			record.Weight = record.Weight.Clone()
		}
		items = append(items, record)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].EventID < items[j].EventID
	})
	return items, nil
}

func (s *Store) ProposalTally(_ context.Context, eventID, proposalID uint64) (*uint256.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tally, ok := s.tallies[tallyKey(eventID, proposalID)]
	if !ok {
		return new(uint256.Int), nil
	}
	return tally.Clone(), nil
}

func (s *Store) SetProposalTally(_ context.Context, eventID, proposalID uint64, tally *uint256.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tally == nil {
		tally = new(uint256.Int)
	}
	s.tallies[tallyKey(eventID, proposalID)] = tally.Clone()
	return nil
}

func (s *Store) EventTotal(_ context.Context, eventID uint64) (*uint256.Int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total, ok := s.totals[eventID]
	if !ok {
		return new(uint256.Int), nil
	}
	return total.Clone(), nil
}

func (s *Store) SetEventTotal(_ context.Context, eventID uint64, total *uint256.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if total == nil {
		total = new(uint256.Int)
	}
	s.totals[eventID] = total.Clone()
	return nil
}

func (s *Store) StakeBalance(_ context.Context, participant string) (*uint256.Int, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	balance, ok := s.stake[strings.TrimSpace(participant)]
	if !ok {
		return new(uint256.Int), false, nil
	}
	return balance.Clone(), true, nil
}

func (s *Store) NextID(_ context.Context, sequence string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sequence = strings.TrimSpace(sequence)
	if sequence == "" {
		return 0, domainerrors.ErrInvalidInput
	}
	s.sequences[sequence]++
	return s.sequences[sequence], nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var (
	_ ports.ProposalRepository = (*Store)(nil)
	_ ports.EventRepository    = (*Store)(nil)
	_ ports.VoteRepository     = (*Store)(nil)
	_ ports.TallyStore         = (*Store)(nil)
	_ ports.StakeReader        = (*Store)(nil)
	_ ports.SequenceAllocator  = (*Store)(nil)
	_ ports.OutboxWriter       = (*Store)(nil)
	_ ports.OutboxRepository   = (*Store)(nil)
	_ ports.Clock              = (*Store)(nil)
	_ ports.IDGenerator        = (*Store)(nil)
)
