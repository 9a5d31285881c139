package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"quorum/contexts/settlement-core/superposition-engine/domain/entities"
	domainerrors "quorum/contexts/settlement-core/superposition-engine/domain/errors"
	"quorum/contexts/settlement-core/superposition-engine/ports"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates the engine schema. It runs against postgres in deployment
// and against the embedded sqlite driver in local development.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&proposalModel{},
		&eventModel{},
		&voteModel{},
		&tallyModel{},
		&eventTotalModel{},
		&sequenceModel{},
		&outboxModel{},
		&stakeAccountModel{},
	)
}

func (r *Repository) SaveProposal(ctx context.Context, proposal entities.Proposal) error {
	row := proposalModelFromEntity(proposal)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"creator":        row.Creator,
			"description":    row.Description,
			"effect_kind":    row.EffectKind,
			"effect_payload": row.EffectPayload,
			"state":          row.State,
			"event_id":       row.EventID,
			"updated_at":     row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrConflict
		}
		return r.logError("engine_repo_save_proposal_failed", create.Error,
			"proposal_id", proposal.ProposalID,
		)
	}
	return nil
}

func (r *Repository) GetProposal(ctx context.Context, proposalID uint64) (entities.Proposal, error) {
	var row proposalModel
	err := r.db.WithContext(ctx).
		Where("id = ?", proposalID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Proposal{}, domainerrors.ErrProposalNotFound
		}
		return entities.Proposal{}, r.logError("engine_repo_get_proposal_failed", err, "proposal_id", proposalID)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListProposalsByEvent(ctx context.Context, eventID uint64) ([]entities.Proposal, error) {
	var rows []proposalModel
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("engine_repo_list_proposals_by_event_failed", err, "event_id", eventID)
	}
	items := make([]entities.Proposal, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) SaveEvent(ctx context.Context, event entities.SuperpositionEvent) error {
	row, err := eventModelFromEntity(event)
	if err != nil {
		return r.logError("engine_repo_encode_event_failed", err, "event_id", event.EventID)
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"state":        row.State,
			"proposal_ids": row.ProposalIDs,
			"start_time":   row.StartTime,
			"end_time":     row.EndTime,
			"winner_id":    row.WinnerID,
			"entropy":      row.Entropy,
			"updated_at":   row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrConflict
		}
		return r.logError("engine_repo_save_event_failed", create.Error, "event_id", event.EventID)
	}
	return nil
}

func (r *Repository) GetEvent(ctx context.Context, eventID uint64) (entities.SuperpositionEvent, error) {
	var row eventModel
	err := r.db.WithContext(ctx).
		Where("id = ?", eventID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.SuperpositionEvent{}, domainerrors.ErrEventNotFound
		}
		return entities.SuperpositionEvent{}, r.logError("engine_repo_get_event_failed", err, "event_id", eventID)
	}
	event, err := row.toEntity()
	if err != nil {
		return entities.SuperpositionEvent{}, r.logError("engine_repo_decode_event_failed", err, "event_id", eventID)
	}
	return event, nil
}

func (r *Repository) SaveVote(ctx context.Context, record entities.VoteRecord) error {
	row, err := voteModelFromEntity(record)
	if err != nil {
		return r.logError("engine_repo_encode_vote_failed", err,
			"event_id", record.EventID,
			"voter", strings.TrimSpace(record.Voter),
		)
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "event_id"}, {Name: "voter"}},
		DoUpdates: clause.Assignments(map[string]any{
			"proposal_id": row.ProposalID,
			"weight":      row.Weight,
			"updated_at":  row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("engine_repo_save_vote_failed", create.Error,
			"event_id", record.EventID,
			"voter", strings.TrimSpace(record.Voter),
		)
	}
	return nil
}

func (r *Repository) GetVote(ctx context.Context, eventID uint64, voter string) (entities.VoteRecord, bool, error) {
	var row voteModel
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Where("voter = ?", strings.TrimSpace(voter)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.VoteRecord{}, false, nil
		}
		return entities.VoteRecord{}, false, r.logError("engine_repo_get_vote_failed", err,
			"event_id", eventID,
			"voter", strings.TrimSpace(voter),
		)
	}
	record, err := row.toEntity()
	if err != nil {
		return entities.VoteRecord{}, false, r.logError("engine_repo_decode_vote_failed", err,
			"event_id", eventID,
			"voter", strings.TrimSpace(voter),
		)
	}
	return record, true, nil
}

func (r *Repository) DeleteVote(ctx context.Context, eventID uint64, voter string) error {
	result := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Where("voter = ?", strings.TrimSpace(voter)).
		Delete(&voteModel{})
	if result.Error != nil {
		return r.logError("engine_repo_delete_vote_failed", result.Error,
			"event_id", eventID,
			"voter", strings.TrimSpace(voter),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrVoteNotFound
	}
	return nil
}

func (r *Repository) ListVotesByEvent(ctx context.Context, eventID uint64) ([]entities.VoteRecord, error) {
	var rows []voteModel
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("voter ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("engine_repo_list_votes_by_event_failed", err, "event_id", eventID)
	}
	return toVoteEntities(rows)
}

func (r *Repository) ListVotesByVoter(ctx context.Context, voter string) ([]entities.VoteRecord, error) {
	var rows []voteModel
	if err := r.db.WithContext(ctx).
		Where("voter = ?", strings.TrimSpace(voter)).
		Order("event_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("engine_repo_list_votes_by_voter_failed", err,
			"voter", strings.TrimSpace(voter),
		)
	}
	return toVoteEntities(rows)
}

func (r *Repository) ProposalTally(ctx context.Context, eventID, proposalID uint64) (*uint256.Int, error) {
	var row tallyModel
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Where("proposal_id = ?", proposalID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return new(uint256.Int), nil
		}
		return nil, r.logError("engine_repo_get_tally_failed", err,
			"event_id", eventID,
			"proposal_id", proposalID,
		)
	}
	return decodeWeight(row.Weight)
}

func (r *Repository) SetProposalTally(ctx context.Context, eventID, proposalID uint64, tally *uint256.Int) error {
	row := tallyModel{
		EventID:    eventID,
		ProposalID: proposalID,
		Weight:     encodeWeight(tally),
		UpdatedAt:  time.Now().UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "event_id"}, {Name: "proposal_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"weight":     row.Weight,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("engine_repo_set_tally_failed", create.Error,
			"event_id", eventID,
			"proposal_id", proposalID,
		)
	}
	return nil
}

func (r *Repository) EventTotal(ctx context.Context, eventID uint64) (*uint256.Int, error) {
	var row eventTotalModel
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return new(uint256.Int), nil
		}
		return nil, r.logError("engine_repo_get_event_total_failed", err, "event_id", eventID)
	}
	return decodeWeight(row.Total)
}

func (r *Repository) SetEventTotal(ctx context.Context, eventID uint64, total *uint256.Int) error {
	row := eventTotalModel{
		EventID:   eventID,
		Total:     encodeWeight(total),
		UpdatedAt: time.Now().UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "event_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"total":      row.Total,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("engine_repo_set_event_total_failed", create.Error, "event_id", eventID)
	}
	return nil
}

// StakeBalance reads the stake ledger's account table directly. Both modules
// share one database, so the engine treats the table as a read-only
// projection.
func (r *Repository) StakeBalance(ctx context.Context, participant string) (*uint256.Int, bool, error) {
	var row stakeAccountModel
	err := r.db.WithContext(ctx).
		Where("participant = ?", strings.TrimSpace(participant)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return new(uint256.Int), false, nil
		}
		if isUndefinedTable(err) {
			return new(uint256.Int), false, nil
		}
		return nil, false, r.logError("engine_repo_get_stake_balance_failed", err,
			"participant", strings.TrimSpace(participant),
		)
	}
	balance, err := decodeWeight(row.Balance)
	if err != nil {
		return nil, false, r.logError("engine_repo_decode_stake_balance_failed", err,
			"participant", strings.TrimSpace(participant),
		)
	}
	return balance, true, nil
}

func (r *Repository) NextID(ctx context.Context, sequence string) (uint64, error) {
	sequence = strings.TrimSpace(sequence)
	if sequence == "" {
		return 0, domainerrors.ErrInvalidInput
	}
	seed := sequenceModel{Name: sequence, NextValue: 0}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&seed)
	if create.Error != nil {
		return 0, r.logError("engine_repo_seed_sequence_failed", create.Error, "sequence", sequence)
	}

	var next uint64
	err := r.db.WithContext(ctx).
		Raw("UPDATE sequences SET next_value = next_value + 1 WHERE name = ? RETURNING next_value", sequence).
		Scan(&next).
		Error
	if err != nil {
		return 0, r.logError("engine_repo_next_id_failed", err, "sequence", sequence)
	}
	if next == 0 {
		return 0, r.logError("engine_repo_next_id_failed", gorm.ErrRecordNotFound, "sequence", sequence)
	}
	return next, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("engine_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("engine_repo_append_outbox_insert_failed", create.Error,
			"outbox_id", row.OutboxID,
		)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing outboxModel
	if err := r.db.WithContext(ctx).
		Select("payload").
		Where("outbox_id = ?", row.OutboxID).
		First(&existing).Error; err != nil {
		return r.logError("engine_repo_append_outbox_load_existing_failed", err,
			"outbox_id", row.OutboxID,
		)
	}
	if !bytes.Equal(existing.Payload, row.Payload) {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("engine_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("engine_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "settlement-core/superposition-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("engine repository operation failed", fields...)
	return err
}

type proposalModel struct {
	ID            uint64    `gorm:"column:id;primaryKey"`
	Creator       string    `gorm:"column:creator"`
	Description   string    `gorm:"column:description"`
	EffectKind    string    `gorm:"column:effect_kind"`
	EffectPayload []byte    `gorm:"column:effect_payload"`
	State         string    `gorm:"column:state"`
	EventID       uint64    `gorm:"column:event_id;index"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (proposalModel) TableName() string {
	return "proposals"
}

func proposalModelFromEntity(proposal entities.Proposal) proposalModel {
	row := proposalModel{
		ID:            proposal.ProposalID,
		Creator:       strings.TrimSpace(proposal.Creator),
		Description:   proposal.Description,
		EffectKind:    strings.TrimSpace(proposal.EffectKind),
		EffectPayload: append([]byte(nil), proposal.EffectPayload...),
		State:         string(proposal.State),
		EventID:       proposal.EventID,
		CreatedAt:     proposal.CreatedAt.UTC(),
		UpdatedAt:     proposal.UpdatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

func (m proposalModel) toEntity() entities.Proposal {
	return entities.Proposal{
		ProposalID:    m.ID,
		Creator:       m.Creator,
		Description:   m.Description,
		EffectKind:    m.EffectKind,
		EffectPayload: append([]byte(nil), m.EffectPayload...),
		State:         entities.ProposalState(m.State),
		EventID:       m.EventID,
		CreatedAt:     m.CreatedAt.UTC(),
		UpdatedAt:     m.UpdatedAt.UTC(),
	}
}

type eventModel struct {
	ID          uint64    `gorm:"column:id;primaryKey"`
	State       string    `gorm:"column:state"`
	ProposalIDs []byte    `gorm:"column:proposal_ids"`
	StartTime   time.Time `gorm:"column:start_time"`
	EndTime     time.Time `gorm:"column:end_time"`
	WinnerID    uint64    `gorm:"column:winner_id"`
	Entropy     []byte    `gorm:"column:entropy"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (eventModel) TableName() string {
	return "superposition_events"
}

func eventModelFromEntity(event entities.SuperpositionEvent) (eventModel, error) {
	members, err := json.Marshal(event.ProposalIDs)
	if err != nil {
		return eventModel{}, fmt.Errorf("encode member ids: %w", err)
	}
	row := eventModel{
		ID:          event.EventID,
		State:       string(event.State),
		ProposalIDs: members,
		StartTime:   event.StartTime.UTC(),
		EndTime:     event.EndTime.UTC(),
		WinnerID:    event.WinnerID,
		Entropy:     append([]byte(nil), event.Entropy...),
		CreatedAt:   event.CreatedAt.UTC(),
		UpdatedAt:   event.UpdatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row, nil
}

func (m eventModel) toEntity() (entities.SuperpositionEvent, error) {
	members := make([]uint64, 0)
	if len(m.ProposalIDs) > 0 {
		if err := json.Unmarshal(m.ProposalIDs, &members); err != nil {
			return entities.SuperpositionEvent{}, fmt.Errorf("decode member ids: %w", err)
		}
	}
	return entities.SuperpositionEvent{
		EventID:     m.ID,
		State:       entities.EventState(m.State),
		ProposalIDs: members,
		StartTime:   m.StartTime.UTC(),
		EndTime:     m.EndTime.UTC(),
		WinnerID:    m.WinnerID,
		Entropy:     append([]byte(nil), m.Entropy...),
		CreatedAt:   m.CreatedAt.UTC(),
		UpdatedAt:   m.UpdatedAt.UTC(),
	}, nil
}

type voteModel struct {
	EventID    uint64    `gorm:"column:event_id;primaryKey"`
	Voter      string    `gorm:"column:voter;primaryKey"`
	ProposalID uint64    `gorm:"column:proposal_id"`
	Weight     string    `gorm:"column:weight"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (voteModel) TableName() string {
	return "superposition_votes"
}

func voteModelFromEntity(record entities.VoteRecord) (voteModel, error) {
	if record.Weight == nil {
		return voteModel{}, fmt.Errorf("vote weight is required")
	}
	row := voteModel{
		EventID:    record.EventID,
		Voter:      strings.TrimSpace(record.Voter),
		ProposalID: record.ProposalID,
		Weight:     record.Weight.Dec(),
		CreatedAt:  record.CreatedAt.UTC(),
		UpdatedAt:  record.UpdatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row, nil
}

func (m voteModel) toEntity() (entities.VoteRecord, error) {
	weight, err := decodeWeight(m.Weight)
	if err != nil {
		return entities.VoteRecord{}, err
	}
	return entities.VoteRecord{
		EventID:    m.EventID,
		Voter:      m.Voter,
		ProposalID: m.ProposalID,
		Weight:     weight,
		CreatedAt:  m.CreatedAt.UTC(),
		UpdatedAt:  m.UpdatedAt.UTC(),
	}, nil
}

type tallyModel struct {
	EventID    uint64    `gorm:"column:event_id;primaryKey"`
	ProposalID uint64    `gorm:"column:proposal_id;primaryKey"`
	Weight     string    `gorm:"column:weight"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (tallyModel) TableName() string {
	return "event_tallies"
}

type eventTotalModel struct {
	EventID   uint64    `gorm:"column:event_id;primaryKey"`
	Total     string    `gorm:"column:total"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (eventTotalModel) TableName() string {
	return "event_totals"
}

type sequenceModel struct {
	Name      string `gorm:"column:name;primaryKey"`
	NextValue uint64 `gorm:"column:next_value"`
}

func (sequenceModel) TableName() string {
	return "sequences"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "engine_outbox"
}

type stakeAccountModel struct {
	Participant string `gorm:"column:participant;primaryKey"`
	Balance     string `gorm:"column:balance"`
}

func (stakeAccountModel) TableName() string {
	return "stake_accounts"
}

func toVoteEntities(rows []voteModel) ([]entities.VoteRecord, error) {
	items := make([]entities.VoteRecord, 0, len(rows))
	for _, row := range rows {
		record, err := row.toEntity()
		if err != nil {
			return nil, err
		}
		items = append(items, record)
	}
	return items, nil
}

func encodeWeight(value *uint256.Int) string {
	if value == nil {
		return "0"
	}
	return value.Dec()
}

func decodeWeight(value string) (*uint256.Int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return new(uint256.Int), nil
	}
	parsed, err := uint256.FromDecimal(value)
	if err != nil {
		return nil, fmt.Errorf("decode weight %q: %w", value, err)
	}
	return parsed, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}

var _ ports.ProposalRepository = (*Repository)(nil)
var _ ports.EventRepository = (*Repository)(nil)
var _ ports.VoteRepository = (*Repository)(nil)
var _ ports.TallyStore = (*Repository)(nil)
var _ ports.StakeReader = (*Repository)(nil)
var _ ports.SequenceAllocator = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
