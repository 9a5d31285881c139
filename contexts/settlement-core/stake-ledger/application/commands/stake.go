package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/holiman/uint256"

	application "quorum/contexts/settlement-core/stake-ledger/application"
	"quorum/contexts/settlement-core/stake-ledger/domain/entities"
	domainerrors "quorum/contexts/settlement-core/stake-ledger/domain/errors"
	"quorum/contexts/settlement-core/stake-ledger/ports"
)

const defaultIdempotencyTTL = 24 * time.Hour

type DepositCommand struct {
	Participant    string
	Amount         *uint256.Int
	IdempotencyKey string
}

type WithdrawCommand struct {
	Participant    string
	Amount         *uint256.Int
	IdempotencyKey string
}

type StakeResult struct {
	Account  entities.StakeAccount
	Replayed bool
}

// StakeUseCase owns balance movement. Custody transfers always precede the
// ledger write, and both commands are serialized through the module gate so
// a withdrawal observes a consistent balance and commitment snapshot.
type StakeUseCase struct {
	Gate           *sync.Mutex
	Accounts       ports.AccountRepository
	Custody        ports.CustodyGateway
	Commitments    ports.CommitmentReader
	Idempotency    ports.IdempotencyStore
	Outbox         ports.OutboxWriter
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	IdempotencyTTL time.Duration
	Logger         *slog.Logger
}

func (uc StakeUseCase) Deposit(ctx context.Context, cmd DepositCommand) (StakeResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	if strings.TrimSpace(cmd.Participant) == "" {
		return StakeResult{}, domainerrors.ErrInvalidInput
	}
	if cmd.Amount == nil || cmd.Amount.IsZero() {
		logger.Warn("stake deposit validation failed",
			"event", "stake_deposit_validation_failed",
			"module", "settlement-core/stake-ledger",
			"layer", "application",
			"participant", strings.TrimSpace(cmd.Participant),
		)
		return StakeResult{}, domainerrors.ErrInvalidAmount
	}
	if strings.TrimSpace(cmd.IdempotencyKey) == "" {
		return StakeResult{}, domainerrors.ErrIdempotencyKeyRequired
	}

	uc.Gate.Lock()
	defer uc.Gate.Unlock()

	now := uc.now()
	requestHash := hashStakeCommand("deposit", cmd.Participant, cmd.Amount)
	if result, replayed, err := uc.checkReplay(ctx, cmd.IdempotencyKey, requestHash, now); err != nil {
		return StakeResult{}, err
	} else if replayed {
		logger.Info("stake deposit replayed",
			"event", "stake_deposit_replayed",
			"module", "settlement-core/stake-ledger",
			"layer", "application",
			"participant", strings.TrimSpace(cmd.Participant),
		)
		return result, nil
	}

	if err := uc.Custody.TransferIn(ctx, strings.TrimSpace(cmd.Participant), cmd.Amount); err != nil {
		logger.Error("stake deposit custody transfer failed",
			"event", "stake_deposit_custody_failed",
			"module", "settlement-core/stake-ledger",
			"layer", "application",
			"participant", strings.TrimSpace(cmd.Participant),
			"error", err.Error(),
		)
		return StakeResult{}, fmt.Errorf("%w: %w", domainerrors.ErrCustodyUnavailable, err)
	}

	account, found, err := uc.Accounts.GetAccount(ctx, cmd.Participant)
	if err != nil {
		return StakeResult{}, err
	}
	if !found {
		account = entities.StakeAccount{
			Participant: strings.TrimSpace(cmd.Participant),
			Balance:     new(uint256.Int),
			CreatedAt:   now,
		}
	}
	account.Balance = new(uint256.Int).Add(account.BalanceOrZero(), cmd.Amount)
	account.UpdatedAt = now
	if err := uc.Accounts.SaveAccount(ctx, account); err != nil {
		return StakeResult{}, err
	}
	if err := uc.appendStakeEvent(ctx, "stake.deposited", account, cmd.Amount, now); err != nil {
		return StakeResult{}, err
	}
	if err := uc.rememberRequest(ctx, cmd.IdempotencyKey, requestHash, account.Participant, now); err != nil {
		return StakeResult{}, err
	}

	logger.Info("stake deposited",
		"event", "stake_deposited",
		"module", "settlement-core/stake-ledger",
		"layer", "application",
		"participant", account.Participant,
		"amount", cmd.Amount.Dec(),
		"balance", account.Balance.Dec(),
	)
	return StakeResult{Account: account}, nil
}

// Withdraw releases balance back through custody. The withdrawable amount is
// the balance minus whatever the commitment reader says is riding on live
// votes, so a voter cannot drain stake out from under a superposed event.
func (uc StakeUseCase) Withdraw(ctx context.Context, cmd WithdrawCommand) (StakeResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	if strings.TrimSpace(cmd.Participant) == "" {
		return StakeResult{}, domainerrors.ErrInvalidInput
	}
	if cmd.Amount == nil || cmd.Amount.IsZero() {
		return StakeResult{}, domainerrors.ErrInvalidAmount
	}
	if strings.TrimSpace(cmd.IdempotencyKey) == "" {
		return StakeResult{}, domainerrors.ErrIdempotencyKeyRequired
	}

	uc.Gate.Lock()
	defer uc.Gate.Unlock()

	now := uc.now()
	requestHash := hashStakeCommand("withdraw", cmd.Participant, cmd.Amount)
	if result, replayed, err := uc.checkReplay(ctx, cmd.IdempotencyKey, requestHash, now); err != nil {
		return StakeResult{}, err
	} else if replayed {
		logger.Info("stake withdrawal replayed",
			"event", "stake_withdraw_replayed",
			"module", "settlement-core/stake-ledger",
			"layer", "application",
			"participant", strings.TrimSpace(cmd.Participant),
		)
		return result, nil
	}

	account, found, err := uc.Accounts.GetAccount(ctx, cmd.Participant)
	if err != nil {
		return StakeResult{}, err
	}
	if !found {
		return StakeResult{}, domainerrors.ErrAccountNotFound
	}
	balance := account.BalanceOrZero()
	if balance.Lt(cmd.Amount) {
		logger.Warn("stake withdrawal exceeds balance",
			"event", "stake_withdraw_insufficient",
			"module", "settlement-core/stake-ledger",
			"layer", "application",
			"participant", account.Participant,
			"amount", cmd.Amount.Dec(),
			"balance", balance.Dec(),
		)
		return StakeResult{}, domainerrors.ErrInsufficientStake
	}

	committed := new(uint256.Int)
	if uc.Commitments != nil {
		committed, err = uc.Commitments.CommittedWeight(ctx, account.Participant)
		if err != nil {
			return StakeResult{}, err
		}
		if committed == nil {
			committed = new(uint256.Int)
		}
	}
	available := new(uint256.Int).Sub(balance, committed)
	if balance.Lt(committed) {
		available = new(uint256.Int)
	}
	if available.Lt(cmd.Amount) {
		logger.Warn("stake withdrawal blocked by live votes",
			"event", "stake_withdraw_committed",
			"module", "settlement-core/stake-ledger",
			"layer", "application",
			"participant", account.Participant,
			"amount", cmd.Amount.Dec(),
			"committed", committed.Dec(),
		)
		return StakeResult{}, domainerrors.ErrStakeCommitted
	}

	if err := uc.Custody.TransferOut(ctx, account.Participant, cmd.Amount); err != nil {
		logger.Error("stake withdrawal custody transfer failed",
			"event", "stake_withdraw_custody_failed",
			"module", "settlement-core/stake-ledger",
			"layer", "application",
			"participant", account.Participant,
			"error", err.Error(),
		)
		return StakeResult{}, fmt.Errorf("%w: %w", domainerrors.ErrCustodyUnavailable, err)
	}

	account.Balance = new(uint256.Int).Sub(balance, cmd.Amount)
	account.UpdatedAt = now
	if err := uc.Accounts.SaveAccount(ctx, account); err != nil {
		return StakeResult{}, err
	}
	if err := uc.appendStakeEvent(ctx, "stake.withdrawn", account, cmd.Amount, now); err != nil {
		return StakeResult{}, err
	}
	if err := uc.rememberRequest(ctx, cmd.IdempotencyKey, requestHash, account.Participant, now); err != nil {
		return StakeResult{}, err
	}

	logger.Info("stake withdrawn",
		"event", "stake_withdrawn",
		"module", "settlement-core/stake-ledger",
		"layer", "application",
		"participant", account.Participant,
		"amount", cmd.Amount.Dec(),
		"balance", account.Balance.Dec(),
	)
	return StakeResult{Account: account}, nil
}

func (uc StakeUseCase) checkReplay(
	ctx context.Context,
	key string,
	requestHash string,
	now time.Time,
) (StakeResult, bool, error) {
	record, found, err := uc.Idempotency.Get(ctx, key, now)
	if err != nil {
		return StakeResult{}, false, err
	}
	if !found {
		return StakeResult{}, false, nil
	}
	if record.RequestHash != requestHash {
		return StakeResult{}, false, domainerrors.ErrIdempotencyConflict
	}
	account, accountFound, err := uc.Accounts.GetAccount(ctx, record.Participant)
	if err != nil {
		return StakeResult{}, false, err
	}
	if !accountFound {
		return StakeResult{}, false, domainerrors.ErrAccountNotFound
	}
	return StakeResult{Account: account, Replayed: true}, true, nil
}

func (uc StakeUseCase) rememberRequest(
	ctx context.Context,
	key string,
	requestHash string,
	participant string,
	now time.Time,
) error {
	ttl := uc.IdempotencyTTL
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return uc.Idempotency.Put(ctx, ports.IdempotencyRecord{
		Key:         strings.TrimSpace(key),
		RequestHash: requestHash,
		Participant: strings.TrimSpace(participant),
		ExpiresAt:   now.Add(ttl),
	})
}

func (uc StakeUseCase) appendStakeEvent(
	ctx context.Context,
	eventType string,
	account entities.StakeAccount,
	amount *uint256.Int,
	occurredAt time.Time,
) error {
	if uc.Outbox == nil {
		return nil
	}
	envelopeID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(map[string]any{
		"participant": account.Participant,
		"amount":      amount.Dec(),
		"balance":     account.BalanceOrZero().Dec(),
	})
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:          envelopeID,
		EventType:        eventType,
		OccurredAt:       occurredAt,
		SourceService:    "stake-ledger",
		SchemaVersion:    1,
		PartitionKeyPath: "participant",
		PartitionKey:     account.Participant,
		Data:             data,
	})
}

func (uc StakeUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}

func hashStakeCommand(op string, participant string, amount *uint256.Int) string {
	amountText := "0"
	if amount != nil {
		amountText = amount.Dec()
	}
	payload := map[string]string{
		"op":          op,
		"participant": strings.TrimSpace(participant),
		"amount":      amountText,
		"version":     strconv.Itoa(1),
	}
	raw, _ := json.Marshal(payload)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
