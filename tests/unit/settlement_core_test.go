package unit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	stakeledger "quorum/contexts/settlement-core/stake-ledger"
	stakememory "quorum/contexts/settlement-core/stake-ledger/adapters/memory"
	stakequeries "quorum/contexts/settlement-core/stake-ledger/application/queries"
	stakeerrors "quorum/contexts/settlement-core/stake-ledger/domain/errors"
	stakehttp "quorum/contexts/settlement-core/stake-ledger/transport/http"
	superpositionengine "quorum/contexts/settlement-core/superposition-engine"
	enginememory "quorum/contexts/settlement-core/superposition-engine/adapters/memory"
	engineerrors "quorum/contexts/settlement-core/superposition-engine/domain/errors"
	enginehttp "quorum/contexts/settlement-core/superposition-engine/transport/http"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

type settlementFixture struct {
	clock  *fakeClock
	stake  stakeledger.Module
	engine superpositionengine.Module
}

// newSettlementFixture wires both modules the way the composition root does:
// the engine reads balances from the ledger, the ledger blocks withdrawals
// against the engine's live vote commitments, and both share one command gate.
func newSettlementFixture() *settlementFixture {
	clock := &fakeClock{now: time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)}
	engineStore := enginememory.NewStore()
	stakeStore := stakememory.NewStore()
	gate := &sync.Mutex{}

	engineModule := superpositionengine.NewModule(superpositionengine.Dependencies{
		Proposals:    engineStore,
		Events:       engineStore,
		Votes:        engineStore,
		Tallies:      engineStore,
		Stake:        stakequeries.BalanceUseCase{Accounts: stakeStore},
		Sequences:    engineStore,
		Outbox:       engineStore,
		Clock:        clock,
		IDGen:        engineStore,
		VotingPeriod: time.Hour,
		Gate:         gate,
	})
	engineModule.Store = engineStore

	stakeModule := stakeledger.NewModule(stakeledger.Dependencies{
		Accounts:       stakeStore,
		Commitments:    engineModule.Tallies,
		Idempotency:    stakeStore,
		Outbox:         stakeStore,
		Clock:          clock,
		IDGen:          stakeStore,
		IdempotencyTTL: 24 * time.Hour,
		Gate:           gate,
	})
	stakeModule.Store = stakeStore

	return &settlementFixture{
		clock:  clock,
		stake:  stakeModule,
		engine: engineModule,
	}
}

func (f *settlementFixture) deposit(t *testing.T, participant, key, amount string) stakehttp.AccountResponse {
	t.Helper()
	resp, err := f.stake.Handler.DepositHandler(context.Background(), participant, key, stakehttp.DepositRequest{
		Amount: amount,
	})
	if err != nil {
		t.Fatalf("deposit for %s failed: %v", participant, err)
	}
	return resp
}

func (f *settlementFixture) activeEvent(t *testing.T) (enginehttp.EventResponse, uint64, uint64) {
	t.Helper()
	p1, err := f.engine.Handler.CreateProposalHandler(context.Background(), "alice", enginehttp.CreateProposalRequest{
		Description: "route fees to treasury",
		EffectKind:  "treasury.route",
	})
	if err != nil {
		t.Fatalf("create proposal failed: %v", err)
	}
	p2, err := f.engine.Handler.CreateProposalHandler(context.Background(), "bob", enginehttp.CreateProposalRequest{
		Description: "burn fees",
		EffectKind:  "fees.burn",
	})
	if err != nil {
		t.Fatalf("create proposal failed: %v", err)
	}
	event, err := f.engine.Handler.CreateEventHandler(context.Background(), enginehttp.CreateEventRequest{
		ProposalIDs: []uint64{p1.ProposalID, p2.ProposalID},
	})
	if err != nil {
		t.Fatalf("create event failed: %v", err)
	}
	event, err = f.engine.Handler.ActivateEventHandler(context.Background(), event.EventID, enginehttp.ActivateEventRequest{})
	if err != nil {
		t.Fatalf("activate event failed: %v", err)
	}
	return event, p1.ProposalID, p2.ProposalID
}

func TestFullMeasurementLifecycle(t *testing.T) {
	f := newSettlementFixture()
	f.deposit(t, "dora", "dep-dora", "100")
	f.deposit(t, "erin", "dep-erin", "50")

	event, p1, p2 := f.activeEvent(t)

	if _, err := f.engine.Handler.CastVoteHandler(context.Background(), event.EventID, "dora", enginehttp.CastVoteRequest{
		ProposalID: p1,
		Weight:     "100",
	}); err != nil {
		t.Fatalf("dora vote failed: %v", err)
	}
	if _, err := f.engine.Handler.CastVoteHandler(context.Background(), event.EventID, "erin", enginehttp.CastVoteRequest{
		ProposalID: p2,
		Weight:     "50",
	}); err != nil {
		t.Fatalf("erin vote failed: %v", err)
	}

	tallies, err := f.engine.Handler.EventTalliesHandler(context.Background(), event.EventID)
	if err != nil {
		t.Fatalf("tallies failed: %v", err)
	}
	if tallies.Total != "150" {
		t.Fatalf("expected total 150, got %s", tallies.Total)
	}

	f.clock.now = f.clock.now.Add(2 * time.Hour)
	measurement, err := f.engine.Handler.MeasureEventHandler(context.Background(), event.EventID, enginehttp.MeasureEventRequest{
		Entropy: "0xdeadbeefcafe",
	})
	if err != nil {
		t.Fatalf("measurement failed: %v", err)
	}
	if measurement.WinnerID != p1 && measurement.WinnerID != p2 {
		t.Fatalf("winner %d is not a member", measurement.WinnerID)
	}
	if measurement.TotalTally != "150" {
		t.Fatalf("expected measured total 150, got %s", measurement.TotalTally)
	}

	if err := f.engine.Handler.ExecuteProposalHandler(context.Background(), measurement.WinnerID); err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	status, err := f.engine.Handler.EventStatusHandler(context.Background(), event.EventID)
	if err != nil {
		t.Fatalf("status failed: %v", err)
	}
	if status.State != "executed" {
		t.Fatalf("expected executed event, got %s", status.State)
	}

	err = f.engine.Handler.ExecuteProposalHandler(context.Background(), measurement.WinnerID)
	if !errors.Is(err, engineerrors.ErrInvalidState) {
		t.Fatalf("expected invalid state on repeat execute, got %v", err)
	}
}

func TestVoteWeightBoundByLedgerBalance(t *testing.T) {
	f := newSettlementFixture()
	f.deposit(t, "dora", "dep-dora", "30")
	event, p1, _ := f.activeEvent(t)

	_, err := f.engine.Handler.CastVoteHandler(context.Background(), event.EventID, "dora", enginehttp.CastVoteRequest{
		ProposalID: p1,
		Weight:     "31",
	})
	if !errors.Is(err, engineerrors.ErrInsufficientStake) {
		t.Fatalf("expected insufficient stake, got %v", err)
	}

	if _, err := f.engine.Handler.CastVoteHandler(context.Background(), event.EventID, "dora", enginehttp.CastVoteRequest{
		ProposalID: p1,
		Weight:     "30",
	}); err != nil {
		t.Fatalf("full-balance vote failed: %v", err)
	}
}

func TestWithdrawalBlockedByLiveVote(t *testing.T) {
	f := newSettlementFixture()
	f.deposit(t, "dora", "dep-dora", "100")
	event, p1, _ := f.activeEvent(t)

	if _, err := f.engine.Handler.CastVoteHandler(context.Background(), event.EventID, "dora", enginehttp.CastVoteRequest{
		ProposalID: p1,
		Weight:     "60",
	}); err != nil {
		t.Fatalf("vote failed: %v", err)
	}

	_, err := f.stake.Handler.WithdrawHandler(context.Background(), "dora", "wd-1", stakehttp.WithdrawRequest{
		Amount: "41",
	})
	if !errors.Is(err, stakeerrors.ErrStakeCommitted) {
		t.Fatalf("expected stake committed, got %v", err)
	}

	resp, err := f.stake.Handler.WithdrawHandler(context.Background(), "dora", "wd-2", stakehttp.WithdrawRequest{
		Amount: "40",
	})
	if err != nil {
		t.Fatalf("uncommitted withdrawal failed: %v", err)
	}
	if resp.Balance != "60" {
		t.Fatalf("expected balance 60, got %s", resp.Balance)
	}

	// Once the event is measured the commitment releases.
	f.clock.now = f.clock.now.Add(2 * time.Hour)
	if _, err := f.engine.Handler.MeasureEventHandler(context.Background(), event.EventID, enginehttp.MeasureEventRequest{
		Entropy: "c0ffee",
	}); err != nil {
		t.Fatalf("measurement failed: %v", err)
	}
	resp, err = f.stake.Handler.WithdrawHandler(context.Background(), "dora", "wd-3", stakehttp.WithdrawRequest{
		Amount: "60",
	})
	if err != nil {
		t.Fatalf("post-measurement withdrawal failed: %v", err)
	}
	if resp.Balance != "0" {
		t.Fatalf("expected drained balance, got %s", resp.Balance)
	}
}

// A full-weight vote and a full-balance withdrawal race for the same stake.
// The shared command gate serializes them, so whichever lands second must see
// the other's write: either the vote is rejected against the drained balance
// or the withdrawal is rejected against the live commitment. Both succeeding
// would leave a vote outweighing the stake behind it.
func TestConcurrentVoteAndWithdrawConservation(t *testing.T) {
	for i := 0; i < 50; i++ {
		f := newSettlementFixture()
		f.deposit(t, "dora", "dep-dora", "100")
		event, p1, _ := f.activeEvent(t)

		var wg sync.WaitGroup
		var voteErr, withdrawErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, voteErr = f.engine.Handler.CastVoteHandler(context.Background(), event.EventID, "dora", enginehttp.CastVoteRequest{
				ProposalID: p1,
				Weight:     "100",
			})
		}()
		go func() {
			defer wg.Done()
			_, withdrawErr = f.stake.Handler.WithdrawHandler(context.Background(), "dora", "wd-race", stakehttp.WithdrawRequest{
				Amount: "100",
			})
		}()
		wg.Wait()

		if voteErr == nil && withdrawErr == nil {
			t.Fatalf("round %d: vote and withdrawal both succeeded for the same stake", i)
		}
		if voteErr == nil {
			if !errors.Is(withdrawErr, stakeerrors.ErrStakeCommitted) {
				t.Fatalf("round %d: expected stake committed, got %v", i, withdrawErr)
			}
			balance, err := f.stake.Handler.BalanceHandler(context.Background(), "dora")
			if err != nil {
				t.Fatalf("round %d: balance failed: %v", i, err)
			}
			if balance.Balance != "100" {
				t.Fatalf("round %d: live vote of 100 backed by balance %s", i, balance.Balance)
			}
			continue
		}
		if !errors.Is(voteErr, engineerrors.ErrInsufficientStake) {
			t.Fatalf("round %d: expected insufficient stake, got %v", i, voteErr)
		}
		if withdrawErr != nil {
			t.Fatalf("round %d: withdrawal also failed: %v", i, withdrawErr)
		}
	}
}

func TestDepositReplayThroughHandler(t *testing.T) {
	f := newSettlementFixture()
	first := f.deposit(t, "dora", "dep-1", "100")
	replay := f.deposit(t, "dora", "dep-1", "100")

	if !replay.Replayed {
		t.Fatalf("expected replayed deposit")
	}
	if replay.Balance != first.Balance {
		t.Fatalf("replay moved balance: %s vs %s", replay.Balance, first.Balance)
	}

	balance, err := f.stake.Handler.BalanceHandler(context.Background(), "dora")
	if err != nil {
		t.Fatalf("balance failed: %v", err)
	}
	if balance.Balance != "100" {
		t.Fatalf("expected balance 100, got %s", balance.Balance)
	}
}

func TestMeasureRejectsBadEntropyEncoding(t *testing.T) {
	f := newSettlementFixture()
	event, _, _ := f.activeEvent(t)
	f.clock.now = f.clock.now.Add(2 * time.Hour)

	_, err := f.engine.Handler.MeasureEventHandler(context.Background(), event.EventID, enginehttp.MeasureEventRequest{
		Entropy: "",
	})
	if !errors.Is(err, engineerrors.ErrEntropyRequired) {
		t.Fatalf("expected entropy required, got %v", err)
	}
}
