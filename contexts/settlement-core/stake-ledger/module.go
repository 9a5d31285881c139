package stakeledger

import (
	"log/slog"
	"sync"
	"time"

	"quorum/contexts/settlement-core/stake-ledger/adapters/custody"
	httpadapter "quorum/contexts/settlement-core/stake-ledger/adapters/http"
	"quorum/contexts/settlement-core/stake-ledger/adapters/memory"
	"quorum/contexts/settlement-core/stake-ledger/application/commands"
	"quorum/contexts/settlement-core/stake-ledger/application/queries"
	"quorum/contexts/settlement-core/stake-ledger/ports"
)

type Module struct {
	Handler  httpadapter.Handler
	Balances queries.BalanceUseCase
	Store    *memory.Store
}

type Dependencies struct {
	Accounts       ports.AccountRepository
	Custody        ports.CustodyGateway
	Commitments    ports.CommitmentReader
	Idempotency    ports.IdempotencyStore
	Outbox         ports.OutboxWriter
	Clock          ports.Clock
	IDGen          ports.IDGenerator
	IdempotencyTTL time.Duration
	// Gate serializes deposits and withdrawals. Bootstrap passes the engine's
	// command gate here so the withdrawal commitment check and a concurrent
	// vote's balance check cannot both read stale state.
	Gate   *sync.Mutex
	Logger *slog.Logger
}

func NewModule(deps Dependencies) Module {
	gate := deps.Gate
	if gate == nil {
		gate = &sync.Mutex{}
	}
	if deps.Custody == nil {
		deps.Custody = custody.NewLoggingGateway(deps.Logger)
	}
	stakeUseCase := commands.StakeUseCase{
		Gate:           gate,
		Accounts:       deps.Accounts,
		Custody:        deps.Custody,
		Commitments:    deps.Commitments,
		Idempotency:    deps.Idempotency,
		Outbox:         deps.Outbox,
		Clock:          deps.Clock,
		IDGen:          deps.IDGen,
		IdempotencyTTL: deps.IdempotencyTTL,
		Logger:         deps.Logger,
	}
	balanceUseCase := queries.BalanceUseCase{
		Accounts: deps.Accounts,
	}
	return Module{
		Handler: httpadapter.Handler{
			Stake:    stakeUseCase,
			Balances: balanceUseCase,
			Logger:   deps.Logger,
		},
		Balances: balanceUseCase,
	}
}

func NewInMemoryModule(commitments ports.CommitmentReader, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Accounts:       store,
		Commitments:    commitments,
		Idempotency:    store,
		Outbox:         store,
		Clock:          store,
		IDGen:          store,
		IdempotencyTTL: 24 * time.Hour,
		Logger:         logger,
	})
	module.Store = store
	return module
}
