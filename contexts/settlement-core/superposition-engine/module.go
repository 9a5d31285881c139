package superpositionengine

import (
	"log/slog"
	"sync"
	"time"

	"quorum/contexts/settlement-core/superposition-engine/adapters/effects"
	httpadapter "quorum/contexts/settlement-core/superposition-engine/adapters/http"
	"quorum/contexts/settlement-core/superposition-engine/adapters/memory"
	"quorum/contexts/settlement-core/superposition-engine/application/commands"
	"quorum/contexts/settlement-core/superposition-engine/application/queries"
	"quorum/contexts/settlement-core/superposition-engine/ports"
)

type Module struct {
	Handler httpadapter.Handler
	Tallies queries.TallyUseCase
	Store   *memory.Store
}

type Dependencies struct {
	Proposals    ports.ProposalRepository
	Events       ports.EventRepository
	Votes        ports.VoteRepository
	Tallies      ports.TallyStore
	Stake        ports.StakeReader
	Effects      ports.EffectExecutor
	Sequences    ports.SequenceAllocator
	Outbox       ports.OutboxWriter
	Clock        ports.Clock
	IDGen        ports.IDGenerator
	VotingPeriod time.Duration
	// Gate serializes mutating commands. When the stake ledger shares the
	// process, bootstrap passes the same mutex to both modules so a vote's
	// balance check and a withdrawal's commitment check cannot interleave.
	Gate   *sync.Mutex
	Logger *slog.Logger
}

// NewModule wires the use cases around one shared mutex so every mutating
// command on proposals, events, votes and measurement is serialized. The
// engine's consistency story depends on that single gate.
func NewModule(deps Dependencies) Module {
	gate := deps.Gate
	if gate == nil {
		gate = &sync.Mutex{}
	}
	if deps.Effects == nil {
		deps.Effects = effects.NewRegistry(deps.Logger)
	}
	proposalUseCase := commands.ProposalUseCase{
		Gate:      gate,
		Proposals: deps.Proposals,
		Sequences: deps.Sequences,
		Outbox:    deps.Outbox,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Logger:    deps.Logger,
	}
	eventUseCase := commands.EventUseCase{
		Gate:         gate,
		Events:       deps.Events,
		Proposals:    deps.Proposals,
		Sequences:    deps.Sequences,
		Outbox:       deps.Outbox,
		Clock:        deps.Clock,
		IDGen:        deps.IDGen,
		VotingPeriod: deps.VotingPeriod,
		Logger:       deps.Logger,
	}
	voteUseCase := commands.VoteUseCase{
		Gate:      gate,
		Events:    deps.Events,
		Proposals: deps.Proposals,
		Votes:     deps.Votes,
		Tallies:   deps.Tallies,
		Stake:     deps.Stake,
		Outbox:    deps.Outbox,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Logger:    deps.Logger,
	}
	measurementUseCase := commands.MeasurementUseCase{
		Gate:      gate,
		Events:    deps.Events,
		Proposals: deps.Proposals,
		Tallies:   deps.Tallies,
		Outbox:    deps.Outbox,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Logger:    deps.Logger,
	}
	executionUseCase := commands.ExecutionUseCase{
		Gate:      gate,
		Events:    deps.Events,
		Proposals: deps.Proposals,
		Effects:   deps.Effects,
		Outbox:    deps.Outbox,
		Clock:     deps.Clock,
		IDGen:     deps.IDGen,
		Logger:    deps.Logger,
	}
	tallyUseCase := queries.TallyUseCase{
		Events:    deps.Events,
		Proposals: deps.Proposals,
		Votes:     deps.Votes,
		Tallies:   deps.Tallies,
		Logger:    deps.Logger,
	}
	return Module{
		Handler: httpadapter.Handler{
			Proposals:    proposalUseCase,
			Events:       eventUseCase,
			Votes:        voteUseCase,
			Measurements: measurementUseCase,
			Executions:   executionUseCase,
			Tallies:      tallyUseCase,
			Logger:       deps.Logger,
		},
		Tallies: tallyUseCase,
	}
}

// NewInMemoryModule backs every port with the memory store. The stake reader
// reads balances seeded through Store.SetStakeBalance unless bootstrap
// rewires it to the stake ledger.
func NewInMemoryModule(votingPeriod time.Duration, logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Proposals:    store,
		Events:       store,
		Votes:        store,
		Tallies:      store,
		Stake:        store,
		Sequences:    store,
		Outbox:       store,
		Clock:        store,
		IDGen:        store,
		VotingPeriod: votingPeriod,
		Logger:       logger,
	})
	module.Store = store
	return module
}
