package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	stakeledger "quorum/contexts/settlement-core/stake-ledger"
	stakememory "quorum/contexts/settlement-core/stake-ledger/adapters/memory"
	stakepostgres "quorum/contexts/settlement-core/stake-ledger/adapters/postgres"
	stakequeries "quorum/contexts/settlement-core/stake-ledger/application/queries"
	stakeworkers "quorum/contexts/settlement-core/stake-ledger/application/workers"
	stakeports "quorum/contexts/settlement-core/stake-ledger/ports"
	superpositionengine "quorum/contexts/settlement-core/superposition-engine"
	enginememory "quorum/contexts/settlement-core/superposition-engine/adapters/memory"
	enginepostgres "quorum/contexts/settlement-core/superposition-engine/adapters/postgres"
	engineworkers "quorum/contexts/settlement-core/superposition-engine/application/workers"
	engineports "quorum/contexts/settlement-core/superposition-engine/ports"
	"quorum/internal/platform/config"
	"quorum/internal/platform/db"
	"quorum/internal/platform/httpserver"
	"quorum/internal/platform/messaging"
	"quorum/internal/platform/metrics"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres     *db.Postgres
	engineRelay  engineworkers.OutboxRelay
	stakeRelay   stakeworkers.OutboxRelay
	pollInterval time.Duration
	logger       *slog.Logger
}

// BuildAPI wires both settlement-core modules against one store and returns the
// HTTP composition. With an empty DSN everything runs on the in-memory adapters,
// which is the development and test configuration.
func BuildAPI(cfgPath string) (*APIApp, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")

	votingPeriod, err := cfg.ResolveVotingPeriod()
	if err != nil {
		return nil, err
	}
	idempotencyTTL, err := cfg.ResolveIdempotencyTTL()
	if err != nil {
		return nil, err
	}

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	if strings.TrimSpace(cfg.DatabaseDSN) == "" {
		stakeModule, engineModule := buildInMemoryModules(votingPeriod, idempotencyTTL, logger)
		return &APIApp{
			server: httpserver.New(stakeModule, engineModule, m, logger, cfg.Addr()),
			logger: logger,
		}, nil
	}

	pg, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}
	if err := stakepostgres.Migrate(pg.DB); err != nil {
		return nil, err
	}
	if err := enginepostgres.Migrate(pg.DB); err != nil {
		return nil, err
	}

	stakeRepo := stakepostgres.NewRepository(pg.DB, logger)
	engineRepo := enginepostgres.NewRepository(pg.DB, logger)

	// The engine reads stake straight from the ledger's repository and the
	// ledger blocks withdrawals against the engine's live vote commitments.
	// Both modules share one command gate: a vote's balance check and a
	// withdrawal's commitment check must never run side by side.
	gate := &sync.Mutex{}
	engineModule := superpositionengine.NewModule(superpositionengine.Dependencies{
		Proposals:    engineRepo,
		Events:       engineRepo,
		Votes:        engineRepo,
		Tallies:      engineRepo,
		Stake:        stakequeries.BalanceUseCase{Accounts: stakeRepo},
		Sequences:    engineRepo,
		Outbox:       engineRepo,
		Clock:        enginepostgres.SystemClock{},
		IDGen:        enginepostgres.UUIDGenerator{},
		VotingPeriod: votingPeriod,
		Gate:         gate,
		Logger:       logger,
	})
	stakeModule := stakeledger.NewModule(stakeledger.Dependencies{
		Accounts:       stakeRepo,
		Commitments:    engineModule.Tallies,
		Idempotency:    stakeRepo,
		Outbox:         stakeRepo,
		Clock:          stakepostgres.SystemClock{},
		IDGen:          stakepostgres.UUIDGenerator{},
		IdempotencyTTL: idempotencyTTL,
		Gate:           gate,
		Logger:         logger,
	})

	return &APIApp{
		server:   httpserver.New(stakeModule, engineModule, m, logger, cfg.Addr()),
		postgres: pg,
		logger:   logger,
	}, nil
}

func buildInMemoryModules(
	votingPeriod time.Duration,
	idempotencyTTL time.Duration,
	logger *slog.Logger,
) (stakeledger.Module, superpositionengine.Module) {
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
		Clock:        engineStore,
		IDGen:        engineStore,
		VotingPeriod: votingPeriod,
		Gate:         gate,
		Logger:       logger,
	})
	engineModule.Store = engineStore

	stakeModule := stakeledger.NewModule(stakeledger.Dependencies{
		Accounts:       stakeStore,
		Commitments:    engineModule.Tallies,
		Idempotency:    stakeStore,
		Outbox:         stakeStore,
		Clock:          stakeStore,
		IDGen:          stakeStore,
		IdempotencyTTL: idempotencyTTL,
		Gate:           gate,
		Logger:         logger,
	})
	stakeModule.Store = stakeStore

	return stakeModule, engineModule
}

// BuildWorker assembles the outbox relays for both modules around the shared
// broker. The relays need durable rows, so a DSN is mandatory here.
func BuildWorker(cfgPath string) (*WorkerApp, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.DatabaseDSN) == "" {
		return nil, errors.New("QUORUM_DATABASE_DSN is required")
	}

	pollInterval, err := cfg.ResolvePollInterval()
	if err != nil {
		return nil, err
	}

	pg, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		return nil, err
	}

	kafka, err := messaging.NewKafka(nil, logger)
	if err != nil {
		return nil, err
	}

	batchSize := cfg.OutboxBatchSize
	if batchSize <= 0 {
		batchSize = 100
	}

	engineRepo := enginepostgres.NewRepository(pg.DB, logger)
	stakeRepo := stakepostgres.NewRepository(pg.DB, logger)
	return &WorkerApp{
		postgres: pg,
		engineRelay: engineworkers.OutboxRelay{
			Outbox:    engineRepo,
			Publisher: kafka,
			Clock:     enginepostgres.SystemClock{},
			BatchSize: batchSize,
			Logger:    logger,
		},
		stakeRelay: stakeworkers.OutboxRelay{
			Outbox:    stakeRepo,
			Publisher: stakePublisher{bus: kafka},
			Clock:     stakepostgres.SystemClock{},
			BatchSize: batchSize,
			Logger:    logger,
		},
		pollInterval: pollInterval,
		logger:       logger,
	}, nil
}

// stakePublisher bridges the ledger's envelope shape onto the shared bus.
type stakePublisher struct {
	bus engineports.EventPublisher
}

func (p stakePublisher) Publish(ctx context.Context, topic string, event stakeports.EventEnvelope) error {
	return p.bus.Publish(ctx, topic, engineports.EventEnvelope{
		EventID:          event.EventID,
		EventType:        event.EventType,
		OccurredAt:       event.OccurredAt,
		SourceService:    event.SourceService,
		TraceID:          event.TraceID,
		SchemaVersion:    event.SchemaVersion,
		PartitionKeyPath: event.PartitionKeyPath,
		PartitionKey:     event.PartitionKey,
		Data:             event.Data,
	})
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"poll_interval", w.pollInterval.String(),
	)

	for {
		if err := w.engineRelay.RunOnce(ctx); err != nil {
			return err
		}
		if err := w.stakeRelay.RunOnce(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}
