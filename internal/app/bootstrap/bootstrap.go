// Package bootstrap is the composition root. Construction and wiring live
// here so module code stays framework-agnostic.
package bootstrap

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	consensusengine "overlap/contexts/meetup-live/consensus-engine"
	firestoreadapter "overlap/contexts/meetup-live/consensus-engine/adapters/firestore"
	"overlap/contexts/meetup-live/consensus-engine/adapters/memory"
	postgresadapter "overlap/contexts/meetup-live/consensus-engine/adapters/postgres"
	wsadapter "overlap/contexts/meetup-live/consensus-engine/adapters/ws"
	"overlap/internal/platform/config"
	"overlap/internal/platform/db"
	"overlap/internal/platform/httpserver"
	"overlap/internal/platform/messaging"
)

type APIApp struct {
	server        *httpserver.Server
	module        consensusengine.Module
	relayInterval time.Duration
	relayEnabled  bool
	closers       []io.Closer
	logger        *slog.Logger
}

type WorkerApp struct {
	module       consensusengine.Module
	pollInterval time.Duration
	closers      []io.Closer
	logger       *slog.Logger
}

func BuildAPI(ctx context.Context) (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	bus := messaging.NewBus(logger)

	module, closers, err := buildModule(ctx, cfg, bus, logger)
	if err != nil {
		return nil, err
	}

	var streams *wsadapter.Handler
	if cfg.EnableSessionStreams {
		streams = wsadapter.NewHandler(module.Subscriptions, logger)
	}

	server := httpserver.New(module, streams, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:        server,
		module:        module,
		relayInterval: cfg.OutboxRelayInterval,
		relayEnabled:  cfg.EnableOutboxRelay,
		closers:       closers,
		logger:        logger,
	}, nil
}

func BuildWorker(ctx context.Context) (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	bus := messaging.NewBus(logger)

	module, closers, err := buildModule(ctx, cfg, bus, logger)
	if err != nil {
		return nil, err
	}
	module.Relay.BatchSize = cfg.OutboxBatchSize

	return &WorkerApp{
		module:       module,
		pollInterval: cfg.OutboxRelayInterval,
		closers:      closers,
		logger:       logger,
	}, nil
}

func buildModule(
	ctx context.Context,
	cfg config.Config,
	bus *messaging.Bus,
	logger *slog.Logger,
) (consensusengine.Module, []io.Closer, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		if strings.TrimSpace(cfg.PostgresDSN) == "" {
			return consensusengine.Module{}, nil, errors.New("POSTGRES_DSN is required")
		}
		pg, err := db.Connect(cfg.PostgresDSN)
		if err != nil {
			return consensusengine.Module{}, nil, err
		}
		repo := postgresadapter.NewRepository(pg.DB, logger)
		if err := repo.AutoMigrate(); err != nil {
			_ = pg.Close()
			return consensusengine.Module{}, nil, err
		}
		module := consensusengine.NewModule(consensusengine.Dependencies{
			Sessions:  repo,
			Votes:     repo,
			Outbox:    repo,
			OutboxSrc: repo,
			Publisher: bus,
			Bus:       bus,
			Clock:     postgresadapter.SystemClock{},
			IDGen:     postgresadapter.UUIDGenerator{},
			Logger:    logger,
		})
		return module, []io.Closer{pg}, nil

	case config.BackendFirestore:
		fs, err := db.ConnectFirestore(ctx, cfg.FirestoreProjectID, cfg.GoogleCredentialsJSON)
		if err != nil {
			return consensusengine.Module{}, nil, err
		}
		repo := firestoreadapter.NewRepository(fs.Client, logger)
		module := consensusengine.NewModule(consensusengine.Dependencies{
			Sessions:  repo,
			Votes:     repo,
			Outbox:    repo,
			OutboxSrc: repo,
			Publisher: bus,
			Bus:       bus,
			Clock:     firestoreadapter.SystemClock{},
			IDGen:     firestoreadapter.UUIDGenerator{},
			Logger:    logger,
		})
		return module, []io.Closer{fs}, nil

	default:
		store := memory.NewStore()
		module := consensusengine.NewModule(consensusengine.Dependencies{
			Sessions:  store,
			Votes:     store,
			Outbox:    store,
			OutboxSrc: store,
			Publisher: bus,
			Bus:       bus,
			Clock:     store,
			IDGen:     store,
			Logger:    logger,
		})
		module.Store = store
		return module, nil, nil
	}
}

func (a *APIApp) Run(ctx context.Context) error {
	if a.relayEnabled {
		// The bus is in-process, so streams only see events relayed inside
		// this process.
		go a.module.Relay.Run(ctx, a.relayInterval)
	}
	a.logger.Info("api app started",
		"event", "bootstrap_api_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
	)
	return a.server.Start()
}

func (a *APIApp) Close() error {
	return closeAll(a.closers)
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
		// RunOnce already logged the failure; pending rows stay queued for
		// the next tick.
		_ = w.module.Relay.RunOnce(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	return closeAll(w.closers)
}

func closeAll(closers []io.Closer) error {
	var firstErr error
	for _, closer := range closers {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
