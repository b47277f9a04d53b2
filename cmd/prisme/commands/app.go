package commands

import (
	"context"
	"fmt"

	"github.com/wonny/prisme/backend/internal/audit"
	"github.com/wonny/prisme/backend/internal/contracts"
	"github.com/wonny/prisme/backend/internal/external/yahoo"
	"github.com/wonny/prisme/backend/internal/extract"
	"github.com/wonny/prisme/backend/internal/metrics"
	"github.com/wonny/prisme/backend/internal/pipeline"
	"github.com/wonny/prisme/backend/internal/sink"
	"github.com/wonny/prisme/backend/internal/storage"
	"github.com/wonny/prisme/backend/internal/universe"
	"github.com/wonny/prisme/backend/pkg/config"
	"github.com/wonny/prisme/backend/pkg/database"
	"github.com/wonny/prisme/backend/pkg/httputil"
	"github.com/wonny/prisme/backend/pkg/logger"
	"github.com/wonny/prisme/backend/pkg/redis"
)

// app holds the wired ETL components shared by the commands
type app struct {
	cfg          *config.Config
	log          *logger.Logger
	store        storage.Store
	resolver     *universe.Resolver
	orchestrator *pipeline.Orchestrator
	runs         audit.RunReader
	metrics      *metrics.Registry

	closers []func()
}

// newApp wires storage, provider, sinks, recorders and the orchestrator
func newApp(ctx context.Context, cfg *config.Config, workers int) (*app, error) {
	log := logger.New(cfg)
	a := &app{
		cfg:      cfg,
		log:      log,
		resolver: universe.NewResolver(universe.DefaultUniverse()),
		metrics:  metrics.NewRegistry(),
	}

	// 1. Artifact storage
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("create artifact store: %w", err)
	}
	a.store = store

	// 2. Provider, optionally behind the Redis cache
	httpClient := httputil.New(cfg, log)
	var provider contracts.Provider = yahoo.NewClient(httpClient, log, cfg.Yahoo.BaseURL)

	rc, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, provider cache disabled")
		rc = redis.NewFromClient(nil)
	}
	a.closers = append(a.closers, func() { _ = rc.Close() })
	if rc.Enabled() {
		provider = extract.NewCachedProvider(provider, redis.NewCache(rc, "prisme"), cfg.Redis.CacheTTL, log)
		log.Info("Provider cache enabled")
	}

	// 3. Run recorders
	fileRecorder := audit.NewFileRecorder(store)
	recorders := audit.MultiRecorder{fileRecorder, a.metrics}
	a.runs = fileRecorder

	if cfg.Database.Enabled() {
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)

		repo := audit.NewRepository(db.Pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			a.close()
			return nil, err
		}
		recorders = append(recorders, repo)
		a.runs = repo
		log.Info("Run history persisted to database")
	}

	// 4. Pipeline
	if workers < 1 {
		workers = cfg.Pipeline.Workers
	}
	a.orchestrator = pipeline.New(
		a.resolver,
		extract.NewExtractor(provider),
		sink.NewRawSink(store, log),
		sink.NewInterimSink(store, log),
		sink.NewProcessedSink(store, log),
		recorders,
		log,
		pipeline.Options{Workers: workers},
	)

	return a, nil
}

// close releases connections in reverse order
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// universePath picks the flag value over UNIVERSE_CONFIG
func universePath(flagValue string, cfg *config.Config) string {
	if flagValue != "" {
		return flagValue
	}
	return cfg.Pipeline.UniverseConfig
}
