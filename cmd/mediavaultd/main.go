// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command mediavaultd is the composition root: it loads configuration,
// wires the media inventory, artifact pipeline, job scheduler and HTTP
// layer together, and runs them under internal/daemon until signaled
// to stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/mediavault/core/internal/applog"
	"github.com/mediavault/core/internal/artifact"
	"github.com/mediavault/core/internal/bus"
	"github.com/mediavault/core/internal/config"
	"github.com/mediavault/core/internal/coverage"
	"github.com/mediavault/core/internal/daemon"
	"github.com/mediavault/core/internal/httpapi"
	"github.com/mediavault/core/internal/job"
	jobstore "github.com/mediavault/core/internal/job/store"
	"github.com/mediavault/core/internal/media"
	"github.com/mediavault/core/internal/orphan"
	"github.com/mediavault/core/internal/telemetry"
	"github.com/mediavault/core/internal/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	version   = "v0.1.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	applog.Configure(applog.Config{Level: "info", Service: "mediavaultd", Version: version})
	logger := applog.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	effectiveConfigPath := strings.TrimSpace(*configPath)
	loader := config.NewLoader(effectiveConfigPath, version)
	cfg, err := loader.Load()
	if err != nil {
		logger.Fatal().Err(err).Str("event", "config.load_failed").Msg("failed to load configuration")
	}

	applog.Configure(applog.Config{Level: cfg.LogLevel, Service: cfg.LogService, Version: version})
	logger = applog.WithComponent("main")

	cfgHolder := config.NewHolder(cfg, loader, effectiveConfigPath)

	logger.Info().
		Str("event", "startup").
		Str("version", version).
		Str("commit", commit).
		Str("library_root", cfg.LibraryRoot).
		Str("addr", cfg.HTTPListenAddr).
		Str("store_backend", cfg.StoreBackend).
		Msg("starting mediavaultd")

	tracerProvider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.TracingEnabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: version,
		Environment:    cfg.TracingEnvironment,
		ExporterType:   cfg.TracingExporter,
		Endpoint:       cfg.TracingEndpoint,
		SamplingRate:   cfg.TracingSamplingRate,
	})
	if err != nil {
		logger.Fatal().Err(err).Str("event", "telemetry.init_failed").Msg("failed to initialize tracing")
	}

	mediaDBPath := filepath.Join(cfg.DataDir, "media.db")
	mediaStore, err := media.NewStore(mediaDBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "media.store.open_failed").Msg("failed to open media inventory store")
	}

	resolver := artifact.NewResolver(cfg.LibraryRoot)
	probe := artifact.NewProbe(cfg.LibraryRoot, resolver, cfg.StalenessTolerance)
	cache := artifact.NewCache(probe, cfg.StatusCacheTTL)

	eventBus := bus.NewMemoryBus()
	coverageAgg := coverage.NewAggregator(nil, cache) // Media is set below once Service exists.

	publisher := &inventoryPublisher{cache: cache, coverage: coverageAgg}
	scanner := media.NewScanner(mediaStore, cfg.LibraryRoot, cfg.LibraryDepth, nil)
	mediaSvc := media.NewService(mediaStore, scanner, publisher)
	coverageAgg.Media = mediaSvc
	go coverageAgg.RunBusInvalidation(ctx, eventBus)

	registry := worker.NewRegistry()
	registry.Register(worker.NewMetadataWorker(cfg.LibraryRoot, cfg.FFprobeBin, resolver, cfg.CancelGrace))
	registry.Register(worker.NewThumbnailWorker(cfg.LibraryRoot, cfg.FFmpegBin, resolver, cfg.CancelGrace))
	registry.Register(worker.NewPreviewWorker(cfg.LibraryRoot, cfg.FFmpegBin, resolver, cfg.CancelGrace))
	registry.Register(worker.NewSpritesWorker(cfg.LibraryRoot, cfg.FFmpegBin, cfg.FFprobeBin, resolver, cfg.CancelGrace))
	registry.Register(worker.NewHeatmapsWorker(cfg.LibraryRoot, cfg.FFmpegBin, resolver, cfg.CancelGrace))
	registry.Register(worker.NewMarkersWorker(cfg.LibraryRoot, cfg.FFmpegBin, resolver, cfg.CancelGrace))
	registry.Register(worker.NewPhashWorker(cfg.LibraryRoot, cfg.FFmpegBin, resolver, cfg.CancelGrace))
	registry.Register(worker.NewSubtitlesWorker(cfg.LibraryRoot, cfg.SubtitleBin, nil, resolver, cfg.CancelGrace))
	registry.Register(worker.NewFacesWorker(cfg.LibraryRoot, cfg.FaceBin, nil, resolver, cfg.CancelGrace))
	registry.Register(worker.NewEmbeddingsWorker(cfg.LibraryRoot, cfg.EmbeddingBin, nil, resolver, cfg.CancelGrace))

	jobStore, err := newJobStore(cfg)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "job.store.open_failed").Msg("failed to open job store")
	}
	if err := jobStore.LoadNonTerminalAsPaused(ctx); err != nil {
		logger.Error().Err(err).Msg("failed to reset non-terminal jobs from a previous run")
	}

	scheduler := job.NewScheduler(cfg.LibraryRoot, jobStore, registry, eventBus, cache, cfg.GlobalMaxConcurrency, cfg.ToolCaps, cfg.ToolTimeouts, cfg.CancelGrace)
	planner := &job.Planner{Media: mediaSvc, Resolver: resolver, Cache: cache, Scheduler: scheduler}
	orphanScanner := orphan.NewScanner(cfg.LibraryRoot, resolver, mediaSvc)

	apiServer := &httpapi.Server{
		Config:    cfg,
		Media:     mediaSvc,
		Resolver:  resolver,
		Cache:     cache,
		Store:     jobStore,
		Scheduler: scheduler,
		Planner:   planner,
		Bus:       eventBus,
		Coverage:  coverageAgg,
		Orphans:   orphanScanner,
	}

	deps := daemon.Deps{
		Logger:         logger,
		Config:         cfg,
		APIHandler:     apiServer.NewRouter(),
		MetricsHandler: promhttp.Handler(),
		Scheduler:      scheduler,
		Media:          mediaSvc,
		CfgHolder:      cfgHolder,
		RescanInterval: cfg.StalenessTolerance,
	}

	mgr, err := daemon.NewManager(deps)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "manager.creation_failed").Msg("failed to create daemon manager")
	}

	app, err := daemon.NewApp(deps, mgr, syscall.SIGHUP)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "app.creation_failed").Msg("failed to create daemon app")
	}

	mgr.RegisterShutdownHook("scheduler-drain", func(shutdownCtx context.Context) error {
		ids, err := scheduler.CancelQueuedAll(shutdownCtx)
		if err != nil {
			return err
		}
		logger.Info().Int("canceled_queued", len(ids)).Msg("drained job queue on shutdown")
		return nil
	})
	mgr.RegisterShutdownHook("tracer-shutdown", func(shutdownCtx context.Context) error {
		return tracerProvider.Shutdown(shutdownCtx)
	})

	if err := app.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Fatal().Err(err).Str("event", "app.failed").Msg("mediavaultd exited with an error")
	}

	logger.Info().Msg("mediavaultd exiting")
}

func newJobStore(cfg config.AppConfig) (jobstore.Store, error) {
	if cfg.StoreBackend == "sqlite" {
		return jobstore.NewSQLiteStore(cfg.StorePath, cfg.StoreRetentionHorizon)
	}
	return jobstore.NewMemoryStore(), nil
}

// inventoryPublisher bridges media.Service's narrow Publisher
// interface to the two collaborators that actually care about
// inventory changes: the artifact status cache (drop stale entries for
// a removed file) and the coverage aggregator (invalidate the changed
// file's directory).
type inventoryPublisher struct {
	cache    *artifact.Cache
	coverage *coverage.Aggregator
}

func (p *inventoryPublisher) Publish(ev media.Event) {
	if ev.Type == media.EventRemoved {
		p.cache.Drop(ev.RelPath)
	}
	p.coverage.OnMediaEvent(ev)
}
