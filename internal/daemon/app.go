// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mediavault/core/internal/config"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// App supervises every long-running subsystem of the process: the
// Manager's HTTP servers, the job scheduler's admission loop, the
// periodic library rescan, and config hot-reload (file watch + SIGHUP).
// Grounded on the teacher's errgroup-supervised App: each subsystem is
// a goroutine in the same errgroup, so any one failing (or ctx being
// canceled) tears the rest down together.
type App struct {
	logger    zerolog.Logger
	manager   Manager
	deps      Deps
	cfgHolder *config.Holder

	reloadSignal os.Signal
}

// NewApp builds an App from deps. reloadSignal defaults to SIGHUP when
// nil.
func NewApp(deps Deps, manager Manager, reloadSignal os.Signal) (*App, error) {
	if manager == nil {
		return nil, ErrMissingManager
	}
	if reloadSignal == nil {
		reloadSignal = syscall.SIGHUP
	}
	return &App{
		logger:       deps.Logger.With().Str("component", "app").Logger(),
		manager:      manager,
		deps:         deps,
		cfgHolder:    deps.CfgHolder,
		reloadSignal: reloadSignal,
	}, nil
}

// Run blocks until ctx is canceled or any supervised subsystem returns
// an error, then tears every subsystem down.
func (a *App) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if a.cfgHolder != nil {
		g.Go(func() error {
			if err := a.cfgHolder.StartWatcher(ctx); err != nil {
				a.logger.Warn().Err(err).Msg("config watcher failed to start; hot-reload from file changes disabled")
			}
			<-ctx.Done()
			a.cfgHolder.Stop()
			return nil
		})

		g.Go(func() error { return a.watchConfigChanges(ctx) })
		g.Go(func() error { return a.watchReloadSignal(ctx) })
	}

	if a.deps.Scheduler != nil {
		g.Go(func() error { return a.deps.Scheduler.Run(ctx) })
	}

	if a.deps.Media != nil && a.deps.RescanInterval > 0 {
		g.Go(func() error { return a.runRescanLoop(ctx) })
	}

	g.Go(func() error { return a.manager.Start(ctx) })

	return g.Wait()
}

// watchConfigChanges applies every config update the holder publishes
// (from a file change or a SIGHUP reload) to the live scheduler.
func (a *App) watchConfigChanges(ctx context.Context) error {
	ch := make(chan config.AppConfig, 1)
	a.cfgHolder.RegisterListener(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg := <-ch:
			a.applyConfig(cfg)
		}
	}
}

func (a *App) applyConfig(cfg config.AppConfig) {
	if a.deps.Scheduler == nil {
		return
	}
	a.logger.Info().
		Int("global_max", cfg.GlobalMaxConcurrency).
		Msg("applying reloaded concurrency limits")
	a.deps.Scheduler.SetGlobalMax(cfg.GlobalMaxConcurrency)
	for class, n := range cfg.ToolCaps {
		a.deps.Scheduler.SetToolCap(class, n)
	}
}

// watchReloadSignal triggers a manual config.Holder.Reload on receipt
// of reloadSignal (SIGHUP by default), the common daemon convention for
// reloading config without restarting the process.
func (a *App) watchReloadSignal(ctx context.Context) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, a.reloadSignal)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sigCh:
			a.logger.Info().Msg("reload signal received")
			if err := a.cfgHolder.Reload(ctx); err != nil {
				a.logger.Error().Err(err).Msg("config reload failed")
			}
		}
	}
}

// runRescanLoop triggers a full library scan on every tick of
// RescanInterval, keeping the media inventory current without an
// external cron.
func (a *App) runRescanLoop(ctx context.Context) error {
	ticker := time.NewTicker(a.deps.RescanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			result, err := a.deps.Media.TriggerScan(ctx)
			if err != nil {
				a.logger.Error().Err(err).Msg("periodic library scan failed")
				continue
			}
			a.logger.Info().
				Int("inserted", result.Inserted).
				Int("updated", result.Updated).
				Int("removed", result.Removed).
				Msg("periodic library scan completed")
		}
	}
}
