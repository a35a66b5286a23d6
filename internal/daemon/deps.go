// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon wires the composition root's collaborators into a
// running process: an http.Server pair (API + metrics) managed by
// Manager, and the background subsystems (scheduler admission loop,
// config watcher, periodic library rescan) supervised by App.
// Grounded on the teacher's internal/daemon package: the same
// Deps-validate-then-build-Manager shape and LIFO shutdown-hook list,
// generalized from xg2g's proxy/DVR/HDHR surface to this service's
// scheduler+HTTP surface.
package daemon

import (
	"fmt"
	"net/http"
	"time"

	"github.com/mediavault/core/internal/config"
	"github.com/mediavault/core/internal/job"
	"github.com/mediavault/core/internal/media"
	"github.com/rs/zerolog"
)

// Deps is every collaborator the daemon layer needs but does not
// construct itself; the composition root (cmd/mediavaultd) builds
// these and hands them to NewManager/NewApp.
type Deps struct {
	Logger zerolog.Logger
	Config config.AppConfig

	// APIHandler serves every endpoint in spec.md §6 (built by
	// httpapi.Server.NewRouter).
	APIHandler http.Handler

	// MetricsHandler serves the Prometheus exposition format; nil
	// disables the metrics server regardless of Config.MetricsEnabled.
	MetricsHandler http.Handler

	// Scheduler drives job admission; App.Run runs its admission loop.
	// Manager.Shutdown does not touch it: draining is left to shutdown
	// hooks registered by the composition root.
	Scheduler *job.Scheduler

	// Media triggers periodic library rescans from App.Run, if
	// RescanInterval is positive.
	Media *media.Service

	// CfgHolder enables hot-reload wiring (file watcher + SIGHUP); nil
	// disables both, leaving the process config fixed for its lifetime.
	CfgHolder *config.Holder

	// RescanInterval schedules a periodic TriggerScan; <=0 disables it.
	RescanInterval time.Duration
}

// Validate checks that Deps carries everything Manager/App need to run.
func (d Deps) Validate() error {
	if d.APIHandler == nil {
		return ErrMissingAPIHandler
	}
	if d.Scheduler == nil {
		return ErrMissingScheduler
	}
	return nil
}

func (d Deps) String() string {
	return fmt.Sprintf("apiHandler=%t metricsHandler=%t rescanInterval=%s", d.APIHandler != nil, d.MetricsHandler != nil, d.RescanInterval)
}
