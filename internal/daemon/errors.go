// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import "errors"

var (
	// ErrMissingLogger reports a missing logger. Deps.Validate does not
	// check the logger and never returns it.
	ErrMissingLogger = errors.New("logger is required")

	// ErrMissingAPIHandler is returned by Deps.Validate when no API
	// handler is set.
	ErrMissingAPIHandler = errors.New("API handler is required")

	// ErrMissingScheduler is returned by Deps.Validate when no scheduler
	// is set.
	ErrMissingScheduler = errors.New("scheduler is required")

	// ErrMissingManager is returned when an App is created without a
	// Manager to delegate server lifecycle to.
	ErrMissingManager = errors.New("manager is required")

	// ErrManagerNotStarted is returned by Shutdown on a manager that
	// never completed Start.
	ErrManagerNotStarted = errors.New("manager not started")
)
