// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package store implements the Job record store (C5): append-and-
// mutate persistence keyed by job ID, with query-by-state and the
// bulk cancel/clear operations the scheduler and HTTP layer need.
package store

import (
	"context"
	"errors"

	"github.com/mediavault/core/internal/job"
)

// ErrNotFound is returned by Get/Update for an unknown job ID.
var ErrNotFound = errors.New("job not found")

// Store is the Job record store contract. Implementations must copy
// records in and out so callers cannot mutate store-owned state
// through a returned pointer.
type Store interface {
	// Enqueue inserts rec with the state it carries (StateQueued for
	// new jobs). rec.ID must already be set.
	Enqueue(ctx context.Context, rec *job.Record) error
	// Update loads the record for id, applies fn, and persists the
	// result. fn must enforce any state-transition invariants itself.
	Update(ctx context.Context, id string, fn func(*job.Record) error) (*job.Record, error)
	Get(ctx context.Context, id string) (*job.Record, error)
	List(ctx context.Context, f job.Filter) ([]*job.Record, error)
	// CancelQueuedAll transitions every StateQueued record (paused or
	// not) to StateCanceled and returns the affected IDs.
	CancelQueuedAll(ctx context.Context) ([]string, error)
	// ClearFinished deletes every terminal-state record and returns
	// the count removed.
	ClearFinished(ctx context.Context) (int, error)
	// LoadNonTerminalAsPaused is called once at startup: every record
	// left in a non-terminal state by an unclean shutdown is reset to
	// queued+paused so it is visible but never auto-resumed.
	LoadNonTerminalAsPaused(ctx context.Context) error
}
