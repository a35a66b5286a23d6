// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package job implements the Job record store (C5), the scheduler
// (C6), and the batch planner (C7): queueing, admission, execution,
// and cancellation of artifact-generation work.
package job

import "time"

// State is the closed set of job lifecycle states. Transitions are
// monotonic: queued -> starting -> running -> {completed, failed,
// canceled}; queued -> canceled directly; queued -> failed directly when
// no worker is registered for the task. The three listed last are
// terminal.
type State string

const (
	StateQueued    State = "queued"
	StateStarting  State = "starting"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCanceled  State = "canceled"
)

// Terminal reports whether s admits no further transitions.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCanceled:
		return true
	default:
		return false
	}
}

// Record is one Job as persisted by the store. ID is an opaque,
// creation-sortable string (a ULID).
type Record struct {
	ID       string
	Task     string // artifact kind name, or a composite batch label
	Target   string // root-relative media path, or "" for multi-file batches
	Artifact string // kind tag used for UI grouping; equals Task for single-kind jobs
	Params   map[string]any

	State  State
	Paused bool // only meaningful while State == StateQueued

	Created time.Time
	Started time.Time
	Ended   time.Time

	Progress  *int // 0..100, nil until first progress report
	Processed int
	Total     int

	Error  string
	Result map[string]any
}

// Filter narrows ListByState/Query results.
type Filter struct {
	States []State
	Target string
	Task   string
}
