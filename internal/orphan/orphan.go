// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package orphan implements the Orphan & Repair Engine (C10): scanning
// for sidecars whose originating media file no longer exists under
// the expected stem, ranking candidate repair targets, and applying a
// chosen repair as an atomic sidecar move.
package orphan

import "github.com/mediavault/core/internal/artifact"

// State is the per-orphan repair state machine: orphan -> repairing
// -> (moved | skipped | failed).
type State string

const (
	StateOrphan    State = "orphan"
	StateRepairing State = "repairing"
	StateMoved     State = "moved"
	StateSkipped   State = "skipped"
	StateFailed    State = "failed"
)

// Entry is one sidecar found under root with no matching MediaFile at
// its inferred stem.
type Entry struct {
	SidecarPath string // root-relative, POSIX path to the orphaned sidecar
	MediaDir    string // root-relative directory the sidecar's media file would live in
	Kind        artifact.Kind
	Stem        string
}

// Suggestion is a ranked repair candidate for one Entry.
type Suggestion struct {
	Entry         Entry
	TargetRelPath string // root-relative path of the candidate media file
	Confidence    float64
	Strategy      string
}

// Result reports the outcome of one Apply call.
type Result struct {
	Entry Entry
	State State
	Error string
}
