// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package worker implements the uniform artifact-producer contract
// (C4) and the concrete ffmpeg/ffprobe-backed producers plus the
// external-tool stubs for subtitles, faces and embeddings.
package worker

import (
	"context"
	"errors"

	"github.com/mediavault/core/internal/artifact"
)

// ErrCanceled is returned by Run when ctx is canceled before the
// worker publishes any sidecar.
var ErrCanceled = errors.New("worker canceled")

// Progress reports generation progress for a running job; note is
// optional free-form detail shown to the UI.
type Progress func(processed, total int, note string)

// RunRequest carries everything a worker needs to produce one
// artifact for one media file.
type RunRequest struct {
	// MediaRelPath is the media file's root-relative, POSIX path.
	MediaRelPath string
	// MediaAbsPath is the same file's absolute path on disk.
	MediaAbsPath string
	// Params is the normalized parameter map returned by Validate.
	Params map[string]any
	// Workspace is a temporary directory, unique to this run, that is
	// removed after Run returns.
	Workspace string
	// Report streams progress updates; may be nil.
	Report Progress
}

// RunResult is the opaque result of a successful run, surfaced to the
// job record's `result` field for API consumers.
type RunResult struct {
	Sidecars []string
	Detail   map[string]any
}

// Worker is the uniform contract every artifact producer implements.
// The scheduler treats every Worker identically regardless of kind.
type Worker interface {
	// Kind returns the ArtifactKind this worker produces.
	Kind() artifact.Kind
	// ToolClass returns the source-tool class used for concurrency
	// derating (spec.md §3): one of ffmpeg/ffprobe/subtitle-backend/
	// face-backend/pure.
	ToolClass() string
	// Validate normalizes and checks params, returning a typed error
	// for anything Run could not act on.
	Validate(params map[string]any) (map[string]any, error)
	// Plan returns the sidecars Run is expected to publish on success,
	// used by probes and by cleanup after a failed/canceled run.
	Plan(mediaRelPath string, params map[string]any) ([]string, error)
	// Run produces the artifact. On success every sidecar named by
	// Plan exists, is nonzero, and has mtime >= source mtime. On
	// cancellation or error, no sidecar is published.
	Run(ctx context.Context, req RunRequest) (RunResult, error)
}
