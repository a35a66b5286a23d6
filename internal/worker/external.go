// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package worker

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/mediavault/core/internal/artifact"
	"github.com/mediavault/core/internal/config"
)

// externalBackend runs an arbitrary external binary against the
// source file and publishes whatever it writes at outputName inside
// the run workspace. Subtitle generation, face detection, and
// embedding extraction all delegate to an operator-supplied model
// binary rather than bundling one: this worker just plumbs the
// contract (source in, sidecar out) consistently across all three so
// the scheduler and cache treat them like any ffmpeg-class producer.
type externalBackend struct {
	base
	BinPath    string
	ExtraArgs  []string
	outputName string
}

// Validate accepts no parameters; external backends are configured at
// construction time via BinPath/ExtraArgs, not per-run.
func (w *externalBackend) Validate(params map[string]any) (map[string]any, error) {
	return map[string]any{}, nil
}

// Run invokes the configured binary as `<bin> [extraArgs...] <src> <out>`
// and publishes whatever it wrote at out as the kind's primary sidecar.
func (w *externalBackend) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	if w.BinPath == "" {
		return RunResult{}, fmt.Errorf("%s: no backend binary configured", w.kind)
	}
	src, err := sourceAbsPath(req.MediaAbsPath)
	if err != nil {
		return RunResult{}, err
	}

	sidecars, err := w.Plan(req.MediaRelPath, req.Params)
	if err != nil {
		return RunResult{}, err
	}

	tmp := filepath.Join(req.Workspace, w.outputName)
	args := append(append([]string{}, w.ExtraArgs...), src, tmp)
	if err := runTool(ctx, w.BinPath, args, w.grace); err != nil {
		return RunResult{}, err
	}
	if err := mustNonEmpty(tmp); err != nil {
		return RunResult{}, err
	}

	if err := w.publish(sidecars[0], tmp); err != nil {
		return RunResult{}, fmt.Errorf("publish %s: %w", w.kind, err)
	}
	if req.Report != nil {
		req.Report(1, 1, "")
	}
	return RunResult{Sidecars: sidecars}, nil
}

// SubtitlesWorker shells out to an operator-configured speech-to-text
// binary to produce an SRT transcript.
type SubtitlesWorker struct{ externalBackend }

// NewSubtitlesWorker builds a SubtitlesWorker invoking binPath with
// extraArgs ahead of the source/output positional arguments.
func NewSubtitlesWorker(root, binPath string, extraArgs []string, resolver *artifact.Resolver, grace time.Duration) *SubtitlesWorker {
	return &SubtitlesWorker{externalBackend{
		base:       base{kind: artifact.KindSubtitles, toolClass: config.ToolClassSubtitleBackend, root: root, resolver: resolver, grace: grace},
		BinPath:    binPath,
		ExtraArgs:  extraArgs,
		outputName: "subtitles.srt",
	}}
}

// FacesWorker shells out to an operator-configured face-detection
// binary to produce a JSON list of detected faces with bounding boxes
// and timestamps.
type FacesWorker struct{ externalBackend }

// NewFacesWorker builds a FacesWorker invoking binPath with extraArgs
// ahead of the source/output positional arguments.
func NewFacesWorker(root, binPath string, extraArgs []string, resolver *artifact.Resolver, grace time.Duration) *FacesWorker {
	return &FacesWorker{externalBackend{
		base:       base{kind: artifact.KindFaces, toolClass: config.ToolClassFaceBackend, root: root, resolver: resolver, grace: grace},
		BinPath:    binPath,
		ExtraArgs:  extraArgs,
		outputName: "faces.json",
	}}
}

// EmbeddingsWorker shells out to an operator-configured embedding
// model binary to produce a raw vector blob for similarity search.
type EmbeddingsWorker struct{ externalBackend }

// NewEmbeddingsWorker builds an EmbeddingsWorker invoking binPath with
// extraArgs ahead of the source/output positional arguments.
func NewEmbeddingsWorker(root, binPath string, extraArgs []string, resolver *artifact.Resolver, grace time.Duration) *EmbeddingsWorker {
	return &EmbeddingsWorker{externalBackend{
		base:       base{kind: artifact.KindEmbeddings, toolClass: config.ToolClassFaceBackend, root: root, resolver: resolver, grace: grace},
		BinPath:    binPath,
		ExtraArgs:  extraArgs,
		outputName: "embeddings.bin",
	}}
}
