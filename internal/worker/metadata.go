// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/mediavault/core/internal/artifact"
	"github.com/mediavault/core/internal/config"
	"github.com/mediavault/core/internal/procgroup"
)

// MetadataWorker extracts container/stream metadata via ffprobe and
// publishes ffprobe's own JSON report unmodified, so downstream
// consumers (coverage aggregation, repair heuristics) can rely on the
// full ffprobe schema rather than a lossy subset.
type MetadataWorker struct {
	base
	FFprobeBin string
}

// NewMetadataWorker builds a MetadataWorker.
func NewMetadataWorker(root, ffprobeBin string, resolver *artifact.Resolver, grace time.Duration) *MetadataWorker {
	return &MetadataWorker{
		base:       base{kind: artifact.KindMetadata, toolClass: config.ToolClassFFprobe, root: root, resolver: resolver, grace: grace},
		FFprobeBin: ffprobeBin,
	}
}

// Validate accepts no parameters; metadata extraction is unconditional.
func (w *MetadataWorker) Validate(params map[string]any) (map[string]any, error) {
	return map[string]any{}, nil
}

// Run invokes ffprobe for format+stream+chapter metadata and
// publishes its JSON output verbatim as the kind's primary sidecar.
func (w *MetadataWorker) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	src, err := sourceAbsPath(req.MediaAbsPath)
	if err != nil {
		return RunResult{}, err
	}

	sidecars, err := w.Plan(req.MediaRelPath, req.Params)
	if err != nil {
		return RunResult{}, err
	}

	args := []string{
		"-v", "error",
		"-show_format", "-show_streams", "-show_chapters",
		"-of", "json",
		src,
	}
	cmd := exec.CommandContext(ctx, w.FFprobeBin, args...) // #nosec G204
	procgroup.Set(cmd)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return RunResult{}, fmt.Errorf("ffprobe: %w", err)
	}

	var validated map[string]any
	if err := json.Unmarshal(out.Bytes(), &validated); err != nil {
		return RunResult{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	tmp := filepath.Join(req.Workspace, "metadata.json")
	if err := os.WriteFile(tmp, out.Bytes(), 0o644); err != nil {
		return RunResult{}, fmt.Errorf("write metadata: %w", err)
	}

	if err := w.publish(sidecars[0], tmp); err != nil {
		return RunResult{}, fmt.Errorf("publish metadata: %w", err)
	}
	if req.Report != nil {
		req.Report(1, 1, "")
	}
	return RunResult{Sidecars: sidecars, Detail: validated}, nil
}
