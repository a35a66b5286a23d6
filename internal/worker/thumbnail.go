// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mediavault/core/internal/artifact"
	"github.com/mediavault/core/internal/config"
)

// ThumbnailWorker extracts a single still frame as a JPEG via ffmpeg.
type ThumbnailWorker struct {
	base
	FFmpegBin string
}

// NewThumbnailWorker builds a ThumbnailWorker publishing under root
// via resolver, invoking ffmpegBin with the given cancellation grace.
func NewThumbnailWorker(root, ffmpegBin string, resolver *artifact.Resolver, grace time.Duration) *ThumbnailWorker {
	return &ThumbnailWorker{
		base:      base{kind: artifact.KindThumbnail, toolClass: config.ToolClassFFmpeg, root: root, resolver: resolver, grace: grace},
		FFmpegBin: ffmpegBin,
	}
}

// Validate normalizes the optional "atSeconds" offset (default 10.0),
// rejecting negative offsets.
func (w *ThumbnailWorker) Validate(params map[string]any) (map[string]any, error) {
	at := 10.0
	if v, ok := params["atSeconds"]; ok {
		f, ok := toFloat(v)
		if !ok || f < 0 {
			return nil, fmt.Errorf("atSeconds must be a non-negative number")
		}
		at = f
	}
	return map[string]any{"atSeconds": at}, nil
}

// Run extracts one frame at the requested offset and publishes it as
// the kind's primary sidecar.
func (w *ThumbnailWorker) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	src, err := sourceAbsPath(req.MediaAbsPath)
	if err != nil {
		return RunResult{}, err
	}
	at, _ := toFloat(req.Params["atSeconds"])

	sidecars, err := w.Plan(req.MediaRelPath, req.Params)
	if err != nil {
		return RunResult{}, err
	}

	tmp := filepath.Join(req.Workspace, "thumbnail.jpg")
	args := []string{
		"-y", "-ss", fmt.Sprintf("%.3f", at), "-i", src,
		"-frames:v", "1", "-q:v", "2", tmp,
	}
	if err := runTool(ctx, w.FFmpegBin, args, w.grace); err != nil {
		return RunResult{}, err
	}
	if err := mustNonEmpty(tmp); err != nil {
		return RunResult{}, err
	}

	if err := w.publish(sidecars[0], tmp); err != nil {
		return RunResult{}, fmt.Errorf("publish thumbnail: %w", err)
	}
	if req.Report != nil {
		req.Report(1, 1, "")
	}
	return RunResult{Sidecars: sidecars}, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func mustNonEmpty(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat output %s: %w", path, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("output %s is empty", path)
	}
	return nil
}
