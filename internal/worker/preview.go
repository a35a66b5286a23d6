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

// PreviewWorker renders a short, silent, downscaled hover-preview clip
// via ffmpeg.
type PreviewWorker struct {
	base
	FFmpegBin string
}

// NewPreviewWorker builds a PreviewWorker.
func NewPreviewWorker(root, ffmpegBin string, resolver *artifact.Resolver, grace time.Duration) *PreviewWorker {
	return &PreviewWorker{
		base:      base{kind: artifact.KindPreview, toolClass: config.ToolClassFFmpeg, root: root, resolver: resolver, grace: grace},
		FFmpegBin: ffmpegBin,
	}
}

// Validate normalizes "durationSeconds" (default 6, max 30) and
// "width" (default 320).
func (w *PreviewWorker) Validate(params map[string]any) (map[string]any, error) {
	dur := 6.0
	if v, ok := params["durationSeconds"]; ok {
		f, ok := toFloat(v)
		if !ok || f <= 0 || f > 30 {
			return nil, fmt.Errorf("durationSeconds must be in (0, 30]")
		}
		dur = f
	}
	width := 320
	if v, ok := params["width"]; ok {
		f, ok := toFloat(v)
		if !ok || f < 64 {
			return nil, fmt.Errorf("width must be >= 64")
		}
		width = int(f)
	}
	return map[string]any{"durationSeconds": dur, "width": width}, nil
}

// Run transcodes a muted, downscaled preview clip starting a fixed
// offset into the source and publishes it as the kind's primary
// sidecar.
func (w *PreviewWorker) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	src, err := sourceAbsPath(req.MediaAbsPath)
	if err != nil {
		return RunResult{}, err
	}
	dur, _ := toFloat(req.Params["durationSeconds"])
	width, _ := toFloat(req.Params["width"])

	sidecars, err := w.Plan(req.MediaRelPath, req.Params)
	if err != nil {
		return RunResult{}, err
	}

	const previewStartOffset = 5 * time.Second

	tmp := filepath.Join(req.Workspace, "preview.mp4")
	args := []string{
		"-y", "-ss", fmt.Sprintf("%.3f", previewStartOffset.Seconds()), "-i", src,
		"-t", fmt.Sprintf("%.3f", dur),
		"-an", "-vf", fmt.Sprintf("scale=%d:-2", int(width)),
		"-c:v", "libx264", "-preset", "veryfast", "-crf", "28",
		"-movflags", "+faststart", tmp,
	}
	if err := runTool(ctx, w.FFmpegBin, args, w.grace); err != nil {
		return RunResult{}, err
	}
	if err := mustNonEmpty(tmp); err != nil {
		return RunResult{}, err
	}

	if err := w.publish(sidecars[0], tmp); err != nil {
		return RunResult{}, fmt.Errorf("publish preview: %w", err)
	}
	if req.Report != nil {
		req.Report(1, 1, "")
	}
	return RunResult{Sidecars: sidecars}, nil
}
