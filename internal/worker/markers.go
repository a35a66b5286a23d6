// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/mediavault/core/internal/artifact"
	"github.com/mediavault/core/internal/config"
	"github.com/mediavault/core/internal/procgroup"
)

// MarkersWorker detects scene-change timestamps via ffmpeg's scene
// select filter and publishes them as a JSON list, for chapter-like
// navigation markers.
type MarkersWorker struct {
	base
	FFmpegBin string
}

// NewMarkersWorker builds a MarkersWorker.
func NewMarkersWorker(root, ffmpegBin string, resolver *artifact.Resolver, grace time.Duration) *MarkersWorker {
	return &MarkersWorker{
		base:      base{kind: artifact.KindMarkers, toolClass: config.ToolClassFFmpeg, root: root, resolver: resolver, grace: grace},
		FFmpegBin: ffmpegBin,
	}
}

// Validate normalizes "threshold" (default 0.4), ffmpeg's scene score
// cutoff, which must lie strictly between 0 and 1, above which a frame
// is considered a scene change.
func (w *MarkersWorker) Validate(params map[string]any) (map[string]any, error) {
	threshold := 0.4
	if v, ok := params["threshold"]; ok {
		f, ok := toFloat(v)
		if !ok || f <= 0 || f >= 1 {
			return nil, fmt.Errorf("threshold must be in (0, 1)")
		}
		threshold = f
	}
	return map[string]any{"threshold": threshold}, nil
}

type marker struct {
	TimeSeconds float64 `json:"timeSeconds"`
	Score       float64 `json:"score"`
}

var sceneLine = regexp.MustCompile(`pts_time:([0-9.]+).*?lavfi\.scene_score=([0-9.]+)`)

// Run runs ffmpeg's scene-detection select filter with -f null and
// parses the frame metadata it emits to stderr into marker timestamps.
func (w *MarkersWorker) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	src, err := sourceAbsPath(req.MediaAbsPath)
	if err != nil {
		return RunResult{}, err
	}
	threshold, _ := toFloat(req.Params["threshold"])

	sidecars, err := w.Plan(req.MediaRelPath, req.Params)
	if err != nil {
		return RunResult{}, err
	}

	markers, err := w.detect(ctx, src, threshold)
	if err != nil {
		return RunResult{}, err
	}

	payload, err := json.Marshal(markers)
	if err != nil {
		return RunResult{}, fmt.Errorf("marshal markers: %w", err)
	}
	tmp := filepath.Join(req.Workspace, "markers.json")
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return RunResult{}, fmt.Errorf("write markers: %w", err)
	}

	if err := w.publish(sidecars[0], tmp); err != nil {
		return RunResult{}, fmt.Errorf("publish markers: %w", err)
	}
	if req.Report != nil {
		req.Report(1, 1, "")
	}
	return RunResult{Sidecars: sidecars}, nil
}

func (w *MarkersWorker) detect(ctx context.Context, src string, threshold float64) ([]marker, error) {
	args := []string{
		"-i", src,
		"-vf", fmt.Sprintf("select='gt(scene,%.3f)',metadata=print", threshold),
		"-f", "null", "-",
	}
	cmd := exec.CommandContext(ctx, w.FFmpegBin, args...) // #nosec G204
	procgroup.Set(cmd)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	var markers []marker
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		m := sceneLine.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		t, _ := strconv.ParseFloat(m[1], 64)
		score, _ := strconv.ParseFloat(m[2], 64)
		markers = append(markers, marker{TimeSeconds: t, Score: score})
	}

	waitErr := cmd.Wait()
	if waitErr != nil && len(markers) == 0 {
		return nil, fmt.Errorf("ffmpeg scene detect: %w", waitErr)
	}
	return markers, nil
}
