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

// HeatmapsWorker samples per-second brightness/motion statistics via
// ffmpeg's signalstats filter and publishes them as a JSON time
// series, for a scrub-bar "activity" overlay.
type HeatmapsWorker struct {
	base
	FFmpegBin string
}

// NewHeatmapsWorker builds a HeatmapsWorker.
func NewHeatmapsWorker(root, ffmpegBin string, resolver *artifact.Resolver, grace time.Duration) *HeatmapsWorker {
	return &HeatmapsWorker{
		base:      base{kind: artifact.KindHeatmaps, toolClass: config.ToolClassFFmpeg, root: root, resolver: resolver, grace: grace},
		FFmpegBin: ffmpegBin,
	}
}

// Validate normalizes "sampleFps" (default 1, the signalstats frame rate).
func (w *HeatmapsWorker) Validate(params map[string]any) (map[string]any, error) {
	fps := 1.0
	if v, ok := params["sampleFps"]; ok {
		f, ok := toFloat(v)
		if !ok || f <= 0 || f > 10 {
			return nil, fmt.Errorf("sampleFps must be in (0, 10]")
		}
		fps = f
	}
	return map[string]any{"sampleFps": fps}, nil
}

type heatmapSample struct {
	TimeSeconds float64 `json:"timeSeconds"`
	Brightness  float64 `json:"brightness"`
	Motion      float64 `json:"motion"`
}

var signalstatsLine = regexp.MustCompile(`lavfi\.signalstats\.YAVG=([0-9.]+).*?lavfi\.signalstats\.SATAVG=([0-9.]+)`)

// Run streams per-frame signalstats metadata to stderr via ffmpeg's
// -f null sink, parses brightness/motion proxies out of it, and
// publishes the resulting time series.
func (w *HeatmapsWorker) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	src, err := sourceAbsPath(req.MediaAbsPath)
	if err != nil {
		return RunResult{}, err
	}
	fps, _ := toFloat(req.Params["sampleFps"])

	sidecars, err := w.Plan(req.MediaRelPath, req.Params)
	if err != nil {
		return RunResult{}, err
	}

	samples, err := w.sample(ctx, src, fps)
	if err != nil {
		return RunResult{}, err
	}

	payload, err := json.Marshal(samples)
	if err != nil {
		return RunResult{}, fmt.Errorf("marshal heatmap: %w", err)
	}
	tmp := filepath.Join(req.Workspace, "heatmaps.json")
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return RunResult{}, fmt.Errorf("write heatmap: %w", err)
	}

	if err := w.publish(sidecars[0], tmp); err != nil {
		return RunResult{}, fmt.Errorf("publish heatmap: %w", err)
	}
	if req.Report != nil {
		req.Report(1, 1, "")
	}
	return RunResult{Sidecars: sidecars}, nil
}

func (w *HeatmapsWorker) sample(ctx context.Context, src string, fps float64) ([]heatmapSample, error) {
	args := []string{
		"-i", src,
		"-vf", fmt.Sprintf("fps=%.3f,signalstats", fps),
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

	var samples []heatmapSample
	idx := 0
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		m := signalstatsLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		yavg, _ := strconv.ParseFloat(m[1], 64)
		satavg, _ := strconv.ParseFloat(m[2], 64)
		samples = append(samples, heatmapSample{
			TimeSeconds: float64(idx) / fps,
			Brightness:  yavg / 255.0,
			Motion:      satavg / 255.0,
		})
		idx++
	}

	waitErr := cmd.Wait()
	if waitErr != nil && len(samples) == 0 {
		return nil, fmt.Errorf("ffmpeg signalstats: %w", waitErr)
	}
	return samples, nil
}
