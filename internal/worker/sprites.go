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

// SpritesWorker renders a tiled sprite sheet of evenly-spaced
// thumbnails plus a WebVTT index mapping playback time to a tile's
// position within the sheet, for scrub-bar hover previews.
type SpritesWorker struct {
	base
	FFmpegBin  string
	FFprobeBin string
}

// NewSpritesWorker builds a SpritesWorker.
func NewSpritesWorker(root, ffmpegBin, ffprobeBin string, resolver *artifact.Resolver, grace time.Duration) *SpritesWorker {
	return &SpritesWorker{
		base:       base{kind: artifact.KindSprites, toolClass: config.ToolClassFFmpeg, root: root, resolver: resolver, grace: grace},
		FFmpegBin:  ffmpegBin,
		FFprobeBin: ffprobeBin,
	}
}

const (
	spriteCols     = 10
	spriteRows     = 10
	spriteTileSize = 160
)

// Validate normalizes "intervalSeconds" between tiles (default 10).
func (w *SpritesWorker) Validate(params map[string]any) (map[string]any, error) {
	interval := 10.0
	if v, ok := params["intervalSeconds"]; ok {
		f, ok := toFloat(v)
		if !ok || f <= 0 {
			return nil, fmt.Errorf("intervalSeconds must be positive")
		}
		interval = f
	}
	return map[string]any{"intervalSeconds": interval}, nil
}

// Run samples the source at a fixed interval into a single tiled
// sprite sheet, and writes a WebVTT index mapping each interval to
// its tile's pixel region within the sheet.
func (w *SpritesWorker) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	src, err := sourceAbsPath(req.MediaAbsPath)
	if err != nil {
		return RunResult{}, err
	}
	interval, _ := toFloat(req.Params["intervalSeconds"])

	sidecars, err := w.Plan(req.MediaRelPath, req.Params)
	if err != nil {
		return RunResult{}, err
	}
	sheetRel, vttRel := sidecars[0], sidecars[1]

	durationSeconds, err := probeDuration(ctx, w.FFprobeBin, src)
	if err != nil {
		return RunResult{}, fmt.Errorf("probe duration: %w", err)
	}

	tmpSheet := filepath.Join(req.Workspace, "sprites.jpg")
	fps := fmt.Sprintf("1/%.3f", interval)
	args := []string{
		"-y", "-i", src,
		"-vf", fmt.Sprintf("fps=%s,scale=%d:%d,tile=%dx%d", fps, spriteTileSize, spriteTileSize, spriteCols, spriteRows),
		"-frames:v", "1", "-q:v", "4", tmpSheet,
	}
	if err := runTool(ctx, w.FFmpegBin, args, w.grace); err != nil {
		return RunResult{}, err
	}
	if err := mustNonEmpty(tmpSheet); err != nil {
		return RunResult{}, err
	}

	vtt := buildSpriteVTT(filepath.Base(filepath.FromSlash(sheetRel)), interval, durationSeconds)
	tmpVTT := filepath.Join(req.Workspace, "sprites.vtt")
	if err := os.WriteFile(tmpVTT, []byte(vtt), 0o644); err != nil {
		return RunResult{}, fmt.Errorf("write vtt: %w", err)
	}

	if err := w.publish(sheetRel, tmpSheet); err != nil {
		return RunResult{}, fmt.Errorf("publish sprite sheet: %w", err)
	}
	if err := w.publish(vttRel, tmpVTT); err != nil {
		return RunResult{}, fmt.Errorf("publish sprite index: %w", err)
	}
	if req.Report != nil {
		req.Report(1, 1, "")
	}
	return RunResult{Sidecars: sidecars}, nil
}

// buildSpriteVTT emits a WebVTT cue per interval, each pointing at the
// tile's pixel region within the single sprite sheet image, wrapping
// at spriteCols tiles per row up to spriteCols*spriteRows total tiles.
func buildSpriteVTT(sheetFilename string, interval, durationSeconds float64) string {
	vtt := "WEBVTT\n\n"
	maxTiles := spriteCols * spriteRows
	tile := 0
	for t := 0.0; t < durationSeconds && tile < maxTiles; t += interval {
		end := t + interval
		if end > durationSeconds {
			end = durationSeconds
		}
		col := tile % spriteCols
		row := tile / spriteCols
		x, y := col*spriteTileSize, row*spriteTileSize
		vtt += fmt.Sprintf("%s --> %s\n%s#xywh=%d,%d,%d,%d\n\n",
			formatVTTTime(t), formatVTTTime(end), sheetFilename, x, y, spriteTileSize, spriteTileSize)
		tile++
	}
	return vtt
}

func formatVTTTime(seconds float64) string {
	h := int(seconds) / 3600
	m := (int(seconds) % 3600) / 60
	s := int(seconds) % 60
	ms := int((seconds - float64(int(seconds))) * 1000)
	return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
}
