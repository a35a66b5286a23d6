// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package worker

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"math/bits"
	"os"
	"path/filepath"
	"time"

	"github.com/mediavault/core/internal/artifact"
	"github.com/mediavault/core/internal/config"
)

// PhashWorker extracts a representative frame via ffmpeg and reduces
// it to a 64-bit perceptual hash (DCT-free average-hash variant over
// an 8x8 grayscale thumbnail), for near-duplicate detection.
type PhashWorker struct {
	base
	FFmpegBin string
}

// NewPhashWorker builds a PhashWorker.
func NewPhashWorker(root, ffmpegBin string, resolver *artifact.Resolver, grace time.Duration) *PhashWorker {
	return &PhashWorker{
		base:      base{kind: artifact.KindPhash, toolClass: config.ToolClassFFmpeg, root: root, resolver: resolver, grace: grace},
		FFmpegBin: ffmpegBin,
	}
}

// Validate normalizes "atSeconds" (default 10.0, same convention as
// the thumbnail worker) identifying which frame to hash.
func (w *PhashWorker) Validate(params map[string]any) (map[string]any, error) {
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

// Run extracts one frame downscaled to an 8x8 grayscale square, then
// reduces it to a 64-bit average hash and publishes the hex-encoded
// result as the kind's primary sidecar.
func (w *PhashWorker) Run(ctx context.Context, req RunRequest) (RunResult, error) {
	src, err := sourceAbsPath(req.MediaAbsPath)
	if err != nil {
		return RunResult{}, err
	}
	at, _ := toFloat(req.Params["atSeconds"])

	sidecars, err := w.Plan(req.MediaRelPath, req.Params)
	if err != nil {
		return RunResult{}, err
	}

	tmpFrame := filepath.Join(req.Workspace, "phash-frame.jpg")
	args := []string{
		"-y", "-ss", fmt.Sprintf("%.3f", at), "-i", src,
		"-vf", "scale=8:8:flags=bilinear,format=gray",
		"-frames:v", "1", "-q:v", "2", tmpFrame,
	}
	if err := runTool(ctx, w.FFmpegBin, args, w.grace); err != nil {
		return RunResult{}, err
	}
	if err := mustNonEmpty(tmpFrame); err != nil {
		return RunResult{}, err
	}

	hash, err := averageHash(tmpFrame)
	if err != nil {
		return RunResult{}, fmt.Errorf("compute phash: %w", err)
	}

	tmp := filepath.Join(req.Workspace, "phash.txt")
	if err := os.WriteFile(tmp, []byte(fmt.Sprintf("%016x", hash)), 0o644); err != nil {
		return RunResult{}, fmt.Errorf("write phash: %w", err)
	}

	if err := w.publish(sidecars[0], tmp); err != nil {
		return RunResult{}, fmt.Errorf("publish phash: %w", err)
	}
	if req.Report != nil {
		req.Report(1, 1, "")
	}
	return RunResult{Sidecars: sidecars}, nil
}

// averageHash reduces an 8x8 grayscale image to a 64-bit hash: each
// bit is set if the pixel is at or above the image's mean luminance.
func averageHash(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return 0, fmt.Errorf("decode frame: %w", err)
	}
	bounds := img.Bounds()

	var sum uint64
	levels := make([]uint8, 0, 64)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			lum := uint8((r>>8 + g>>8 + b>>8) / 3)
			levels = append(levels, lum)
			sum += uint64(lum)
		}
	}
	if len(levels) == 0 {
		return 0, fmt.Errorf("empty frame")
	}
	mean := sum / uint64(len(levels))

	var hash uint64
	for i, lum := range levels {
		if uint64(lum) >= mean {
			hash |= 1 << uint(i)
		}
	}
	return hash, nil
}

// hammingDistance counts the differing bits between two phash values,
// the near-duplicate measure; it is unexported, and only this
// package's tests call it.
func hammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}
