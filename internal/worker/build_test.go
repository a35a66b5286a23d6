// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package worker

import (
	"testing"
	"time"

	"github.com/mediavault/core/internal/config"
)

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	return &config.AppConfig{
		FFmpegBin:    "ffmpeg",
		FFprobeBin:   "ffprobe",
		SubtitleBin:  "subtitle-tool",
		FaceBin:      "face-tool",
		EmbeddingBin: "embedding-tool",
		CancelGrace:  5 * time.Second,
	}
}
