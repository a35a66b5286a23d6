// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package worker

import (
	"github.com/mediavault/core/internal/artifact"
	"github.com/mediavault/core/internal/config"
)

// BuildRegistry constructs a Registry with one producer per known
// artifact kind, wired against cfg's external tool paths and
// cancellation grace period, publishing sidecars under root via
// resolver.
func BuildRegistry(cfg *config.AppConfig, root string, resolver *artifact.Resolver) *Registry {
	reg := NewRegistry()
	grace := cfg.CancelGrace

	reg.Register(NewMetadataWorker(root, cfg.FFprobeBin, resolver, grace))
	reg.Register(NewThumbnailWorker(root, cfg.FFmpegBin, resolver, grace))
	reg.Register(NewPreviewWorker(root, cfg.FFmpegBin, resolver, grace))
	reg.Register(NewSpritesWorker(root, cfg.FFmpegBin, cfg.FFprobeBin, resolver, grace))
	reg.Register(NewHeatmapsWorker(root, cfg.FFmpegBin, resolver, grace))
	reg.Register(NewMarkersWorker(root, cfg.FFmpegBin, resolver, grace))
	reg.Register(NewPhashWorker(root, cfg.FFmpegBin, resolver, grace))
	reg.Register(NewSubtitlesWorker(root, cfg.SubtitleBin, nil, resolver, grace))
	reg.Register(NewFacesWorker(root, cfg.FaceBin, nil, resolver, grace))
	reg.Register(NewEmbeddingsWorker(root, cfg.EmbeddingBin, nil, resolver, grace))

	return reg
}
