// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package artifact implements the per-file artifact state machine: the
// path/sidecar resolver (C1), the presence/staleness probe (C2), and
// the TTL+event-invalidated status cache (C3).
package artifact

import (
	"fmt"

	"github.com/mediavault/core/internal/config"
)

// Kind is a closed enumeration of the artifact kinds this service
// understands. It is a ~string so call sites can still use string
// literals in tests, but production code should go through the
// package-level constants and ParseKind so an unknown value is
// rejected rather than silently accepted.
type Kind string

const (
	KindMetadata   Kind = "metadata"
	KindThumbnail  Kind = "thumbnail"
	KindPreview    Kind = "preview"
	KindSprites    Kind = "sprites"
	KindHeatmaps   Kind = "heatmaps"
	KindMarkers    Kind = "markers"
	KindSubtitles  Kind = "subtitles"
	KindFaces      Kind = "faces"
	KindEmbeddings Kind = "embeddings"
	KindPhash      Kind = "phash"
)

// AllKinds lists every valid Kind in a stable order, used for
// round-trip tests and for enumerating coverage by kind.
var AllKinds = []Kind{
	KindMetadata, KindThumbnail, KindPreview, KindSprites, KindHeatmaps,
	KindMarkers, KindSubtitles, KindFaces, KindEmbeddings, KindPhash,
}

// ErrUnknownKind is returned by ParseKind for a string outside the
// closed set.
var ErrUnknownKind = fmt.Errorf("unknown artifact kind")

// ParseKind validates s against the closed kind set.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	for _, valid := range AllKinds {
		if valid == k {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	for _, valid := range AllKinds {
		if valid == k {
			return true
		}
	}
	return false
}

// Descriptor is everything the resolver/probe/scheduler need to know
// about one ArtifactKind: where its sidecars live and which tool
// produces it. Staleness tolerance is not per kind; it is the single
// value given to NewProbe.
type Descriptor struct {
	Kind      Kind
	ToolClass string
	// Templates are sidecar path templates relative to the media
	// file's directory. "{stem}" is replaced with the media file's
	// basename without extension; the first entry is the primary
	// sidecar used for presence checks.
	Templates []string
}

// registry is the single source of truth mapping Kind -> Descriptor,
// mirroring spec.md §3's closed set and per-kind sidecar layout.
var registry = map[Kind]Descriptor{
	KindMetadata: {
		Kind: KindMetadata, ToolClass: config.ToolClassFFprobe,
		Templates: []string{".artifacts/{stem}.metadata.json"},
	},
	KindThumbnail: {
		Kind: KindThumbnail, ToolClass: config.ToolClassFFmpeg,
		Templates: []string{".artifacts/{stem}.thumbnail.jpg"},
	},
	KindPreview: {
		Kind: KindPreview, ToolClass: config.ToolClassFFmpeg,
		Templates: []string{".artifacts/{stem}.preview.mp4"},
	},
	KindSprites: {
		Kind: KindSprites, ToolClass: config.ToolClassFFmpeg,
		Templates: []string{
			".artifacts/{stem}.sprites.jpg",
			".artifacts/{stem}.sprites.vtt",
		},
	},
	KindHeatmaps: {
		Kind: KindHeatmaps, ToolClass: config.ToolClassFFmpeg,
		Templates: []string{".artifacts/{stem}.heatmaps.json"},
	},
	KindMarkers: {
		Kind: KindMarkers, ToolClass: config.ToolClassFFmpeg,
		Templates: []string{".artifacts/{stem}.markers.json"},
	},
	KindSubtitles: {
		Kind: KindSubtitles, ToolClass: config.ToolClassSubtitleBackend,
		Templates: []string{".artifacts/{stem}.subtitles.srt"},
	},
	KindFaces: {
		Kind: KindFaces, ToolClass: config.ToolClassFaceBackend,
		Templates: []string{".artifacts/{stem}.faces.json"},
	},
	KindEmbeddings: {
		Kind: KindEmbeddings, ToolClass: config.ToolClassFaceBackend,
		Templates: []string{".artifacts/{stem}.embeddings.bin"},
	},
	KindPhash: {
		Kind: KindPhash, ToolClass: config.ToolClassFFmpeg,
		Templates: []string{".artifacts/{stem}.phash.txt"},
	},
}

// DescriptorFor returns the registered Descriptor for k. Callers
// should only ever see kinds from ParseKind/AllKinds, so a missing
// entry indicates a registry bug rather than user input.
func DescriptorFor(k Kind) (Descriptor, error) {
	d, ok := registry[k]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
	return d, nil
}
