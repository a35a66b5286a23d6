// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package worker

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/mediavault/core/internal/artifact"
	"github.com/mediavault/core/internal/fsutil"
)

// base holds the fields every ffmpeg/ffprobe-class producer shares:
// where sidecars live, how to resolve them, and how long to wait
// after SIGTERM before SIGKILL on cancellation.
type base struct {
	kind      artifact.Kind
	toolClass string
	root      string
	resolver  *artifact.Resolver
	grace     time.Duration
}

func (b base) Kind() artifact.Kind { return b.kind }
func (b base) ToolClass() string   { return b.toolClass }

func (b base) Plan(mediaRelPath string, _ map[string]any) ([]string, error) {
	return b.resolver.Resolve(mediaRelPath, b.kind)
}

// publish moves a file produced at tmpPath (inside the run's
// workspace) into the sidecar's final location atomically, so a
// concurrent reader never observes a partial artifact.
func (b base) publish(sidecarRelPath, tmpPath string) error {
	dst := filepath.Join(b.root, filepath.FromSlash(sidecarRelPath))
	return fsutil.RenameAtomic(tmpPath, dst, true)
}

// sourceAbsPath is a defensive helper ensuring every ffmpeg invocation
// is built against an absolute, already-resolved input path.
func sourceAbsPath(mediaAbsPath string) (string, error) {
	if mediaAbsPath == "" {
		return "", fmt.Errorf("empty source path")
	}
	return mediaAbsPath, nil
}
