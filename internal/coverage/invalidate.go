// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package coverage

import (
	"context"
	"strings"

	"github.com/mediavault/core/internal/bus"
	"github.com/mediavault/core/internal/media"
)

// OnMediaEvent implements media.Publisher so the inventory can notify
// the aggregator directly on add/update/remove, without routing
// through the job event bus.
func (a *Aggregator) OnMediaEvent(ev media.Event) {
	a.InvalidateDir(relDir(ev.RelPath))
}

// relDir returns the slash-separated parent directory of relPath, or
// "" for a file directly under the root, matching media.File.Dir().
func relDir(relPath string) string {
	i := strings.LastIndexByte(relPath, '/')
	if i < 0 {
		return ""
	}
	return relPath[:i]
}

// RunBusInvalidation subscribes to b and invalidates the directory
// containing each "finished" job event's file, per spec.md §4.9:
// "Invalidated by `finished` events whose file path is within that
// directory". Runs until ctx is canceled.
func (a *Aggregator) RunBusInvalidation(ctx context.Context, b *bus.MemoryBus) {
	sub := b.Subscribe(0)
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.C():
			if !ok {
				return
			}
			if ev.State != "finished" || ev.File == "" {
				continue
			}
			a.InvalidateDir(relDir(ev.File))
		}
	}
}
