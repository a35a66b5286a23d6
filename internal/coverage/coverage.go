// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package coverage implements the Coverage Aggregator (C9): per-
// directory, per-kind processed/missing/total counts over the media
// inventory, cached and invalidated by job-finished and inventory
// change events.
package coverage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mediavault/core/internal/artifact"
	"github.com/mediavault/core/internal/media"
	"github.com/mediavault/core/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// KindCount is one kind's tally within a Report.
type KindCount struct {
	Processed int `json:"processed"`
	Missing   int `json:"missing"`
	Total     int `json:"total"`
}

// Report is the aggregator's result for one directory: per-kind
// counts across every MediaFile found under it.
type Report struct {
	Dir   string               `json:"dir"`
	Kinds map[artifact.Kind]KindCount `json:"kinds"`
}

type cacheEntry struct {
	report Report
}

// Aggregator computes and caches Reports. Grounded on the teacher's
// hdhr.lineupCache: a snapshot cache guarded by a lock, with
// singleflight.Do around the recompute so a second caller for the same
// key awaits the first result instead of duplicating the directory
// walk.
type Aggregator struct {
	Media *media.Service
	Cache *artifact.Cache

	sf singleflight.Group

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewAggregator builds an Aggregator over svc/cache.
func NewAggregator(svc *media.Service, cache *artifact.Cache) *Aggregator {
	return &Aggregator{Media: svc, Cache: cache, entries: make(map[string]cacheEntry)}
}

// Get returns the Report for dir across kinds, computing it on a cache
// miss. A concurrent Get for the same (dir, kinds) key shares one
// computation.
func (a *Aggregator) Get(ctx context.Context, dir string, kinds []artifact.Kind) (Report, error) {
	key := cacheKey(dir, kinds)

	if report, ok := a.cached(key); ok {
		metrics.CoverageCacheHits.Inc()
		return report, nil
	}

	result, err, _ := a.sf.Do(key, func() (any, error) {
		if report, ok := a.cached(key); ok {
			metrics.CoverageCacheHits.Inc()
			return report, nil
		}
		metrics.CoverageCacheMisses.Inc()
		report, err := a.compute(ctx, dir, kinds)
		if err != nil {
			return nil, err
		}
		a.store(key, report)
		return report, nil
	})
	if err != nil {
		return Report{}, err
	}
	return result.(Report), nil
}

func (a *Aggregator) cached(key string) (Report, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.entries[key]
	return e.report, ok
}

func (a *Aggregator) store(key string, report Report) {
	a.mu.Lock()
	a.entries[key] = cacheEntry{report: report}
	a.mu.Unlock()
}

func (a *Aggregator) compute(ctx context.Context, dir string, kinds []artifact.Kind) (Report, error) {
	files, err := a.Media.ListUnderDir(ctx, dir)
	if err != nil {
		return Report{}, fmt.Errorf("list files under %q: %w", dir, err)
	}

	counts := make(map[artifact.Kind]KindCount, len(kinds))
	for _, k := range kinds {
		counts[k] = KindCount{}
	}

	for _, f := range files {
		for _, k := range kinds {
			status := a.Cache.Get(f.RelPath, f.ModTime, k)
			c := counts[k]
			c.Total++
			if status.State == artifact.StatePresent {
				c.Processed++
			} else {
				c.Missing++
			}
			counts[k] = c
		}
	}

	return Report{Dir: dir, Kinds: counts}, nil
}

// InvalidateDir drops every cached Report whose directory is dir or an
// ancestor of it, since a change anywhere under dir can change an
// ancestor directory's recursive counts.
func (a *Aggregator) InvalidateDir(dir string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for key, e := range a.entries {
		if isAncestorOrSelf(e.report.Dir, dir) {
			delete(a.entries, key)
		}
	}
}

// isAncestorOrSelf reports whether candidate is dir itself or a
// directory above it in the tree.
func isAncestorOrSelf(candidate, dir string) bool {
	if candidate == dir {
		return true
	}
	if candidate == "" {
		return true // root covers everything
	}
	return strings.HasPrefix(dir, candidate+"/")
}

func cacheKey(dir string, kinds []artifact.Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	sort.Strings(names)
	return dir + "\x00" + strings.Join(names, ",")
}
