// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package artifact

import (
	"sync"
	"time"

	"github.com/mediavault/core/internal/metrics"
)

// cachedStatus is one cached (kind -> Status) entry plus the time it
// was last checked, used to expire it after the configured TTL.
type cachedStatus struct {
	status    Status
	checkedAt time.Time
	generating bool
}

// fileEntry holds every cached kind for one media file behind its own
// mutex, giving each key its own writer lane rather than a single
// cache-wide lock.
type fileEntry struct {
	mu    sync.Mutex
	kinds map[Kind]cachedStatus
}

// Cache is the process-wide, per-file artifact status cache (C3). It
// never writes to disk; reads fall through to Probe on a miss or
// expiry and are cached until the TTL elapses or an event invalidates
// the entry.
type Cache struct {
	probe *Probe
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[string]*fileEntry
}

// NewCache builds a Cache backed by probe, expiring entries after ttl
// (spec.md §4.3 default: 30s).
func NewCache(probe *Probe, ttl time.Duration) *Cache {
	return &Cache{probe: probe, ttl: ttl, entries: make(map[string]*fileEntry)}
}

func (c *Cache) entryFor(mediaPath string) *fileEntry {
	c.mu.RLock()
	e, ok := c.entries[mediaPath]
	c.mu.RUnlock()
	if ok {
		return e
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[mediaPath]; ok {
		return e
	}
	e = &fileEntry{kinds: make(map[Kind]cachedStatus)}
	c.entries[mediaPath] = e
	return e
}

// Get returns the cached Status for (mediaPath, kind), re-probing on a
// miss or an expired entry. A kind marked by MarkGenerating reads as
// generating regardless of TTL until cleared by Invalidate.
func (c *Cache) Get(mediaPath string, sourceModTime time.Time, kind Kind) Status {
	start := time.Now()
	e := c.entryFor(mediaPath)

	e.mu.Lock()
	defer e.mu.Unlock()

	if cached, ok := e.kinds[kind]; ok {
		if cached.generating {
			metrics.ProbeDuration.WithLabelValues("generating").Observe(time.Since(start).Seconds())
			return Status{State: StateGenerating, Sidecars: cached.status.Sidecars}
		}
		if time.Since(cached.checkedAt) < c.ttl {
			metrics.ProbeDuration.WithLabelValues("hit").Observe(time.Since(start).Seconds())
			return cached.status
		}
	}

	status := c.probe.Check(mediaPath, sourceModTime, kind)
	e.kinds[kind] = cachedStatus{status: status, checkedAt: time.Now()}
	metrics.ProbeDuration.WithLabelValues("miss").Observe(time.Since(start).Seconds())
	return status
}

// MarkGenerating overrides the cached state for (mediaPath, kind) to
// "generating" without probing, called by the scheduler when a job
// claims the (path, kind) pair. The override holds until Invalidate.
func (c *Cache) MarkGenerating(mediaPath string, kind Kind) {
	e := c.entryFor(mediaPath)
	e.mu.Lock()
	defer e.mu.Unlock()

	existing := e.kinds[kind]
	existing.generating = true
	e.kinds[kind] = existing
}

// Invalidate handles `job.finished(kind, file)`: it drops the cached
// entry (and any generating override) for (mediaPath, kind) so the
// next Get re-probes.
func (c *Cache) Invalidate(mediaPath string, kind Kind) {
	c.mu.RLock()
	e, ok := c.entries[mediaPath]
	c.mu.RUnlock()
	if !ok {
		return
	}
	e.mu.Lock()
	delete(e.kinds, kind)
	e.mu.Unlock()
}

// Drop handles `file.removed(file)`: it removes the entire per-file
// entry.
func (c *Cache) Drop(mediaPath string) {
	c.mu.Lock()
	delete(c.entries, mediaPath)
	c.mu.Unlock()
}
