// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics declares the Prometheus series this service exports
// for scheduler occupancy, job throughput, probe latency, bus drops
// and coverage cache hit rate, grounded on internal/procgroup's
// promauto usage elsewhere in this tree.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsTotal counts terminal job transitions by task kind and final
	// state (completed/failed/canceled).
	JobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediavault",
		Subsystem: "jobs",
		Name:      "total",
		Help:      "Jobs reaching a terminal state, by task kind and final state.",
	}, []string{"task", "state"})

	// JobDuration observes wall-clock seconds from starting to a
	// terminal state, by task kind.
	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mediavault",
		Subsystem: "jobs",
		Name:      "duration_seconds",
		Help:      "Job run duration in seconds, by task kind.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14), // ~0.1s..800s
	}, []string{"task"})

	// SchedulerOccupancy reports the current running-job count per
	// tool class, incremented on admission and decremented when the
	// job ends.
	SchedulerOccupancy = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "mediavault",
		Subsystem: "scheduler",
		Name:      "occupancy",
		Help:      "Currently running jobs, by tool class.",
	}, []string{"tool_class"})

	// SchedulerQueueDepth reports the number of queued (not yet
	// admitted) jobs.
	SchedulerQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "mediavault",
		Subsystem: "scheduler",
		Name:      "queue_depth",
		Help:      "Jobs currently queued awaiting admission.",
	})

	// ProbeDuration observes artifact presence-check latency, by
	// cache-hit/miss outcome.
	ProbeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mediavault",
		Subsystem: "artifact",
		Name:      "probe_duration_seconds",
		Help:      "Status cache Get() latency in seconds, by outcome.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"outcome"}) // "hit", "miss", "generating"

	// BusSubscriberDrops counts subscribers disconnected for falling
	// behind the event bus's bounded queue.
	BusSubscriberDrops = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mediavault",
		Subsystem: "bus",
		Name:      "subscriber_drops_total",
		Help:      "Subscribers disconnected for a full queue (backpressure policy).",
	})

	// CoverageCacheHits / CoverageCacheMisses track the coverage
	// aggregator's cache effectiveness.
	CoverageCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mediavault",
		Subsystem: "coverage",
		Name:      "cache_hits_total",
		Help:      "Coverage report requests served from cache.",
	})
	CoverageCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "mediavault",
		Subsystem: "coverage",
		Name:      "cache_misses_total",
		Help:      "Coverage report requests that recomputed.",
	})
)
