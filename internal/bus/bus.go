// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bus implements the single multiplexed job-lifecycle event
// stream (C8): a typed Event carrying job/artifact state transitions,
// fanned out to subscribers (the SSE handler, the coverage cache, the
// artifact status cache) in publication order with no replay for late
// subscribers.
package bus

import (
	"sync"

	"github.com/mediavault/core/internal/metrics"
)

// EventType is one of the closed set of job-lifecycle topics.
type EventType string

const (
	EventCreated  EventType = "created"
	EventQueued   EventType = "queued"
	EventStarted  EventType = "started"
	EventProgress EventType = "progress"
	EventCurrent  EventType = "current"
	EventFinished EventType = "finished"
	EventCanceled EventType = "canceled"
	EventError    EventType = "error"
)

// Event is the payload carried by every subscriber channel.
type Event struct {
	JobID    string
	Task     string
	Artifact string
	File     string
	State    string
	Progress *int
	Error    string
	TsUnix   int64
}

// Subscriber is a live subscription to the bus.
type Subscriber interface {
	// C returns the subscriber's event channel. It is closed when the
	// subscriber is closed or dropped for overflowing its queue.
	C() <-chan Event
	Close()
}

// Bus is the event transport. Unlike the teacher's bus (which blocks
// the publisher on a full subscriber channel until the publish
// context is done), this bus never blocks the publisher: a subscriber
// whose queue is full is disconnected so one slow reader (e.g. a
// stalled SSE client) cannot stall job execution.
type Bus interface {
	Publish(ev Event)
	Subscribe(queueSize int) Subscriber
}

// MemoryBus is the sole Bus implementation: in-process fan-out with
// bounded per-subscriber queues and drop-on-overflow backpressure.
type MemoryBus struct {
	mu   sync.Mutex
	subs map[*memSub]struct{}
}

// NewMemoryBus builds an empty MemoryBus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: make(map[*memSub]struct{})}
}

type memSub struct {
	bus    *MemoryBus
	ch     chan Event
	closed bool
	mu     sync.Mutex
}

func (s *memSub) C() <-chan Event { return s.ch }

func (s *memSub) Close() {
	s.bus.mu.Lock()
	delete(s.bus.subs, s)
	s.bus.mu.Unlock()
	s.closeOnce()
}

func (s *memSub) closeOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// Subscribe registers a new subscriber with a channel buffered to
// queueSize; queueSize <= 0 defaults to 256 per spec.
func (b *MemoryBus) Subscribe(queueSize int) Subscriber {
	if queueSize <= 0 {
		queueSize = 256
	}
	s := &memSub{bus: b, ch: make(chan Event, queueSize)}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Publish fans ev out to every live subscriber. A subscriber whose
// channel is full is disconnected and its channel closed rather than
// blocking this call.
func (b *MemoryBus) Publish(ev Event) {
	b.mu.Lock()
	targets := make([]*memSub, 0, len(b.subs))
	for s := range b.subs {
		targets = append(targets, s)
	}
	b.mu.Unlock()

	for _, s := range targets {
		select {
		case s.ch <- ev:
		default:
			b.mu.Lock()
			delete(b.subs, s)
			b.mu.Unlock()
			s.closeOnce()
			metrics.BusSubscriberDrops.Inc()
		}
	}
}
