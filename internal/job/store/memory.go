// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"sync"

	"github.com/mediavault/core/internal/job"
)

// MemoryStore is an in-memory Store, used when the store backend is
// "memory" and by tests.
// Grounded on the teacher's pipeline/store.MemoryStore: a mutex-guarded
// map holding full-record copies, so every read and write crosses a
// copy boundary and callers can never observe or corrupt store-owned
// state through an aliased pointer.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*job.Record
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*job.Record)}
}

func copyRecord(r *job.Record) *job.Record {
	cp := *r
	if r.Params != nil {
		cp.Params = make(map[string]any, len(r.Params))
		for k, v := range r.Params {
			cp.Params[k] = v
		}
	}
	if r.Result != nil {
		cp.Result = make(map[string]any, len(r.Result))
		for k, v := range r.Result {
			cp.Result[k] = v
		}
	}
	if r.Progress != nil {
		p := *r.Progress
		cp.Progress = &p
	}
	return &cp
}

func (m *MemoryStore) Enqueue(ctx context.Context, rec *job.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = copyRecord(rec)
	return nil
}

func (m *MemoryStore) Update(ctx context.Context, id string, fn func(*job.Record) error) (*job.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	working := copyRecord(rec)
	if err := fn(working); err != nil {
		return nil, err
	}
	m.records[id] = working
	return copyRecord(working), nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*job.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRecord(rec), nil
}

func (m *MemoryStore) List(ctx context.Context, f job.Filter) ([]*job.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stateMatch := make(map[job.State]bool, len(f.States))
	for _, s := range f.States {
		stateMatch[s] = true
	}

	var out []*job.Record
	for _, rec := range m.records {
		if len(f.States) > 0 && !stateMatch[rec.State] {
			continue
		}
		if f.Target != "" && rec.Target != f.Target {
			continue
		}
		if f.Task != "" && rec.Task != f.Task {
			continue
		}
		out = append(out, copyRecord(rec))
	}
	return out, nil
}

func (m *MemoryStore) CancelQueuedAll(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids []string
	for id, rec := range m.records {
		if rec.State != job.StateQueued {
			continue
		}
		cp := copyRecord(rec)
		cp.State = job.StateCanceled
		m.records[id] = cp
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *MemoryStore) ClearFinished(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, rec := range m.records {
		if rec.State.Terminal() {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) LoadNonTerminalAsPaused(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, rec := range m.records {
		if rec.State.Terminal() {
			continue
		}
		cp := copyRecord(rec)
		cp.State = job.StateQueued
		cp.Paused = true
		m.records[id] = cp
	}
	return nil
}
