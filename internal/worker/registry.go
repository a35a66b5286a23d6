// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package worker

import (
	"fmt"
	"sync"

	"github.com/mediavault/core/internal/artifact"
)

// Registry is the set of named artifact producers the scheduler draws
// from, keyed by ArtifactKind. Exactly one Worker may be registered
// per kind.
type Registry struct {
	mu      sync.RWMutex
	workers map[artifact.Kind]Worker
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{workers: make(map[artifact.Kind]Worker)}
}

// Register adds w under its own Kind(), replacing any prior worker
// for that kind.
func (r *Registry) Register(w Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers[w.Kind()] = w
}

// Get returns the worker registered for kind, or an error if none is
// registered.
func (r *Registry) Get(kind artifact.Kind) (Worker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.workers[kind]
	if !ok {
		return nil, fmt.Errorf("no worker registered for kind %q", kind)
	}
	return w, nil
}

// Kinds returns every kind with a registered worker.
func (r *Registry) Kinds() []artifact.Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	kinds := make([]artifact.Kind, 0, len(r.workers))
	for k := range r.workers {
		kinds = append(kinds, k)
	}
	return kinds
}
