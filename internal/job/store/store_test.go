// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mediavault/core/internal/job"
)

func newTestStores(t *testing.T) map[string]Store {
	t.Helper()
	sqliteStore, err := NewSQLiteStore(filepath.Join(t.TempDir(), "jobs.db"), 0)
	if err != nil {
		t.Fatalf("NewSQLiteStore() failed: %v", err)
	}
	t.Cleanup(func() { _ = sqliteStore.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqliteStore,
	}
}

func sampleRecord(id string) *job.Record {
	return &job.Record{
		ID:       id,
		Task:     "thumbnail",
		Target:   "movies/a.mp4",
		Artifact: "thumbnail",
		Params:   map[string]any{"atSeconds": 10.0},
		State:    job.StateQueued,
		Created:  time.Now(),
	}
}

func TestStoreEnqueueAndGet(t *testing.T) {
	for name, s := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rec := sampleRecord("job-1")
			if err := s.Enqueue(ctx, rec); err != nil {
				t.Fatalf("Enqueue() failed: %v", err)
			}

			got, err := s.Get(ctx, "job-1")
			if err != nil {
				t.Fatalf("Get() failed: %v", err)
			}
			if got.Task != "thumbnail" || got.State != job.StateQueued {
				t.Errorf("unexpected record: %+v", got)
			}
		})
	}
}

func TestStoreGetUnknownReturnsErrNotFound(t *testing.T) {
	for name, s := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := s.Get(context.Background(), "missing"); err != ErrNotFound {
				t.Errorf("Get() err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestStoreUpdateAppliesMutation(t *testing.T) {
	for name, s := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.Enqueue(ctx, sampleRecord("job-2")); err != nil {
				t.Fatal(err)
			}

			updated, err := s.Update(ctx, "job-2", func(r *job.Record) error {
				r.State = job.StateRunning
				r.Started = time.Now()
				return nil
			})
			if err != nil {
				t.Fatalf("Update() failed: %v", err)
			}
			if updated.State != job.StateRunning {
				t.Errorf("State = %s, want running", updated.State)
			}

			got, _ := s.Get(ctx, "job-2")
			if got.State != job.StateRunning {
				t.Errorf("persisted State = %s, want running", got.State)
			}
		})
	}
}

func TestStoreListFiltersByState(t *testing.T) {
	for name, s := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			queued := sampleRecord("job-queued")
			running := sampleRecord("job-running")
			running.State = job.StateRunning
			if err := s.Enqueue(ctx, queued); err != nil {
				t.Fatal(err)
			}
			if err := s.Enqueue(ctx, running); err != nil {
				t.Fatal(err)
			}

			results, err := s.List(ctx, job.Filter{States: []job.State{job.StateRunning}})
			if err != nil {
				t.Fatalf("List() failed: %v", err)
			}
			if len(results) != 1 || results[0].ID != "job-running" {
				t.Errorf("List() = %+v, want only job-running", results)
			}
		})
	}
}

func TestStoreCancelQueuedAll(t *testing.T) {
	for name, s := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.Enqueue(ctx, sampleRecord("job-a")); err != nil {
				t.Fatal(err)
			}
			running := sampleRecord("job-b")
			running.State = job.StateRunning
			if err := s.Enqueue(ctx, running); err != nil {
				t.Fatal(err)
			}

			ids, err := s.CancelQueuedAll(ctx)
			if err != nil {
				t.Fatalf("CancelQueuedAll() failed: %v", err)
			}
			if len(ids) != 1 || ids[0] != "job-a" {
				t.Errorf("CancelQueuedAll() = %v, want [job-a]", ids)
			}

			got, _ := s.Get(ctx, "job-a")
			if got.State != job.StateCanceled {
				t.Errorf("job-a State = %s, want canceled", got.State)
			}
			got, _ = s.Get(ctx, "job-b")
			if got.State != job.StateRunning {
				t.Errorf("job-b State = %s, want unaffected (running)", got.State)
			}
		})
	}
}

func TestStoreClearFinishedRemovesOnlyTerminal(t *testing.T) {
	for name, s := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			done := sampleRecord("job-done")
			done.State = job.StateCompleted
			if err := s.Enqueue(ctx, done); err != nil {
				t.Fatal(err)
			}
			if err := s.Enqueue(ctx, sampleRecord("job-queued")); err != nil {
				t.Fatal(err)
			}

			n, err := s.ClearFinished(ctx)
			if err != nil {
				t.Fatalf("ClearFinished() failed: %v", err)
			}
			if n != 1 {
				t.Errorf("ClearFinished() removed %d, want 1", n)
			}
			if _, err := s.Get(ctx, "job-done"); err != ErrNotFound {
				t.Errorf("job-done still present after ClearFinished")
			}
			if _, err := s.Get(ctx, "job-queued"); err != nil {
				t.Errorf("job-queued unexpectedly removed: %v", err)
			}
		})
	}
}

func TestStoreLoadNonTerminalAsPaused(t *testing.T) {
	for name, s := range newTestStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			running := sampleRecord("job-interrupted")
			running.State = job.StateRunning
			if err := s.Enqueue(ctx, running); err != nil {
				t.Fatal(err)
			}

			if err := s.LoadNonTerminalAsPaused(ctx); err != nil {
				t.Fatalf("LoadNonTerminalAsPaused() failed: %v", err)
			}

			got, err := s.Get(ctx, "job-interrupted")
			if err != nil {
				t.Fatal(err)
			}
			if got.State != job.StateQueued || !got.Paused {
				t.Errorf("got State=%s Paused=%v, want queued+paused", got.State, got.Paused)
			}
		})
	}
}
