// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package job

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mediavault/core/internal/artifact"
	"github.com/mediavault/core/internal/bus"
	"github.com/mediavault/core/internal/job/store"
	"github.com/mediavault/core/internal/media"
	"github.com/mediavault/core/internal/worker"
)

func newTestPlanner(t *testing.T, files []string) (*Planner, string) {
	t.Helper()
	root := t.TempDir()
	for _, f := range files {
		abs := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte("data"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	mediaStore, err := media.NewStore(filepath.Join(t.TempDir(), "media.db"))
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	t.Cleanup(func() { _ = mediaStore.Close() })

	ctx := context.Background()
	tx, err := mediaStore.BeginTx(ctx)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	for _, f := range files {
		if _, err := mediaStore.UpsertFile(ctx, tx, media.File{
			RelPath:  f,
			Filename: filepath.Base(f),
			Ext:      filepath.Ext(f),
			ModTime:  now,
			ScanTime: now,
		}); err != nil {
			t.Fatal(err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	mediaSvc := media.NewService(mediaStore, nil, nil)
	resolver := artifact.NewResolver(root)
	probe := artifact.NewProbe(root, resolver, time.Second)
	cache := artifact.NewCache(probe, time.Minute)

	reg := worker.NewRegistry()
	reg.Register(&fakeWorker{kind: artifact.KindThumbnail, toolClass: "ffmpeg"})
	reg.Register(&fakeWorker{kind: artifact.KindMetadata, toolClass: "ffprobe"})

	sched := NewScheduler(root, store.NewMemoryStore(), reg, bus.NewMemoryBus(), cache, 4, nil, nil, time.Second)

	return &Planner{Media: mediaSvc, Resolver: resolver, Cache: cache, Scheduler: sched}, root
}

func TestPlannerMissingModeEnqueuesOnlyAbsentArtifacts(t *testing.T) {
	p, _ := newTestPlanner(t, []string{"a.mp4", "b.mp4"})

	result, err := p.Plan(context.Background(), BatchRequest{
		Operation: string(artifact.KindThumbnail),
		Mode:      ModeMissing,
		Scope:     ScopeAll,
	})
	if err != nil {
		t.Fatalf("Plan() failed: %v", err)
	}
	if len(result.JobIDs) != 2 {
		t.Errorf("JobIDs = %v, want 2 jobs (one per file)", result.JobIDs)
	}
}

func TestPlannerSelectedScopeFiltersFiles(t *testing.T) {
	p, _ := newTestPlanner(t, []string{"a.mp4", "b.mp4"})

	result, err := p.Plan(context.Background(), BatchRequest{
		Operation:     string(artifact.KindThumbnail),
		Mode:          ModeMissing,
		Scope:         ScopeSelected,
		SelectedPaths: []string{"a.mp4"},
	})
	if err != nil {
		t.Fatalf("Plan() failed: %v", err)
	}
	if len(result.JobIDs) != 1 {
		t.Errorf("JobIDs = %v, want exactly 1 job", result.JobIDs)
	}
}

func TestPlannerSkipsDuplicateActiveClaim(t *testing.T) {
	p, _ := newTestPlanner(t, []string{"a.mp4"})

	rec := &Record{ID: NewJobID(), Task: string(artifact.KindThumbnail), Target: "a.mp4", Artifact: string(artifact.KindThumbnail), State: StateQueued, Created: time.Now()}
	if err := p.Scheduler.Store.Enqueue(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	p.Scheduler.mu.Lock()
	p.Scheduler.claims[claimKey{target: "a.mp4", task: string(artifact.KindThumbnail)}] = rec.ID
	p.Scheduler.mu.Unlock()

	result, err := p.Plan(context.Background(), BatchRequest{
		Operation: string(artifact.KindThumbnail),
		Mode:      ModeMissing,
		Scope:     ScopeAll,
	})
	if err != nil {
		t.Fatalf("Plan() failed: %v", err)
	}
	if len(result.JobIDs) != 0 || result.SkippedDupe != 1 {
		t.Errorf("got JobIDs=%v SkippedDupe=%d, want 0 jobs and 1 skip", result.JobIDs, result.SkippedDupe)
	}
}

func TestPlannerClearModeRemovesSidecarsAndInvalidatesCache(t *testing.T) {
	p, root := newTestPlanner(t, []string{"a.mp4"})

	sidecars, err := p.Resolver.Resolve("a.mp4", artifact.KindThumbnail)
	if err != nil {
		t.Fatal(err)
	}
	for _, sc := range sidecars {
		abs := filepath.Join(root, filepath.FromSlash(sc))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if st := p.Cache.Get("a.mp4", time.Time{}, artifact.KindThumbnail); st.State != artifact.StatePresent {
		t.Fatalf("cached State before clear = %s, want present", st.State)
	}

	result, err := p.Plan(context.Background(), BatchRequest{
		Operation: string(artifact.KindThumbnail),
		Mode:      ModeClear,
		Scope:     ScopeAll,
	})
	if err != nil {
		t.Fatalf("Plan() failed: %v", err)
	}
	if result.Cleared != len(sidecars) {
		t.Errorf("Cleared = %d, want %d", result.Cleared, len(sidecars))
	}
	if st := p.Cache.Get("a.mp4", time.Time{}, artifact.KindThumbnail); st.State != artifact.StateAbsent {
		t.Errorf("cached State after clear = %s, want absent", st.State)
	}
	for _, sc := range sidecars {
		abs := filepath.Join(root, filepath.FromSlash(sc))
		if _, err := os.Stat(abs); !os.IsNotExist(err) {
			t.Errorf("sidecar %s still exists after clear", sc)
		}
	}
}

func TestPlannerAllModeSetsOverwriteParam(t *testing.T) {
	p, _ := newTestPlanner(t, []string{"a.mp4"})

	result, err := p.Plan(context.Background(), BatchRequest{
		Operation: string(artifact.KindThumbnail),
		Mode:      ModeAll,
		Scope:     ScopeAll,
	})
	if err != nil {
		t.Fatalf("Plan() failed: %v", err)
	}
	if len(result.JobIDs) != 1 {
		t.Fatalf("JobIDs = %v, want 1", result.JobIDs)
	}
	rec, err := p.Scheduler.Store.Get(context.Background(), result.JobIDs[0])
	if err != nil {
		t.Fatal(err)
	}
	if rec.Params["overwrite"] != true {
		t.Errorf("Params = %+v, want overwrite=true", rec.Params)
	}
}

func TestPlannerKindAllExpandsToFastFirstOrder(t *testing.T) {
	p, _ := newTestPlanner(t, []string{"a.mp4"})

	kinds, err := p.expandKinds(KindAll)
	if err != nil {
		t.Fatal(err)
	}
	if len(kinds) != len(fastFirstOrder) || kinds[0] != artifact.KindMetadata {
		t.Errorf("expandKinds(KindAll) = %v, want fastFirstOrder starting with metadata", kinds)
	}
}
