// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package coverage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mediavault/core/internal/artifact"
	"github.com/mediavault/core/internal/bus"
	"github.com/mediavault/core/internal/media"
)

func newTestAggregator(t *testing.T, files []string) (*Aggregator, string) {
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

	store, err := media.NewStore(filepath.Join(t.TempDir(), "media.db"))
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	tx, err := store.BeginTx(ctx)
	if err != nil {
		t.Fatal(err)
	}
	now := time.Now()
	for _, f := range files {
		if _, err := store.UpsertFile(ctx, tx, media.File{RelPath: f, Filename: filepath.Base(f), ModTime: now, ScanTime: now}); err != nil {
			t.Fatal(err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	svc := media.NewService(store, nil, nil)
	resolver := artifact.NewResolver(root)
	probe := artifact.NewProbe(root, resolver, time.Second)
	cache := artifact.NewCache(probe, time.Minute)

	return NewAggregator(svc, cache), root
}

func TestGetCountsMissingWhenNoSidecarsExist(t *testing.T) {
	agg, _ := newTestAggregator(t, []string{"a.mp4", "b.mp4"})

	report, err := agg.Get(context.Background(), "", []artifact.Kind{artifact.KindThumbnail})
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	got := report.Kinds[artifact.KindThumbnail]
	if got.Total != 2 || got.Missing != 2 || got.Processed != 0 {
		t.Errorf("KindCount = %+v, want Total=2 Missing=2 Processed=0", got)
	}
}

func TestGetCountsProcessedWhenSidecarPresent(t *testing.T) {
	agg, root := newTestAggregator(t, []string{"a.mp4"})

	resolver := artifact.NewResolver(root)
	sidecars, err := resolver.Resolve("a.mp4", artifact.KindThumbnail)
	if err != nil {
		t.Fatal(err)
	}
	abs := filepath.Join(root, filepath.FromSlash(sidecars[0]))
	if err := os.WriteFile(abs, []byte("thumb"), 0o644); err != nil {
		t.Fatal(err)
	}

	report, err := agg.Get(context.Background(), "", []artifact.Kind{artifact.KindThumbnail})
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	got := report.Kinds[artifact.KindThumbnail]
	if got.Processed != 1 || got.Missing != 0 {
		t.Errorf("KindCount = %+v, want Processed=1 Missing=0", got)
	}
}

func TestGetCachesAcrossCalls(t *testing.T) {
	agg, root := newTestAggregator(t, []string{"a.mp4"})

	first, err := agg.Get(context.Background(), "", []artifact.Kind{artifact.KindThumbnail})
	if err != nil {
		t.Fatal(err)
	}
	if first.Kinds[artifact.KindThumbnail].Processed != 0 {
		t.Fatal("expected 0 processed before sidecar exists")
	}

	resolver := artifact.NewResolver(root)
	sidecars, _ := resolver.Resolve("a.mp4", artifact.KindThumbnail)
	_ = os.WriteFile(filepath.Join(root, filepath.FromSlash(sidecars[0])), []byte("x"), 0o644)

	second, err := agg.Get(context.Background(), "", []artifact.Kind{artifact.KindThumbnail})
	if err != nil {
		t.Fatal(err)
	}
	if second.Kinds[artifact.KindThumbnail].Processed != 0 {
		t.Errorf("expected stale cached report to still read 0 processed, got %+v", second.Kinds[artifact.KindThumbnail])
	}

	agg.Cache.Invalidate("a.mp4", artifact.KindThumbnail)
	agg.InvalidateDir("")
	third, err := agg.Get(context.Background(), "", []artifact.Kind{artifact.KindThumbnail})
	if err != nil {
		t.Fatal(err)
	}
	if third.Kinds[artifact.KindThumbnail].Processed != 1 {
		t.Errorf("expected 1 processed after invalidation, got %+v", third.Kinds[artifact.KindThumbnail])
	}
}

func TestInvalidateDirClearsAncestors(t *testing.T) {
	agg, _ := newTestAggregator(t, []string{"movies/action/a.mp4"})

	if _, err := agg.Get(context.Background(), "", []artifact.Kind{artifact.KindThumbnail}); err != nil {
		t.Fatal(err)
	}
	if _, ok := agg.cached(cacheKey("", []artifact.Kind{artifact.KindThumbnail})); !ok {
		t.Fatal("expected root report cached")
	}

	agg.InvalidateDir("movies/action")
	if _, ok := agg.cached(cacheKey("", []artifact.Kind{artifact.KindThumbnail})); ok {
		t.Error("root report should be invalidated by a change in a descendant directory")
	}
}

func TestRunBusInvalidationInvalidatesOnFinishedEvent(t *testing.T) {
	agg, root := newTestAggregator(t, []string{"movies/a.mp4"})
	b := bus.NewMemoryBus()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go agg.RunBusInvalidation(ctx, b)

	if _, err := agg.Get(context.Background(), "", []artifact.Kind{artifact.KindThumbnail}); err != nil {
		t.Fatal(err)
	}

	resolver := artifact.NewResolver(root)
	sidecars, _ := resolver.Resolve("movies/a.mp4", artifact.KindThumbnail)
	_ = os.WriteFile(filepath.Join(root, filepath.FromSlash(sidecars[0])), []byte("x"), 0o644)

	agg.Cache.Invalidate("movies/a.mp4", artifact.KindThumbnail)
	b.Publish(bus.Event{File: "movies/a.mp4", State: "finished"})

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		report, err := agg.Get(context.Background(), "", []artifact.Kind{artifact.KindThumbnail})
		if err != nil {
			t.Fatal(err)
		}
		if report.Kinds[artifact.KindThumbnail].Processed == 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("report never reflected sidecar after finished event invalidation")
}
