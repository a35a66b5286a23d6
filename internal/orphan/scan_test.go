// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package orphan

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mediavault/core/internal/artifact"
	"github.com/mediavault/core/internal/media"
)

func newTestLibrary(t *testing.T, mediaFiles, extraSidecars []string) (*Scanner, string) {
	t.Helper()
	root := t.TempDir()

	for _, f := range append(append([]string{}, mediaFiles...), extraSidecars...) {
		abs := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte("x"), 0o644); err != nil {
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
	for _, f := range mediaFiles {
		if _, err := store.UpsertFile(ctx, tx, media.File{RelPath: f, Filename: filepath.Base(f), ModTime: now, ScanTime: now}); err != nil {
			t.Fatal(err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	svc := media.NewService(store, nil, nil)
	resolver := artifact.NewResolver(root)
	return NewScanner(root, resolver, svc), root
}

func TestScanFindsOrphanWithNoMatchingMediaFile(t *testing.T) {
	s, _ := newTestLibrary(t, []string{"movies/a.mp4"}, []string{"movies/.artifacts/stray.thumbnail.jpg"})

	entries, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %+v, want exactly 1", entries)
	}
	got := entries[0]
	if got.Kind != artifact.KindThumbnail || got.Stem != "stray" || got.MediaDir != "movies" {
		t.Errorf("entry = %+v, want Kind=thumbnail Stem=stray MediaDir=movies", got)
	}
}

func TestScanSkipsSidecarWithMatchingMediaFile(t *testing.T) {
	s, root := newTestLibrary(t, []string{"movies/a.mp4"}, nil)
	resolver := artifact.NewResolver(root)
	sidecars, err := resolver.Resolve("movies/a.mp4", artifact.KindThumbnail)
	if err != nil {
		t.Fatal(err)
	}
	abs := filepath.Join(root, filepath.FromSlash(sidecars[0]))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %+v, want none (media file exists)", entries)
	}
}

func TestScanIgnoresFilesThatMatchNoTemplate(t *testing.T) {
	s, _ := newTestLibrary(t, []string{"movies/a.mp4"}, []string{"movies/.artifacts/readme.txt"})

	entries, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("entries = %+v, want none (readme.txt matches no template)", entries)
	}
}

func TestStreamSuggestionsEmitsItemAndFinalProgress(t *testing.T) {
	s, _ := newTestLibrary(t,
		[]string{"movies/my.show.s01e01.mp4"},
		[]string{"movies/.artifacts/My.Show.S01E01.thumbnail.jpg"},
	)

	var items, progress int
	err := s.StreamSuggestions(context.Background(), 0.60, func(ev StreamEvent) error {
		switch ev.Type {
		case StreamItem:
			items++
		case StreamProgress:
			progress++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("StreamSuggestions() failed: %v", err)
	}
	if items != 1 {
		t.Errorf("items = %d, want 1", items)
	}
	if progress == 0 {
		t.Error("expected at least one progress record")
	}
}

func TestStreamSuggestionsStopsOnEmitError(t *testing.T) {
	s, _ := newTestLibrary(t,
		[]string{"a.mp4", "b.mp4"},
		[]string{
			"a.artifacts_unused", // not a real sidecar, ignored
			".artifacts/My.A.thumbnail.jpg",
			".artifacts/My.B.thumbnail.jpg",
		},
	)

	calls := 0
	stopErr := context.Canceled
	err := s.StreamSuggestions(context.Background(), 0.0, func(ev StreamEvent) error {
		calls++
		return stopErr
	})
	if err != stopErr {
		t.Errorf("StreamSuggestions() err = %v, want %v", err, stopErr)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want exactly 1 (stopped on first emit error)", calls)
	}
}
