// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "media.db"))
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestScanIndexesFilesRecursively(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "movies"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "a.mp4"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "movies", "b.mkv"), []byte("yy"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "readme.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := newTestStore(t)
	scanner := NewScanner(store, root, 0, []string{".mp4", ".mkv"})

	result, events, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	if result.TotalWalked != 2 {
		t.Errorf("expected 2 files walked, got %d", result.TotalWalked)
	}
	if result.Inserted != 2 {
		t.Errorf("expected 2 inserted, got %d", result.Inserted)
	}
	if len(events) != 2 {
		t.Errorf("expected 2 events, got %d", len(events))
	}

	files, err := store.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() failed: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files in inventory, got %d", len(files))
	}

	f, err := store.Get(context.Background(), "movies/b.mkv")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if f == nil {
		t.Fatal("expected movies/b.mkv to be indexed")
	}
	if f.SizeBytes != 2 {
		t.Errorf("expected size 2, got %d", f.SizeBytes)
	}
}

func TestScanRemovesDeletedFiles(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.mp4")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := newTestStore(t)
	scanner := NewScanner(store, root, 0, nil)

	if _, _, err := scanner.Scan(context.Background()); err != nil {
		t.Fatalf("first Scan() failed: %v", err)
	}

	// ensure the second scan's scan_time is strictly after the first's
	time.Sleep(5 * time.Millisecond)
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}

	result, events, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("second Scan() failed: %v", err)
	}
	if result.Removed != 1 {
		t.Errorf("expected 1 removed, got %d", result.Removed)
	}
	if len(events) != 1 || events[0].Type != EventRemoved || events[0].RelPath != "a.mp4" {
		t.Errorf("expected one removal event for a.mp4, got %+v", events)
	}

	files, err := store.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll() failed: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected empty inventory after removal, got %d files", len(files))
	}
}

func TestScanRespectsMaxDepth(t *testing.T) {
	root := t.TempDir()
	deep := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(deep, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "a", "top.mp4"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(deep, "nested.mp4"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := newTestStore(t)
	scanner := NewScanner(store, root, 1, nil)

	result, _, err := scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	if result.TotalWalked != 1 {
		t.Errorf("expected maxDepth=1 to walk only 1 file, got %d", result.TotalWalked)
	}
}

func TestListDirIsNonRecursive(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "movies", "nested"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "movies", "top.mp4"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "movies", "nested", "sub.mp4"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := newTestStore(t)
	scanner := NewScanner(store, root, 0, nil)
	if _, _, err := scanner.Scan(context.Background()); err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}

	shallow, err := store.ListDir(context.Background(), "movies")
	if err != nil {
		t.Fatalf("ListDir() failed: %v", err)
	}
	if len(shallow) != 1 || shallow[0].RelPath != "movies/top.mp4" {
		t.Errorf("expected only movies/top.mp4, got %+v", shallow)
	}

	recursive, err := store.ListUnderDir(context.Background(), "movies")
	if err != nil {
		t.Fatalf("ListUnderDir() failed: %v", err)
	}
	if len(recursive) != 2 {
		t.Errorf("expected 2 files under movies recursively, got %d", len(recursive))
	}
}
