// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package artifact

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolvePrimarySidecarFirst(t *testing.T) {
	r := NewResolver(t.TempDir())

	sidecars, err := r.Resolve("movies/a.mp4", KindSprites)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	want := []string{"movies/.artifacts/a.sprites.jpg", "movies/.artifacts/a.sprites.vtt"}
	if len(sidecars) != len(want) {
		t.Fatalf("expected %d sidecars, got %v", len(want), sidecars)
	}
	for i := range want {
		if sidecars[i] != want[i] {
			t.Errorf("sidecar[%d] = %q, want %q", i, sidecars[i], want[i])
		}
	}
}

func TestResolveTopLevelFile(t *testing.T) {
	r := NewResolver(t.TempDir())

	sidecars, err := r.Resolve("a.mp4", KindThumbnail)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if sidecars[0] != ".artifacts/a.thumbnail.jpg" {
		t.Errorf("got %q", sidecars[0])
	}
}

func TestResolveRejectsUnknownKind(t *testing.T) {
	r := NewResolver(t.TempDir())
	if _, err := r.Resolve("a.mp4", Kind("bogus")); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestRoundTripResolveInferFromSidecar(t *testing.T) {
	r := NewResolver(t.TempDir())

	for _, k := range AllKinds {
		sidecars, err := r.Resolve("movies/my show s01e02.mp4", k)
		if err != nil {
			t.Fatalf("Resolve(%s) failed: %v", k, err)
		}

		gotKind, stem, ok := r.InferFromSidecar(sidecars[0])
		if !ok {
			t.Fatalf("InferFromSidecar(%s) did not match for kind %s", sidecars[0], k)
		}
		if gotKind != k {
			t.Errorf("InferFromSidecar(%s) kind = %s, want %s", sidecars[0], gotKind, k)
		}
		if stem != "my show s01e02" {
			t.Errorf("InferFromSidecar(%s) stem = %q, want %q", sidecars[0], stem, "my show s01e02")
		}
	}
}

func TestCanonicalizeRejectsEscape(t *testing.T) {
	root := t.TempDir()
	r := NewResolver(root)

	if _, _, err := r.Canonicalize("../../etc/passwd"); err == nil {
		t.Fatal("expected ErrInvalidPath for path escape")
	}
}

func TestCanonicalizeReportsDirectory(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "movies"), 0o755); err != nil {
		t.Fatal(err)
	}
	r := NewResolver(root)

	rel, isDir, err := r.Canonicalize("movies")
	if err != nil {
		t.Fatalf("Canonicalize() failed: %v", err)
	}
	if rel != "movies" || !isDir {
		t.Errorf("expected (movies, true), got (%s, %v)", rel, isDir)
	}
}
