// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package artifact

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestProbeAbsentWhenSidecarMissing(t *testing.T) {
	root := t.TempDir()
	p := NewProbe(root, NewResolver(root), 2*time.Second)

	status := p.Check("a.mp4", time.Now(), KindThumbnail)
	if status.State != StateAbsent {
		t.Errorf("expected absent, got %s", status.State)
	}
}

func TestProbeAbsentWhenSidecarZeroBytes(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".artifacts"), 0o755); err != nil {
		t.Fatal(err)
	}
	sidecar := filepath.Join(root, ".artifacts", "a.thumbnail.jpg")
	if err := os.WriteFile(sidecar, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewProbe(root, NewResolver(root), 2*time.Second)
	status := p.Check("a.mp4", time.Now(), KindThumbnail)
	if status.State != StateAbsent {
		t.Errorf("expected zero-byte sidecar to be absent, got %s", status.State)
	}
}

func TestProbePresentWhenFresh(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".artifacts"), 0o755); err != nil {
		t.Fatal(err)
	}
	sourceModTime := time.Now().Add(-time.Hour)
	sidecar := filepath.Join(root, ".artifacts", "a.thumbnail.jpg")
	if err := os.WriteFile(sidecar, []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}

	p := NewProbe(root, NewResolver(root), 2*time.Second)
	status := p.Check("a.mp4", sourceModTime, KindThumbnail)
	if status.State != StatePresent {
		t.Errorf("expected present, got %s", status.State)
	}
	if status.SizeBytes != 4 {
		t.Errorf("expected size 4, got %d", status.SizeBytes)
	}
}

func TestProbeStaleWhenOlderThanSourceMinusTolerance(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".artifacts"), 0o755); err != nil {
		t.Fatal(err)
	}
	sidecar := filepath.Join(root, ".artifacts", "a.thumbnail.jpg")
	if err := os.WriteFile(sidecar, []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(sidecar, old, old); err != nil {
		t.Fatal(err)
	}

	p := NewProbe(root, NewResolver(root), 2*time.Second)
	status := p.Check("a.mp4", time.Now(), KindThumbnail)
	if status.State != StateStale {
		t.Errorf("expected stale, got %s", status.State)
	}
}

func TestProbeToleratesSmallClockSkew(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".artifacts"), 0o755); err != nil {
		t.Fatal(err)
	}
	sourceModTime := time.Now()
	sidecar := filepath.Join(root, ".artifacts", "a.thumbnail.jpg")
	if err := os.WriteFile(sidecar, []byte("jpeg"), 0o644); err != nil {
		t.Fatal(err)
	}
	slightlyOlder := sourceModTime.Add(-time.Second)
	if err := os.Chtimes(sidecar, slightlyOlder, slightlyOlder); err != nil {
		t.Fatal(err)
	}

	p := NewProbe(root, NewResolver(root), 2*time.Second)
	status := p.Check("a.mp4", sourceModTime, KindThumbnail)
	if status.State != StatePresent {
		t.Errorf("expected tolerance to keep sidecar present, got %s", status.State)
	}
}
