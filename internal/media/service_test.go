// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

type recordingPublisher struct {
	events []Event
}

func (p *recordingPublisher) Publish(ev Event) {
	p.events = append(p.events, ev)
}

func TestServiceTriggerScanPublishesEvents(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.mp4"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	store := newTestStore(t)
	pub := &recordingPublisher{}
	svc := NewService(store, NewScanner(store, root, 0, nil), pub)

	if _, err := svc.TriggerScan(context.Background()); err != nil {
		t.Fatalf("TriggerScan() failed: %v", err)
	}
	if len(pub.events) != 1 || pub.events[0].Type != EventAdded {
		t.Errorf("expected one added event, got %+v", pub.events)
	}
}

func TestServiceRemovePublishesEvent(t *testing.T) {
	store := newTestStore(t)
	pub := &recordingPublisher{}
	svc := NewService(store, NewScanner(store, t.TempDir(), 0, nil), pub)

	if err := svc.Remove(context.Background(), "gone.mp4"); err != nil {
		t.Fatalf("Remove() failed: %v", err)
	}
	if len(pub.events) != 1 || pub.events[0].Type != EventRemoved || pub.events[0].RelPath != "gone.mp4" {
		t.Errorf("expected one removed event for gone.mp4, got %+v", pub.events)
	}
}
