// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package worker

import (
	"context"
	"testing"

	"github.com/mediavault/core/internal/artifact"
)

type fakeWorker struct {
	kind artifact.Kind
}

func (f fakeWorker) Kind() artifact.Kind                           { return f.kind }
func (f fakeWorker) ToolClass() string                             { return "fake" }
func (f fakeWorker) Plan(string, map[string]any) ([]string, error) { return nil, nil }
func (f fakeWorker) Validate(params map[string]any) (map[string]any, error) {
	return params, nil
}
func (f fakeWorker) Run(context.Context, RunRequest) (RunResult, error) {
	return RunResult{}, nil
}

func TestRegistryGetUnknownKind(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Get(artifact.KindThumbnail); err == nil {
		t.Fatal("expected error for unregistered kind")
	}
}

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	reg.Register(fakeWorker{kind: artifact.KindThumbnail})

	w, err := reg.Get(artifact.KindThumbnail)
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if w.Kind() != artifact.KindThumbnail {
		t.Errorf("Kind() = %s, want %s", w.Kind(), artifact.KindThumbnail)
	}
}

func TestRegistryRegisterReplacesExisting(t *testing.T) {
	reg := NewRegistry()
	reg.Register(fakeWorker{kind: artifact.KindThumbnail})
	reg.Register(fakeWorker{kind: artifact.KindThumbnail})

	if len(reg.Kinds()) != 1 {
		t.Errorf("expected 1 registered kind, got %d", len(reg.Kinds()))
	}
}
