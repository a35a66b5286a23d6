// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package applog

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestConfigureDefaults(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf, Service: "", Version: "1.0"})

	Base().Info().Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log output: %v", err)
	}
	if entry["service"] != "mediavaultd" {
		t.Errorf("expected default service name, got %v", entry["service"])
	}
}

func TestSetLevelInvalid(t *testing.T) {
	Configure(Config{})
	if err := SetLevel(context.Background(), "tester", "not-a-level"); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestSetLevelNoopWhenUnchanged(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf, Level: "info"})
	buf.Reset()

	if err := SetLevel(context.Background(), "tester", "info"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != 0 {
		t.Error("expected no audit entry when level is unchanged")
	}
}

func TestAuditInfoBypassesLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf, Level: "error"})

	AuditInfo(context.Background(), "job.canceled", "job canceled by operator", map[string]any{
		"job_id": "01ARZ3NDEKTSV4RRFFQ69G5FAV",
	})

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected audit entry despite error-level filter: %v", err)
	}
	if entry[FieldEvent] != "job.canceled" {
		t.Errorf("expected event field, got %v", entry[FieldEvent])
	}
}

func TestMiddlewareAssignsRequestID(t *testing.T) {
	Configure(Config{Output: &bytes.Buffer{}})

	var seen string
	handler := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen == "" {
		t.Error("expected request ID to be populated in context")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID response header to be set")
	}
}

func TestMiddlewarePreservesExistingRequestID(t *testing.T) {
	Configure(Config{Output: &bytes.Buffer{}})

	const want = "req-fixed-123"
	var seen string
	handler := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req = req.WithContext(ContextWithRequestID(req.Context(), want))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != want {
		t.Errorf("expected request ID %q to survive middleware, got %q", want, seen)
	}
}

func TestWithComponent(t *testing.T) {
	Configure(Config{})
	l := WithComponent("scheduler")
	if l.GetLevel() > zerolog.PanicLevel {
		t.Error("expected a valid logger from WithComponent")
	}
}

func TestDerive(t *testing.T) {
	Configure(Config{})

	l1 := Derive(nil)
	if l1.GetLevel() > zerolog.PanicLevel {
		t.Error("expected valid logger from Derive with nil builder")
	}

	l2 := Derive(func(ctx *zerolog.Context) {
		*ctx = ctx.Str("custom_field", "value")
	})
	if l2.GetLevel() > zerolog.PanicLevel {
		t.Error("expected valid logger from Derive with custom builder")
	}
}
