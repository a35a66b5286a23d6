// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/mediavault/core/internal/applog"
	"github.com/mediavault/core/internal/config"
)

// TestManagerRegisterShutdownHookRunsLIFO verifies that RegisterShutdownHook
// hooks run in reverse registration order, so a hook registered last (and
// therefore holding the outermost resource) closes first.
func TestManagerRegisterShutdownHookRunsLIFO(t *testing.T) {
	deps := Deps{
		Logger: applog.WithComponent("test"),
		Config: config.AppConfig{
			HTTPListenAddr: "127.0.0.1:0",
			ShutdownGrace:  2 * time.Second,
		},
		APIHandler: http.NotFoundHandler(),
		Scheduler:  newTestScheduler(t),
	}

	mgrIface, err := NewManager(deps)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	mgr := mgrIface.(*manager)

	var order []string
	mgr.RegisterShutdownHook("first", func(context.Context) error {
		order = append(order, "first")
		return nil
	})
	mgr.RegisterShutdownHook("second", func(context.Context) error {
		order = append(order, "second")
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- mgr.Start(ctx)
	}()

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("manager.Start did not return after cancellation")
	}

	if len(order) != 2 || order[0] != "second" || order[1] != "first" {
		t.Fatalf("shutdown hooks ran in order %v, want [second first]", order)
	}
}
