// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package worker

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/mediavault/core/internal/applog"
	"github.com/mediavault/core/internal/procgroup"
)

// runTool runs one external-tool invocation to completion, capturing
// its stderr tail for error reporting and terminating the whole
// process group (SIGTERM, then SIGKILL after grace) if ctx is
// canceled before it exits.
func runTool(ctx context.Context, binPath string, args []string, grace time.Duration) error {
	log := applog.WithComponent("worker.exec")

	cmd := exec.Command(binPath, args...) // #nosec G204 -- binPath/args are operator-configured, not user input
	procgroup.Set(cmd)

	ring := newLineRing(256)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("capture stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", binPath, err)
	}

	done := make(chan struct{})
	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			_, _ = ring.Write(scanner.Bytes())
			_, _ = ring.Write([]byte("\n"))
		}
		close(done)
	}()

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		<-done
		if err := procgroup.Terminate(cmd, waitCh, grace); err != nil {
			log.Warn().Err(err).Strs("stderr", ring.LastN(20)).Msg("worker tool terminated with error after cancel")
		}
		return ErrCanceled
	case err := <-waitCh:
		<-done
		if err != nil {
			return fmt.Errorf("%s: %w: %s", binPath, err, strings.Join(ring.LastN(20), " | "))
		}
		return nil
	}
}
