// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package procgroup

import (
	"os/exec"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	terminateTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediavault_worker_proc_terminate_total",
		Help: "Total number of signals sent to worker subprocess groups",
	}, []string{"signal"})

	waitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mediavault_worker_proc_wait_total",
		Help: "Total number of worker subprocess exits observed after termination",
	}, []string{"result"})
)

// Terminate gracefully stops a process group: SIGTERM, wait up to
// grace, then SIGKILL. waitCh must deliver the result of the
// underlying cmd.Wait() exactly once. Safe to call on a nil cmd.
func Terminate(cmd *exec.Cmd, waitCh <-chan error, grace time.Duration) error {
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	if err := Kill(cmd, syscall.SIGTERM); err != nil {
		terminateTotal.WithLabelValues("sigterm_error").Inc()
	} else {
		terminateTotal.WithLabelValues("sigterm_sent").Inc()
	}

	select {
	case err := <-waitCh:
		if err == nil {
			waitTotal.WithLabelValues("exit0").Inc()
		} else {
			waitTotal.WithLabelValues("exit_nonzero").Inc()
		}
		return err
	case <-time.After(grace):
		if err := Kill(cmd, syscall.SIGKILL); err != nil {
			terminateTotal.WithLabelValues("sigkill_error").Inc()
		} else {
			terminateTotal.WithLabelValues("sigkill_sent").Inc()
		}

		err := <-waitCh
		if err == nil {
			waitTotal.WithLabelValues("forced_exit0").Inc()
		} else {
			waitTotal.WithLabelValues("forced_error").Inc()
		}
		return err
	}
}
