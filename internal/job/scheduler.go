// Copyright (c) 2026 mediavault
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package job

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/mediavault/core/internal/applog"
	"github.com/mediavault/core/internal/artifact"
	"github.com/mediavault/core/internal/bus"
	"github.com/mediavault/core/internal/job/store"
	"github.com/mediavault/core/internal/metrics"
	"github.com/mediavault/core/internal/telemetry"
	"github.com/mediavault/core/internal/worker"
	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// claimKey identifies the one active job a (target, kind) pair may
// hold: a file may have at most one active job per artifact kind.
type claimKey struct {
	target string
	task   string
}

// Scheduler is the single coordinator admitting queued jobs onto
// worker slots bounded by a global cap and per-tool-class caps.
// Grounded on the teacher's pipeline/worker.Orchestrator: a mutex
// covering shared scheduling state, and an `active` map of
// per-job context.CancelFunc used to deliver cancellation, but
// generalized from one-session-per-service to N-slots-per-tool-class
// admission with FIFO selection instead of lease-gated single-writer
// sessions.
type Scheduler struct {
	Root     string
	Store    store.Store
	Registry *worker.Registry
	Bus      *bus.MemoryBus
	Cache    *artifact.Cache

	mu            sync.Mutex
	globalMax     int
	toolCaps      map[string]int
	toolTimeouts  map[string]time.Duration
	cancelGrace   time.Duration
	paused        bool
	runningCount  int
	toolRunning   map[string]int
	claims        map[claimKey]string
	active        map[string]context.CancelFunc
	lastProgress  map[string]time.Time
	wake          chan struct{}
}

// NewScheduler builds a Scheduler with the given resource limits.
// toolCaps/toolTimeouts are copied so later mutation by the caller
// does not alias scheduler state. cache may be nil, in which case the
// scheduler skips probe-cache bookkeeping entirely.
func NewScheduler(root string, st store.Store, reg *worker.Registry, b *bus.MemoryBus, cache *artifact.Cache, globalMax int, toolCaps map[string]int, toolTimeouts map[string]time.Duration, cancelGrace time.Duration) *Scheduler {
	caps := make(map[string]int, len(toolCaps))
	for k, v := range toolCaps {
		caps[k] = v
	}
	timeouts := make(map[string]time.Duration, len(toolTimeouts))
	for k, v := range toolTimeouts {
		timeouts[k] = v
	}
	return &Scheduler{
		Root:         root,
		Store:        st,
		Registry:     reg,
		Bus:          b,
		Cache:        cache,
		globalMax:    globalMax,
		toolCaps:     caps,
		toolTimeouts: timeouts,
		cancelGrace:  cancelGrace,
		toolRunning:  make(map[string]int),
		claims:       make(map[claimKey]string),
		active:       make(map[string]context.CancelFunc),
		lastProgress: make(map[string]time.Time),
		wake:         make(chan struct{}, 1),
	}
}

// triggerAdmission asks the Run loop to re-evaluate admission without
// blocking the caller.
func (s *Scheduler) triggerAdmission() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run drives the admission loop until ctx is canceled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.triggerAdmission()
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
			s.admit(ctx)
		case <-ticker.C:
			// Periodic sweep: catches admission opportunities that
			// don't arrive via an explicit trigger (e.g. a tool cap
			// raised externally without a matching wake).
			s.admit(ctx)
		}
	}
}

// Enqueue stores rec in StateQueued and wakes the admission loop. The
// planner is responsible for ULID ordering and duplicate-claim
// avoidance before calling Enqueue.
func (s *Scheduler) Enqueue(ctx context.Context, rec *Record) error {
	if err := s.Store.Enqueue(ctx, rec); err != nil {
		return err
	}
	s.Bus.Publish(bus.Event{JobID: rec.ID, Task: rec.Task, Artifact: rec.Artifact, File: rec.Target, State: string(StateQueued), TsUnix: rec.Created.Unix()})
	s.triggerAdmission()
	return nil
}

// HasActiveClaim reports whether (target, task) currently has a
// queued-or-running job, used by the planner to skip duplicates when
// re-issuing an idempotent batch.
func (s *Scheduler) HasActiveClaim(target, task string) bool {
	s.mu.Lock()
	_, ok := s.claims[claimKey{target: target, task: task}]
	s.mu.Unlock()
	if ok {
		return true
	}
	queued, err := s.Store.List(context.Background(), Filter{States: []State{StateQueued}, Target: target, Task: task})
	return err == nil && len(queued) > 0
}

func (s *Scheduler) admit(ctx context.Context) {
	s.mu.Lock()
	if s.paused {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	queued, err := s.Store.List(ctx, Filter{States: []State{StateQueued}})
	if err != nil {
		applog.WithComponent("job.scheduler").Error().Err(err).Msg("list queued jobs")
		return
	}
	sort.Slice(queued, func(i, j int) bool {
		if !queued[i].Created.Equal(queued[j].Created) {
			return queued[i].Created.Before(queued[j].Created)
		}
		return queued[i].ID < queued[j].ID
	})

	admitted := 0
	for _, rec := range queued {
		if rec.Paused {
			continue
		}
		if s.tryAdmit(ctx, rec) {
			admitted++
		}
	}
	metrics.SchedulerQueueDepth.Set(float64(len(queued) - admitted))
}

func (s *Scheduler) tryAdmit(ctx context.Context, rec *Record) bool {
	w, err := s.Registry.Get(artifact.Kind(rec.Task))
	if err != nil {
		// Composite/unknown task kinds are the planner's concern; a
		// job the registry doesn't recognize can never run.
		_, _ = s.Store.Update(ctx, rec.ID, func(r *Record) error {
			r.State = StateFailed
			r.Error = err.Error()
			r.Ended = time.Now()
			return nil
		})
		return false
	}
	toolClass := w.ToolClass()
	key := claimKey{target: rec.Target, task: rec.Task}

	s.mu.Lock()
	if s.runningCount >= s.globalMax {
		s.mu.Unlock()
		return false
	}
	if cap, ok := s.toolCaps[toolClass]; ok && s.toolRunning[toolClass] >= cap {
		s.mu.Unlock()
		return false
	}
	if _, claimed := s.claims[key]; claimed {
		s.mu.Unlock()
		return false
	}
	s.runningCount++
	s.toolRunning[toolClass]++
	s.claims[key] = rec.ID
	runCtx, cancel := context.WithCancel(ctx)
	s.active[rec.ID] = cancel
	s.mu.Unlock()

	metrics.SchedulerOccupancy.WithLabelValues(toolClass).Inc()

	if s.Cache != nil {
		s.Cache.MarkGenerating(rec.Target, artifact.Kind(rec.Task))
	}

	go s.execute(runCtx, cancel, rec, w, toolClass, key)
	return true
}

func (s *Scheduler) execute(ctx context.Context, cancel context.CancelFunc, rec *Record, w worker.Worker, toolClass string, key claimKey) {
	log := applog.WithComponent("job.scheduler")
	defer func() {
		s.mu.Lock()
		s.runningCount--
		s.toolRunning[toolClass]--
		delete(s.claims, key)
		delete(s.active, rec.ID)
		s.mu.Unlock()
		metrics.SchedulerOccupancy.WithLabelValues(toolClass).Dec()
		cancel()
		s.triggerAdmission()
	}()

	now := time.Now()
	started, err := s.Store.Update(ctx, rec.ID, func(r *Record) error {
		r.State = StateStarting
		r.Started = now
		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("job", rec.ID).Msg("transition to starting")
		return
	}
	s.Bus.Publish(bus.Event{JobID: rec.ID, Task: rec.Task, Artifact: rec.Artifact, File: rec.Target, State: string(StateStarting), TsUnix: now.Unix()})

	runCtx := ctx
	var timeoutCancel context.CancelFunc
	if d, ok := s.toolTimeouts[toolClass]; ok && d > 0 {
		runCtx, timeoutCancel = context.WithTimeout(ctx, d)
		defer timeoutCancel()
	}

	if _, err := s.Store.Update(ctx, rec.ID, func(r *Record) error {
		r.State = StateRunning
		return nil
	}); err != nil {
		log.Error().Err(err).Str("job", rec.ID).Msg("transition to running")
		return
	}
	s.Bus.Publish(bus.Event{JobID: rec.ID, Task: rec.Task, Artifact: rec.Artifact, File: rec.Target, State: string(StateRunning), TsUnix: time.Now().Unix()})

	absPath := filepath.Join(s.Root, filepath.FromSlash(rec.Target))
	progress := func(processed, total int, note string) {
		s.reportProgress(rec.ID, rec.Task, rec.Artifact, rec.Target, processed, total)
	}

	workspace, cleanup, err := newWorkspace()
	if err != nil {
		s.finish(rec.ID, rec.Task, rec.Artifact, rec.Target, StateFailed, fmt.Sprintf("workspace: %v", err), nil)
		return
	}
	defer cleanup()

	tracer := telemetry.Tracer("mediavault.job")
	runCtx, span := tracer.Start(runCtx, "job.execute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("job.id", rec.ID),
			attribute.String("job.task", rec.Task),
			attribute.String("job.artifact", rec.Artifact),
			attribute.String("job.tool_class", toolClass),
		),
	)
	defer span.End()

	result, runErr := w.Run(runCtx, worker.RunRequest{
		MediaRelPath: rec.Target,
		MediaAbsPath: absPath,
		Params:       started.Params,
		Workspace:    workspace,
		Report:       progress,
	})

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		// runCtx carries the tool-class timeout deadline; its own
		// expiry (as opposed to the outer per-job cancel token firing)
		// is a failure, not a cancellation.
		span.SetStatus(codes.Error, "timeout")
		s.finish(rec.ID, rec.Task, rec.Artifact, rec.Target, StateFailed, "timeout", nil)
	case runErr == worker.ErrCanceled || ctx.Err() != nil:
		span.SetStatus(codes.Error, "canceled")
		s.finish(rec.ID, rec.Task, rec.Artifact, rec.Target, StateCanceled, "", nil)
	case runErr != nil:
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
		s.finish(rec.ID, rec.Task, rec.Artifact, rec.Target, StateFailed, runErr.Error(), nil)
	default:
		s.finish(rec.ID, rec.Task, rec.Artifact, rec.Target, StateCompleted, "", result.Detail)
	}
}

func (s *Scheduler) reportProgress(id, task, artifactTag, target string, processed, total int) {
	s.mu.Lock()
	last, ok := s.lastProgress[id]
	now := time.Now()
	if ok && now.Sub(last) < 250*time.Millisecond {
		s.mu.Unlock()
		return
	}
	s.lastProgress[id] = now
	s.mu.Unlock()

	pct := 0
	if total > 0 {
		pct = processed * 100 / total
	}
	_, _ = s.Store.Update(context.Background(), id, func(r *Record) error {
		r.Processed = processed
		r.Total = total
		r.Progress = &pct
		return nil
	})
	s.Bus.Publish(bus.Event{JobID: id, Task: task, Artifact: artifactTag, File: target, State: string(StateRunning), Progress: &pct, TsUnix: now.Unix()})
}

func (s *Scheduler) finish(id, task, artifactTag, target string, final State, errMsg string, result map[string]any) {
	ended := time.Now()
	if s.Cache != nil {
		s.Cache.Invalidate(target, artifact.Kind(task))
	}
	var fullPct *int
	if final == StateCompleted {
		p := 100
		fullPct = &p
	}
	rec, _ := s.Store.Update(context.Background(), id, func(r *Record) error {
		r.State = final
		r.Ended = ended
		r.Error = errMsg
		r.Result = result
		if fullPct != nil {
			r.Progress = fullPct
		}
		return nil
	})
	metrics.JobsTotal.WithLabelValues(task, string(final)).Inc()
	if rec != nil && !rec.Started.IsZero() {
		metrics.JobDuration.WithLabelValues(task).Observe(ended.Sub(rec.Started).Seconds())
	}
	s.Bus.Publish(bus.Event{JobID: id, Task: task, Artifact: artifactTag, File: target, State: string(final), Error: errMsg, Progress: fullPct, TsUnix: ended.Unix()})
	s.Bus.Publish(bus.Event{JobID: id, Task: task, Artifact: artifactTag, File: target, State: "finished", TsUnix: ended.Unix()})
}

// CancelJob cancels one job by ID: immediate for a queued job (no
// worker invoked), signaled-then-force-terminal for a running job.
func (s *Scheduler) CancelJob(ctx context.Context, id string) error {
	s.mu.Lock()
	cancel, running := s.active[id]
	s.mu.Unlock()

	if running {
		cancel()
		return nil
	}

	_, err := s.Store.Update(ctx, id, func(r *Record) error {
		if r.State != StateQueued {
			return fmt.Errorf("job %s is not queued", id)
		}
		r.State = StateCanceled
		r.Ended = time.Now()
		return nil
	})
	if err == nil {
		s.Bus.Publish(bus.Event{JobID: id, State: string(StateCanceled), TsUnix: time.Now().Unix()})
	}
	return err
}

// CancelQueuedAll cancels every currently queued job without touching
// running jobs.
func (s *Scheduler) CancelQueuedAll(ctx context.Context) ([]string, error) {
	ids, err := s.Store.CancelQueuedAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		s.Bus.Publish(bus.Event{JobID: id, State: string(StateCanceled), TsUnix: time.Now().Unix()})
	}
	return ids, nil
}

// CancelAllActive signals every running job's cancellation token.
func (s *Scheduler) CancelAllActive() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cancel := range s.active {
		cancel()
	}
	return len(s.active)
}

// ClearFinished deletes every terminal job record.
func (s *Scheduler) ClearFinished(ctx context.Context) (int, error) {
	return s.Store.ClearFinished(ctx)
}

// Pause sets the global pause flag: no new admissions occur, but
// running jobs continue to completion.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	s.paused = true
	s.mu.Unlock()
}

// Resume clears the global pause flag and wakes the admission loop.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	s.paused = false
	s.mu.Unlock()
	s.triggerAdmission()
}

// SetGlobalMax updates the global concurrency cap, effective
// immediately for future admissions.
func (s *Scheduler) SetGlobalMax(n int) {
	s.mu.Lock()
	s.globalMax = n
	s.mu.Unlock()
	s.triggerAdmission()
}

// SetToolCap updates the per-tool-class cap, effective immediately
// for future admissions.
func (s *Scheduler) SetToolCap(class string, n int) {
	s.mu.Lock()
	s.toolCaps[class] = n
	s.mu.Unlock()
	s.triggerAdmission()
}

// NewJobID returns a creation-sortable opaque job ID.
func NewJobID() string {
	return ulid.Make().String()
}

// Paused reports the current global pause flag, for the pause status
// endpoint.
func (s *Scheduler) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// GlobalMax returns the current global concurrency cap.
func (s *Scheduler) GlobalMax() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.globalMax
}

// ToolCaps returns a copy of the current per-tool-class caps.
func (s *Scheduler) ToolCaps() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.toolCaps))
	for k, v := range s.toolCaps {
		out[k] = v
	}
	return out
}

// Occupancy returns a copy of the current per-tool-class running
// counts, for the jobs/stats endpoint.
func (s *Scheduler) Occupancy() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.toolRunning))
	for k, v := range s.toolRunning {
		out[k] = v
	}
	return out
}
