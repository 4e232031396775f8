// Package supervisor runs at most one external task process at a time,
// driven by commands from a commands.Bus.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-commander/core/commands"
	"github.com/koscakluka/ema-commander/core/events"
	"github.com/koscakluka/ema-commander/core/tasks"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultTaskTimeout      = 60 * time.Second
	DefaultGracePeriod      = 5 * time.Second
	DefaultKillWait         = 2 * time.Second
	DefaultPollInterval     = 100 * time.Millisecond
	DefaultIdlePollInterval = 500 * time.Millisecond
)

var ErrAlreadyRunning = errors.New("supervisor already running")

// Announcer receives spoken status messages. Announce must not block.
type Announcer interface {
	Announce(text string) error
}

type Supervisor struct {
	bus      *commands.Bus
	table    *tasks.Table
	launch   *tasks.LaunchTemplate
	launcher Launcher

	announcer Announcer
	emit      events.Emitter

	taskTimeout      time.Duration
	gracePeriod      time.Duration
	killWait         time.Duration
	pollInterval     time.Duration
	idlePollInterval time.Duration

	// current and pending are owned by the Run goroutine.
	current *taskHandle
	pending *commands.Command

	status  atomic.Pointer[Status]
	running atomic.Bool
}

// taskHandle is the single live task. Only the Run goroutine touches it.
type taskHandle struct {
	ref       events.TaskRef
	process   Process
	startedAt time.Time
	span      trace.Span
}

type Option func(*Supervisor)

func WithTaskTimeout(timeout time.Duration) Option {
	return func(s *Supervisor) { s.taskTimeout = timeout }
}

// WithGracePeriod sets how long a task may take to exit after the interrupt
// before it is killed.
func WithGracePeriod(grace time.Duration) Option {
	return func(s *Supervisor) { s.gracePeriod = grace }
}

// WithKillWait sets how long to wait for a killed process to be reaped before
// reporting it as orphaned.
func WithKillWait(wait time.Duration) Option {
	return func(s *Supervisor) { s.killWait = wait }
}

// WithPollInterval sets the command poll bound while a task runs, which is
// also the resolution of the timeout and natural exit checks.
func WithPollInterval(interval time.Duration) Option {
	return func(s *Supervisor) { s.pollInterval = interval }
}

func WithIdlePollInterval(interval time.Duration) Option {
	return func(s *Supervisor) { s.idlePollInterval = interval }
}

func WithLauncher(launcher Launcher) Option {
	return func(s *Supervisor) { s.launcher = launcher }
}

func WithAnnouncer(announcer Announcer) Option {
	return func(s *Supervisor) { s.announcer = announcer }
}

func WithEventEmitter(emit events.Emitter) Option {
	return func(s *Supervisor) { s.emit = emit }
}

func New(bus *commands.Bus, table *tasks.Table, launch *tasks.LaunchTemplate, opts ...Option) *Supervisor {
	s := &Supervisor{
		bus:              bus,
		table:            table,
		launch:           launch,
		launcher:         ExecLauncher{},
		taskTimeout:      DefaultTaskTimeout,
		gracePeriod:      DefaultGracePeriod,
		killWait:         DefaultKillWait,
		pollInterval:     DefaultPollInterval,
		idlePollInterval: DefaultIdlePollInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.emit = events.Safe(s.emit)
	s.publish(idleStatus)

	return s
}

// Status returns the latest published snapshot.
func (s *Supervisor) Status() Status {
	return *s.status.Load()
}

// IsRunningTask reports whether a live process for taskKey, or the task owning
// that alias, is the current task.
func (s *Supervisor) IsRunningTask(taskKey string) bool {
	status := s.Status()
	return status.TaskKey == s.table.Canonical(taskKey) && status.Alive()
}

// Run consumes commands until ctx is done. On return any running task has
// been through the termination sequence. Run may only be active once at a time.
func (s *Supervisor) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer s.running.Store(false)

	logger.Info("supervisor started",
		"task_timeout", s.taskTimeout, "grace_period", s.gracePeriod)

	for ctx.Err() == nil {
		if s.current == nil {
			s.idleStep(ctx)
		} else {
			s.runningStep(ctx)
		}
	}

	if s.current != nil {
		s.terminate(context.WithoutCancel(ctx), events.StopReasonShutdown)
	}
	if s.pending != nil {
		logger.Debug("discarding pending command on shutdown", "command", s.pending.String())
		s.pending = nil
	}
	logger.Info("supervisor stopped")

	return nil
}

func (s *Supervisor) idleStep(ctx context.Context) {
	cmd, ok := s.next(ctx, s.idlePollInterval)
	if !ok {
		return
	}

	switch {
	case cmd.IsStop():
		logger.Debug("stop ignored, no task running", "source", cmd.Source())
	case cmd.IsStartTask():
		s.start(ctx, cmd.TaskKey())
	}
}

// runningStep acts on exactly one of natural exit, command, or timeout, in
// that order of priority.
func (s *Supervisor) runningStep(ctx context.Context) {
	h := s.current

	if !h.process.Alive() {
		s.complete(h)
		return
	}

	if cmd, ok := s.next(ctx, s.pollInterval); ok {
		if !h.process.Alive() {
			s.pending = &cmd
			s.complete(h)
			return
		}
		s.handleWhileRunning(ctx, cmd)
		return
	}

	if ctx.Err() != nil {
		return
	}

	// The process may have exited while the bus was polled.
	if !h.process.Alive() {
		s.complete(h)
		return
	}

	if elapsed := time.Since(h.startedAt); elapsed >= s.taskTimeout {
		logger.Warn("task timed out", "task", h.ref.TaskKey, "pid", h.ref.PID, "elapsed", elapsed)
		s.announce("Timeout reached")
		s.terminate(ctx, events.StopReasonTimeout)
	}
}

func (s *Supervisor) handleWhileRunning(ctx context.Context, cmd commands.Command) {
	h := s.current

	switch {
	case cmd.IsStop():
		logger.Info("stop requested", "task", h.ref.TaskKey, "source", cmd.Source())
		s.announce("Stop command received, stopping current task")
		s.terminate(ctx, events.StopReasonRequested)

	case cmd.IsStartTask():
		key := s.table.Canonical(cmd.TaskKey())
		if key == h.ref.TaskKey {
			logger.Info("task already running, ignoring duplicate command", "task", key, "pid", h.ref.PID)
			s.emit(events.NewTaskDuplicateIgnored(h.ref))
			return
		}

		logger.Info("preempting task", "task", h.ref.TaskKey, "next", key)
		s.terminate(ctx, events.StopReasonPreempted)
		if ctx.Err() != nil {
			return
		}
		s.start(ctx, key)
	}
}

// next returns a command held back from the previous iteration, or polls the bus.
func (s *Supervisor) next(ctx context.Context, timeout time.Duration) (commands.Command, bool) {
	if s.pending != nil {
		cmd := *s.pending
		s.pending = nil
		return cmd, true
	}
	return s.bus.Poll(ctx, timeout)
}

func (s *Supervisor) start(ctx context.Context, taskKey string) {
	descriptor, err := s.table.Resolve(taskKey)
	if err != nil {
		logger.Error("unknown task", "task", taskKey, "err", err)
		s.emit(events.NewTaskUnknown(taskKey))
		s.announce(fmt.Sprintf("Unknown task: %s", taskKey))
		return
	}

	args, err := s.launch.Args(descriptor, time.Now())
	if err != nil {
		s.spawnFailed(descriptor, fmt.Errorf("%w: %w", ErrSpawn, err))
		return
	}

	process, err := s.launcher.Launch(args)
	if err != nil {
		s.spawnFailed(descriptor, err)
		return
	}

	ref := events.TaskRef{
		RunID:   uuid.NewString(),
		TaskKey: descriptor.Key,
		Name:    descriptor.Name,
		PID:     process.PID(),
	}
	_, span := tracer.Start(ctx, "task run", trace.WithAttributes(
		attribute.String("task.key", ref.TaskKey),
		attribute.String("task.run_id", ref.RunID),
		attribute.Int("task.pid", ref.PID),
	))

	s.current = &taskHandle{ref: ref, process: process, startedAt: time.Now(), span: span}
	s.publish(Status{
		State:     StateRunning,
		RunID:     ref.RunID,
		TaskKey:   ref.TaskKey,
		TaskName:  ref.Name,
		PID:       ref.PID,
		StartedAt: s.current.startedAt,
		process:   process,
	})

	startedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("task", ref.TaskKey)))
	logger.Info("task started", "task", ref.TaskKey, "name", ref.Name, "pid", ref.PID,
		"run_id", ref.RunID, "max_duration", s.taskTimeout)
	s.emit(events.NewTaskStarted(ref))
	s.announce(fmt.Sprintf("%s detected, starting task", capitalize(ref.TaskKey)))
}

func (s *Supervisor) spawnFailed(descriptor tasks.Descriptor, err error) {
	logger.Error("failed to start task", "task", descriptor.Key, "err", err)
	s.emit(events.NewTaskStartFailed(descriptor.Key, err))
	s.announce(fmt.Sprintf("Could not start task %s", descriptor.Key))
}

func (s *Supervisor) complete(h *taskHandle) {
	runtime := time.Since(h.startedAt)
	exitCode := h.process.ExitCode()

	logger.Info("task completed", "task", h.ref.TaskKey, "pid", h.ref.PID,
		"exit_code", exitCode, "runtime", runtime)
	s.emit(events.NewTaskCompleted(h.ref, exitCode, runtime))
	s.announce("Task completed")

	finishedCounter.Add(context.Background(), 1, metric.WithAttributes(attribute.String("reason", "completed")))
	h.span.SetAttributes(attribute.String("task.reason", "completed"), attribute.Int("task.exit_code", exitCode))
	h.span.End()
	s.clear()
}

// terminate runs the interrupt, grace, kill sequence on the current task and
// returns once the process is gone or known to be orphaned.
func (s *Supervisor) terminate(ctx context.Context, reason events.StopReason) {
	h := s.current
	if h == nil {
		return
	}

	ctx = trace.ContextWithSpan(ctx, h.span)
	ctx, span := tracer.Start(ctx, "terminate task", trace.WithAttributes(
		attribute.String("task.key", h.ref.TaskKey),
		attribute.String("task.reason", string(reason)),
	))
	defer span.End()

	logger.Info("stopping task", "task", h.ref.TaskKey, "pid", h.ref.PID, "reason", reason)
	s.emit(events.NewTaskInterruptSent(h.ref, reason))
	if err := h.process.RequestGracefulStop(); err != nil && h.process.Alive() {
		logger.Warn("failed to interrupt task", "task", h.ref.TaskKey, "pid", h.ref.PID, "err", err)
	}

	forced := false
	if h.process.Wait(s.gracePeriod) {
		logger.Info("task stopped cleanly", "task", h.ref.TaskKey, "pid", h.ref.PID)
	} else {
		forced = true
		escalationsCounter.Add(ctx, 1)
		span.AddEvent("escalated")
		logger.Warn("task ignored interrupt, killing", "task", h.ref.TaskKey, "pid", h.ref.PID,
			"grace_period", s.gracePeriod)
		s.emit(events.NewTaskEscalated(h.ref))

		killErr := h.process.ForceStop()
		if !h.process.Wait(s.killWait) {
			err := fmt.Errorf("%w: pid %d", ErrOrphaned, h.ref.PID)
			if killErr != nil {
				err = errors.Join(err, killErr)
			}
			orphansCounter.Add(ctx, 1)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Warn("task process may be orphaned", "task", h.ref.TaskKey, "pid", h.ref.PID, "err", err)
			s.emit(events.NewTaskOrphaned(h.ref, err))
		} else {
			logger.Info("task killed", "task", h.ref.TaskKey, "pid", h.ref.PID)
		}
	}

	runtime := time.Since(h.startedAt)
	s.emit(events.NewTaskStopped(h.ref, reason, forced, runtime))
	finishedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", string(reason))))

	h.span.SetAttributes(attribute.String("task.reason", string(reason)), attribute.Bool("task.forced", forced))
	h.span.End()
	s.clear()
}

func (s *Supervisor) clear() {
	s.current = nil
	s.publish(idleStatus)
}

func (s *Supervisor) publish(status Status) {
	s.status.Store(&status)
}

func (s *Supervisor) announce(text string) {
	if s.announcer == nil {
		return
	}
	if err := s.announcer.Announce(text); err != nil {
		logger.Debug("announcement not queued", "text", text, "err", err)
	}
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
