package events

import "time"

const (
	// KindTaskStarted identifies a spawned task process.
	KindTaskStarted Kind = "task.started"
	// KindTaskStartFailed identifies a StartTask that could not spawn a process.
	KindTaskStartFailed Kind = "task.start_failed"
	// KindTaskUnknown identifies a StartTask naming no known task.
	KindTaskUnknown Kind = "task.unknown"
	// KindTaskDuplicateIgnored identifies a StartTask for the task already running.
	KindTaskDuplicateIgnored Kind = "task.duplicate_ignored"
	// KindTaskInterruptSent identifies the graceful stop request of a termination.
	KindTaskInterruptSent Kind = "task.interrupt_sent"
	// KindTaskEscalated identifies a forced kill after the grace period.
	KindTaskEscalated Kind = "task.escalated"
	// KindTaskOrphaned identifies a process that could not be confirmed dead.
	KindTaskOrphaned Kind = "task.orphaned"
	// KindTaskStopped identifies the end of a termination sequence.
	KindTaskStopped Kind = "task.stopped"
	// KindTaskCompleted identifies a process that exited on its own.
	KindTaskCompleted Kind = "task.completed"
)

// StopReason says why a running task was terminated.
type StopReason string

const (
	StopReasonRequested StopReason = "requested"
	StopReasonPreempted StopReason = "preempted"
	StopReasonTimeout   StopReason = "timeout"
	StopReasonShutdown  StopReason = "shutdown"
)

// TaskRef identifies one run of a task.
type TaskRef struct {
	RunID   string
	TaskKey string
	Name    string
	PID     int
}

type TaskStarted struct {
	Base
	TaskRef
}

func NewTaskStarted(ref TaskRef) TaskStarted {
	return TaskStarted{Base: NewBase(KindTaskStarted), TaskRef: ref}
}

type TaskStartFailed struct {
	Base
	TaskKey string
	Err     error
}

func NewTaskStartFailed(taskKey string, err error) TaskStartFailed {
	return TaskStartFailed{Base: NewBase(KindTaskStartFailed), TaskKey: taskKey, Err: err}
}

type TaskUnknown struct {
	Base
	TaskKey string
}

func NewTaskUnknown(taskKey string) TaskUnknown {
	return TaskUnknown{Base: NewBase(KindTaskUnknown), TaskKey: taskKey}
}

type TaskDuplicateIgnored struct {
	Base
	TaskRef
}

func NewTaskDuplicateIgnored(ref TaskRef) TaskDuplicateIgnored {
	return TaskDuplicateIgnored{Base: NewBase(KindTaskDuplicateIgnored), TaskRef: ref}
}

type TaskInterruptSent struct {
	Base
	TaskRef
	Reason StopReason
}

func NewTaskInterruptSent(ref TaskRef, reason StopReason) TaskInterruptSent {
	return TaskInterruptSent{Base: NewBase(KindTaskInterruptSent), TaskRef: ref, Reason: reason}
}

type TaskEscalated struct {
	Base
	TaskRef
}

func NewTaskEscalated(ref TaskRef) TaskEscalated {
	return TaskEscalated{Base: NewBase(KindTaskEscalated), TaskRef: ref}
}

type TaskOrphaned struct {
	Base
	TaskRef
	Err error
}

func NewTaskOrphaned(ref TaskRef, err error) TaskOrphaned {
	return TaskOrphaned{Base: NewBase(KindTaskOrphaned), TaskRef: ref, Err: err}
}

// TaskStopped closes a termination sequence. Forced is true when the process
// had to be killed.
type TaskStopped struct {
	Base
	TaskRef
	Reason  StopReason
	Forced  bool
	Runtime time.Duration
}

func NewTaskStopped(ref TaskRef, reason StopReason, forced bool, runtime time.Duration) TaskStopped {
	return TaskStopped{Base: NewBase(KindTaskStopped), TaskRef: ref, Reason: reason, Forced: forced, Runtime: runtime}
}

type TaskCompleted struct {
	Base
	TaskRef
	ExitCode int
	Runtime  time.Duration
}

func NewTaskCompleted(ref TaskRef, exitCode int, runtime time.Duration) TaskCompleted {
	return TaskCompleted{Base: NewBase(KindTaskCompleted), TaskRef: ref, ExitCode: exitCode, Runtime: runtime}
}
