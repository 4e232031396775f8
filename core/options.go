package orchestration

import (
	"context"
	"io"
	"time"

	"github.com/koscakluka/ema-commander/core/events"
	"github.com/koscakluka/ema-commander/core/keywords"
)

type OrchestratorOption func(*Orchestrator)

// KeywordSpotter is the voice front end. *keywords.Spotter implements it.
type KeywordSpotter interface {
	Registry() *keywords.Registry
	Start(ctx context.Context, blocking bool) error
	Stop()
	Done() <-chan struct{}
	Err() error
}

// TaskSupervisor runs commands from the bus. *supervisor.Supervisor
// implements it.
type TaskSupervisor interface {
	Run(ctx context.Context) error
	IsRunningTask(taskKey string) bool
}

// Feedback is closed last on shutdown so queued announcements are spoken.
// *feedback.Channel implements it.
type Feedback interface {
	Close(ctx context.Context) error
}

// WithStopKeywords sets the words that stop the running task. The first is
// the canonical keyword and the rest are its aliases.
func WithStopKeywords(keywords ...string) OrchestratorOption {
	return func(o *Orchestrator) {
		o.stopKeywords = append([]string(nil), keywords...)
	}
}

func WithFeedback(feedback Feedback) OrchestratorOption {
	return func(o *Orchestrator) { o.feedback = feedback }
}

// WithConsole reads operator commands from r, one per line: "stop" or a task
// key.
func WithConsole(r io.Reader) OrchestratorOption {
	return func(o *Orchestrator) { o.console = r }
}

func WithEventEmitter(emit events.Emitter) OrchestratorOption {
	return func(o *Orchestrator) { o.emit = emit }
}

// WithShutdownTimeout bounds how long queued announcements may take to drain
// on shutdown.
func WithShutdownTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.shutdownTimeout = timeout }
}
