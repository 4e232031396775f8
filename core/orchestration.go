// Package orchestration wires the voice front end, the command bus, the task
// supervisor and spoken feedback into one running commander.
package orchestration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/koscakluka/ema-commander/core/commands"
	"github.com/koscakluka/ema-commander/core/events"
	"github.com/koscakluka/ema-commander/core/tasks"
	"golang.org/x/sync/errgroup"
)

const DefaultShutdownTimeout = 5 * time.Second

var (
	DefaultStopKeywords = []string{"stop", "step"}

	ErrAlreadyRunning = errors.New("orchestrator already running")
)

// Orchestrator owns the commander's long-lived workers. Keyword actions and
// console lines only push commands on the bus; the supervisor is the single
// consumer that acts on them.
type Orchestrator struct {
	bus        *commands.Bus
	table      *tasks.Table
	spotter    KeywordSpotter
	supervisor TaskSupervisor

	stopKeywords    []string
	feedback        Feedback
	console         io.Reader
	emit            events.Emitter
	shutdownTimeout time.Duration

	running atomic.Bool
}

// NewOrchestrator binds every task key and alias in table, plus the stop
// keywords, on the spotter's registry.
func NewOrchestrator(bus *commands.Bus, table *tasks.Table, spotter KeywordSpotter, supervisor TaskSupervisor, opts ...OrchestratorOption) (*Orchestrator, error) {
	o := &Orchestrator{
		bus:             bus,
		table:           table,
		spotter:         spotter,
		supervisor:      supervisor,
		stopKeywords:    DefaultStopKeywords,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.emit = events.Safe(o.emit)

	if err := o.registerKeywords(); err != nil {
		return nil, err
	}
	return o, nil
}

// Run starts voice recognition and the workers, and blocks until ctx is done.
// On return the running task has been terminated, recognition has stopped
// and queued announcements have been spoken or abandoned.
//
// Recognition failures, including failing to open the microphone or model,
// are logged and leave the commander running on its other inputs. Run only
// fails if a worker fails.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer o.running.Store(false)

	voiceErr := o.spotter.Start(ctx, false)
	if voiceErr != nil {
		logger.Error("voice commands unavailable", "err", voiceErr)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return panicSafeNamedWorker("supervisor", o.supervisor.Run)(groupCtx)
	})
	if voiceErr == nil {
		group.Go(func() error {
			return panicSafeNamedWorker("recognition", o.watchRecognition)(groupCtx)
		})
	}
	if o.console != nil {
		group.Go(func() error {
			return panicSafeNamedWorker("console", o.readConsole)(groupCtx)
		})
	}

	err := group.Wait()
	o.spotter.Stop()
	return errors.Join(err, o.closeFeedback(ctx))
}

func (o *Orchestrator) watchRecognition(ctx context.Context) error {
	select {
	case <-ctx.Done():
	case <-o.spotter.Done():
		if err := o.spotter.Err(); err != nil {
			logger.Error("voice commands unavailable", "err", err)
		}
	}
	return nil
}

func (o *Orchestrator) closeFeedback(ctx context.Context) error {
	if o.feedback == nil {
		return nil
	}

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.shutdownTimeout)
	defer cancel()
	if err := o.feedback.Close(closeCtx); err != nil {
		return fmt.Errorf("close feedback: %w", err)
	}
	return nil
}
