package orchestration

import (
	"bufio"
	"context"
	"fmt"

	"github.com/koscakluka/ema-commander/core/commands"
	"github.com/koscakluka/ema-commander/core/events"
	"github.com/koscakluka/ema-commander/core/tasks"
)

const (
	sourceVoice   = "voice"
	sourceConsole = "console"
)

func (o *Orchestrator) registerKeywords() error {
	registry := o.spotter.Registry()

	for _, d := range o.table.Descriptors() {
		if err := registry.Register(d.Key, o.startAction(d.Key, sourceVoice), d.Aliases...); err != nil {
			return fmt.Errorf("register task %q: %w", d.Key, err)
		}
	}

	if len(o.stopKeywords) == 0 {
		return fmt.Errorf("no stop keywords configured")
	}
	if err := registry.Register(o.stopKeywords[0], o.stopAction(sourceVoice), o.stopKeywords[1:]...); err != nil {
		return fmt.Errorf("register stop keyword: %w", err)
	}
	return nil
}

func (o *Orchestrator) startAction(taskKey, source string) func() {
	return func() { o.requestStart(taskKey, source) }
}

func (o *Orchestrator) stopAction(source string) func() {
	return func() { o.requestStop(source) }
}

// requestStart enqueues StartTask unless taskKey is already the live task.
// Aliases are replaced by the key of the task that owns them.
func (o *Orchestrator) requestStart(taskKey, source string) {
	taskKey = o.table.Canonical(taskKey)
	cmd := commands.StartTask(taskKey).From(source)

	if o.supervisor.IsRunningTask(taskKey) {
		logger.Info("task already running, ignoring duplicate command", "task", taskKey, "source", source)
		o.emit(events.NewCommandRejected(cmd.String(), taskKey, "already running"))
		return
	}

	o.bus.Push(cmd)
	logger.Info("command queued", "command", cmd.String(), "source", source)
	o.emit(events.NewCommandEnqueued(cmd.String(), taskKey, source))
}

func (o *Orchestrator) requestStop(source string) {
	cmd := commands.Stop().From(source)
	o.bus.Push(cmd)
	logger.Info("command queued", "command", cmd.String(), "source", source)
	o.emit(events.NewCommandEnqueued(cmd.String(), "", source))
}

// readConsole turns operator lines into commands until ctx is done. Unknown
// keys are still enqueued so the supervisor reports them.
func (o *Orchestrator) readConsole(ctx context.Context) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	// The scanner cannot be interrupted; it is left blocked on its reader
	// once ctx is done.
	go func() {
		scanner := bufio.NewScanner(o.console)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-scanErr:
			if err != nil {
				logger.Warn("console input failed", "err", err)
			}
			return nil
		case line := <-lines:
			o.handleConsoleLine(line)
		}
	}
}

func (o *Orchestrator) handleConsoleLine(line string) {
	key := tasks.NormalizeKey(line)
	switch {
	case key == "":
	case o.isStopKeyword(key):
		o.requestStop(sourceConsole)
	default:
		o.requestStart(key, sourceConsole)
	}
}

func (o *Orchestrator) isStopKeyword(key string) bool {
	for _, stop := range o.stopKeywords {
		if tasks.NormalizeKey(stop) == key {
			return true
		}
	}
	return false
}
