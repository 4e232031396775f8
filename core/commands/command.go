package commands

import (
	"fmt"
	"time"
)

// Kind tags the Command variant.
type Kind int

const (
	KindStartTask Kind = iota + 1
	KindStop
)

func (k Kind) String() string {
	switch k {
	case KindStartTask:
		return "start"
	case KindStop:
		return "stop"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Command is either StartTask(taskKey) or Stop. Commands are immutable values.
type Command struct {
	kind     Kind
	taskKey  string
	source   string
	issuedAt time.Time
}

// StartTask requests that the task identified by taskKey runs, preempting any
// other running task.
func StartTask(taskKey string) Command {
	return Command{kind: KindStartTask, taskKey: taskKey, issuedAt: time.Now()}
}

// Stop requests that the running task, if any, is terminated.
func Stop() Command {
	return Command{kind: KindStop, issuedAt: time.Now()}
}

// From returns a copy of c tagged with the producer that issued it.
func (c Command) From(source string) Command {
	c.source = source
	return c
}

func (c Command) Kind() Kind          { return c.kind }
func (c Command) TaskKey() string     { return c.taskKey }
func (c Command) Source() string      { return c.source }
func (c Command) IssuedAt() time.Time { return c.issuedAt }
func (c Command) IsStop() bool        { return c.kind == KindStop }
func (c Command) IsStartTask() bool   { return c.kind == KindStartTask }

func (c Command) String() string {
	if c.kind == KindStartTask {
		return fmt.Sprintf("start(%s)", c.taskKey)
	}
	return c.kind.String()
}
