package supervisor

import (
	"fmt"
	"time"
)

type State int

const (
	StateIdle State = iota
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// Status is a read-only snapshot of the supervisor, published after every
// transition. It is safe to read from any goroutine.
type Status struct {
	State     State
	RunID     string
	TaskKey   string
	TaskName  string
	PID       int
	StartedAt time.Time

	process Process
}

// Alive reports whether the snapshot's task process is still running.
func (s Status) Alive() bool {
	return s.State == StateRunning && s.process != nil && s.process.Alive()
}

var idleStatus = Status{State: StateIdle}
