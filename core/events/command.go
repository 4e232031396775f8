package events

const (
	// KindCommandEnqueued identifies a command pushed on the command bus.
	KindCommandEnqueued Kind = "command.enqueued"
	// KindCommandRejected identifies a command dropped before it was enqueued.
	KindCommandRejected Kind = "command.rejected"
)

// CommandEnqueued reports a command accepted by the bus. TaskKey is empty for
// stop commands.
type CommandEnqueued struct {
	Base
	Command string
	TaskKey string
	Source  string
}

func NewCommandEnqueued(command, taskKey, source string) CommandEnqueued {
	return CommandEnqueued{Base: NewBase(KindCommandEnqueued), Command: command, TaskKey: taskKey, Source: source}
}

// CommandRejected reports a command the producer refused to enqueue.
type CommandRejected struct {
	Base
	Command string
	TaskKey string
	Reason  string
}

func NewCommandRejected(command, taskKey, reason string) CommandRejected {
	return CommandRejected{Base: NewBase(KindCommandRejected), Command: command, TaskKey: taskKey, Reason: reason}
}
