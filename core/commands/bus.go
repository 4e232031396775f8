package commands

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Bus is a FIFO queue of commands with many producers and one consumer.
//
// Push never blocks. Poll blocks the consumer for at most the given duration
// so it can interleave other checks with command handling. The bus applies no
// deduplication or priority; commands come out in the order they went in.
type Bus struct {
	mu    sync.Mutex
	items []Command
	// ready holds a token whenever items may be non-empty.
	ready chan struct{}

	onPush func(Command)
}

type BusOption func(*Bus)

// WithPushObserver registers fn to be called, on the producer's goroutine,
// after each successful Push.
func WithPushObserver(fn func(Command)) BusOption {
	return func(b *Bus) { b.onPush = fn }
}

func NewBus(opts ...BusOption) *Bus {
	b := &Bus{ready: make(chan struct{}, 1)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Push appends cmd to the queue.
func (b *Bus) Push(cmd Command) {
	b.mu.Lock()
	b.items = append(b.items, cmd)
	b.mu.Unlock()

	select {
	case b.ready <- struct{}{}:
	default:
	}

	enqueuedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("kind", cmd.Kind().String())))
	if b.onPush != nil {
		b.onPush(cmd)
	}
}

// Poll returns the oldest command, waiting up to timeout for one to arrive.
// It returns false when the timeout elapses or ctx is done first.
func (b *Bus) Poll(ctx context.Context, timeout time.Duration) (Command, bool) {
	if cmd, ok := b.pop(); ok {
		return cmd, true
	}
	if timeout <= 0 {
		return Command{}, false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return Command{}, false
		case <-timer.C:
			return b.pop()
		case <-b.ready:
			if cmd, ok := b.pop(); ok {
				return cmd, true
			}
		}
	}
}

// Len reports the number of queued commands.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

func (b *Bus) pop() (Command, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) == 0 {
		return Command{}, false
	}

	cmd := b.items[0]
	b.items[0] = Command{}
	b.items = b.items[1:]
	if len(b.items) > 0 {
		// keep the token so the next Poll does not wait
		select {
		case b.ready <- struct{}{}:
		default:
		}
	}
	return cmd, true
}
