// Package feedback serializes best-effort spoken announcements.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrClosed is returned by Announce after Close has started.
	ErrClosed = errors.New("feedback channel closed")
	// ErrQueueFull is returned when an announcement is dropped.
	ErrQueueFull = errors.New("feedback queue full")
)

const (
	DefaultQueueSize    = 8
	DefaultSpeakTimeout = 15 * time.Second

	// abandonWait is how long Close waits for a cancelled speaker to return
	// before leaving the worker behind.
	abandonWait = 200 * time.Millisecond
)

// Speaker synthesizes one utterance and returns when it has been spoken.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// SpeakerFunc adapts a function to Speaker.
type SpeakerFunc func(ctx context.Context, text string) error

func (f SpeakerFunc) Speak(ctx context.Context, text string) error { return f(ctx, text) }

// Channel speaks announcements one at a time on a single worker goroutine.
//
// Announce never waits for synthesis. Announcements that arrive while the
// queue is full are dropped. Order is the order in which Announce calls
// reached the queue; concurrent callers race for that order.
type Channel struct {
	speaker      Speaker
	queueSize    int
	speakTimeout time.Duration

	// queueMu guards sends on queue against its close.
	queueMu sync.RWMutex
	queue   chan string

	closeStarted atomic.Bool
	done         chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Channel)

// WithQueueSize sets how many announcements may wait behind the one being
// spoken. Values below 1 are ignored.
func WithQueueSize(size int) Option {
	return func(c *Channel) {
		if size > 0 {
			c.queueSize = size
		}
	}
}

// WithSpeakTimeout bounds a single Speak call. Zero disables the bound.
func WithSpeakTimeout(timeout time.Duration) Option {
	return func(c *Channel) { c.speakTimeout = timeout }
}

// New starts the worker. A nil speaker yields a channel that only logs.
func New(speaker Speaker, opts ...Option) *Channel {
	c := &Channel{
		speaker:      speaker,
		queueSize:    DefaultQueueSize,
		speakTimeout: DefaultSpeakTimeout,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.queue = make(chan string, c.queueSize)
	c.ctx, c.cancel = context.WithCancel(context.Background())
	go c.run()

	return c
}

// Announce queues text for speaking and returns immediately.
func (c *Channel) Announce(text string) error {
	if c == nil {
		return nil
	}

	c.queueMu.RLock()
	defer c.queueMu.RUnlock()

	if c.closeStarted.Load() {
		return ErrClosed
	}

	select {
	case c.queue <- text:
		return nil
	default:
		droppedCounter.Add(context.Background(), 1)
		logger.Warn("announcement dropped", "text", text, "queue_size", c.queueSize)
		return ErrQueueFull
	}
}

// Close stops accepting announcements and waits for queued ones to be spoken.
// When ctx ends first, the utterance in progress is cancelled, the rest of the
// queue is discarded and ctx's error is returned. A speaker that ignores
// cancellation is left running on the worker goroutine.
func (c *Channel) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}

	if c.closeStarted.CompareAndSwap(false, true) {
		c.queueMu.Lock()
		close(c.queue)
		c.queueMu.Unlock()
	}

	select {
	case <-c.done:
		return nil
	case <-ctx.Done():
		c.cancel()
	}

	timer := time.NewTimer(abandonWait)
	defer timer.Stop()
	select {
	case <-c.done:
	case <-timer.C:
		logger.Warn("speaker ignored cancellation, abandoning feedback worker")
	}
	return fmt.Errorf("feedback drain interrupted: %w", ctx.Err())
}

func (c *Channel) run() {
	defer close(c.done)
	defer c.cancel()

	for text := range c.queue {
		if c.ctx.Err() != nil {
			continue
		}
		c.speak(text)
	}
}

func (c *Channel) speak(text string) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("speaker panicked", "text", text, "panic", recovered)
		}
	}()

	logger.Info("announce", "text", text)
	if c.speaker == nil {
		return
	}

	ctx := c.ctx
	if c.speakTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.speakTimeout)
		defer cancel()
	}

	if err := c.speaker.Speak(ctx, text); err != nil {
		logger.Warn("announcement failed", "text", text, "err", err)
	}
}
