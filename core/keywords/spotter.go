// Package keywords turns a live transcript stream into keyword actions.
package keywords

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/koscakluka/ema-commander/core/audio"
	"github.com/koscakluka/ema-commander/core/events"
	"github.com/koscakluka/ema-commander/core/speechtotext"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrInitialization wraps failures to open the audio source or recognizer.
	ErrInitialization = errors.New("keyword spotter initialization failed")
	// ErrRecognitionRead wraps audio or recognizer failures that end the loop.
	ErrRecognitionRead = errors.New("recognition read failed")
)

const (
	DefaultStopGrace  = 2 * time.Second
	defaultMatchQueue = 32
)

type SourceOpener func(ctx context.Context) (audio.Source, error)

type RecognizerOpener func(ctx context.Context, info audio.EncodingInfo) (speechtotext.Recognizer, error)

// Spotter runs a capture loop that feeds audio to a recognizer and fires the
// registry's actions for every final transcript. Actions run on a separate
// dispatcher goroutine, one at a time, in match order.
type Spotter struct {
	registry       *Registry
	openSource     SourceOpener
	openRecognizer RecognizerOpener
	emit           events.Emitter
	stopGrace      time.Duration

	mu      sync.Mutex
	current *run
	lastErr error

	running atomic.Bool
}

// run is one Start to loop-exit cycle.
type run struct {
	cancel  context.CancelFunc
	done    chan struct{}
	release func()
}

type SpotterOption func(*Spotter)

func WithEventEmitter(emit events.Emitter) SpotterOption {
	return func(s *Spotter) { s.emit = emit }
}

// WithStopGrace bounds how long Stop waits for the loop before releasing
// the audio source and recognizer anyway.
func WithStopGrace(grace time.Duration) SpotterOption {
	return func(s *Spotter) { s.stopGrace = grace }
}

func NewSpotter(registry *Registry, openSource SourceOpener, openRecognizer RecognizerOpener, opts ...SpotterOption) *Spotter {
	s := &Spotter{
		registry:       registry,
		openSource:     openSource,
		openRecognizer: openRecognizer,
		stopGrace:      DefaultStopGrace,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.emit = events.Safe(s.emit)
	return s
}

func (s *Spotter) Registry() *Registry { return s.registry }

func (s *Spotter) IsRunning() bool { return s.running.Load() }

// Done is closed when the current loop exits. With no loop started it is
// already closed.
func (s *Spotter) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		done := make(chan struct{})
		close(done)
		return done
	}
	return s.current.done
}

// Err returns why the last loop ended, or nil if it was stopped or ran out
// of audio.
func (s *Spotter) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Start opens the audio source and recognizer and starts the capture loop.
// Starting a running spotter is a no-op. With blocking set, Start returns
// only after the loop has ended, with the loop's error.
func (s *Spotter) Start(ctx context.Context, blocking bool) error {
	s.mu.Lock()
	if s.running.Load() {
		s.mu.Unlock()
		logger.Info("keyword spotter already running")
		return nil
	}

	source, err := s.openSource(ctx)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: open audio source: %w", ErrInitialization, err)
	}
	recognizer, err := s.openRecognizer(ctx, source.EncodingInfo())
	if err != nil {
		s.mu.Unlock()
		_ = source.Close()
		return fmt.Errorf("%w: open recognizer: %w", ErrInitialization, err)
	}

	loopCtx, cancel := context.WithCancel(ctx)

	var releaseOnce sync.Once
	r := &run{
		cancel: cancel,
		done:   make(chan struct{}),
		release: func() {
			releaseOnce.Do(func() {
				if err := errors.Join(recognizer.Close(), source.Close()); err != nil {
					logger.Warn("failed to release recognition resources", "err", err)
				}
			})
		},
	}
	s.current = r
	s.lastErr = nil
	s.running.Store(true)
	s.mu.Unlock()

	logger.Info("keyword spotter started", "keywords", s.registry.Keywords())

	matches := make(chan pendingMatch, defaultMatchQueue)
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		s.dispatch(matches)
	}()

	go func() {
		err := s.captureLoop(loopCtx, source, recognizer, matches)
		cancel()
		close(matches)
		<-dispatched
		r.release()

		s.mu.Lock()
		s.lastErr = err
		s.running.Store(false)
		s.mu.Unlock()

		if err != nil {
			logger.Error("keyword spotter stopped", "err", err)
		} else {
			logger.Info("keyword spotter stopped")
		}
		s.emit(events.NewRecognitionStopped(err))
		close(r.done)
	}()

	if blocking {
		<-r.done
		return s.Err()
	}
	return nil
}

// Stop ends the capture loop and releases its resources. It waits at most
// the stop grace for the loop to finish. Stop is idempotent.
func (s *Spotter) Stop() {
	s.mu.Lock()
	r := s.current
	s.mu.Unlock()
	if r == nil {
		return
	}

	r.cancel()

	timer := time.NewTimer(s.stopGrace)
	defer timer.Stop()
	select {
	case <-r.done:
	case <-timer.C:
		logger.Warn("capture loop did not stop in time, releasing resources", "grace", s.stopGrace)
		r.release()
	}
}

type pendingMatch struct {
	match      Match
	transcript string
}

func (s *Spotter) captureLoop(ctx context.Context, source audio.Source, recognizer speechtotext.Recognizer, matches chan<- pendingMatch) error {
	for {
		chunk, err := source.ReadChunk(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				logger.Info("audio source exhausted")
				return nil
			}
			return fmt.Errorf("%w: read audio: %w", ErrRecognitionRead, err)
		}

		result, err := recognizer.Accept(chunk)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("%w: recognize: %w", ErrRecognitionRead, err)
		}
		if result.IsEmpty() {
			continue
		}

		if !result.IsFinal {
			logger.Debug("partial transcript", "text", result.Text)
			s.emit(events.NewTranscriptPartial(result.Text))
			continue
		}

		logger.Info("heard", "text", result.Text)
		s.emit(events.NewTranscriptFinal(result.Text))
		if !s.enqueueMatches(ctx, result.Text, matches) {
			return nil
		}
	}
}

func (s *Spotter) enqueueMatches(ctx context.Context, transcript string, matches chan<- pendingMatch) bool {
	_, span := tracer.Start(ctx, "match keywords")
	defer span.End()

	found := s.registry.Match(transcript)
	span.SetAttributes(attribute.Int("keywords.matched", len(found)))

	for _, match := range found {
		matchesCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("key", match.Key)))
		logger.Info("keyword matched", "keyword", match.Keyword, "key", match.Key)
		s.emit(events.NewKeywordMatched(match.Keyword, match.Key, transcript))

		select {
		case matches <- pendingMatch{match: match, transcript: transcript}:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

func (s *Spotter) dispatch(matches <-chan pendingMatch) {
	for d := range matches {
		s.invoke(d)
	}
}

func (s *Spotter) invoke(d pendingMatch) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err := fmt.Errorf("keyword %q action panicked: %v", d.match.Key, recovered)
			logger.Error("keyword action failed", "keyword", d.match.Keyword, "transcript", d.transcript, "err", err)
			s.emit(events.NewCallbackFault(d.match.Key, err))
		}
	}()

	d.match.action()
}
