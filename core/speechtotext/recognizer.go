// Package speechtotext defines the streaming recognizer contract used by the
// keyword spotter. Engines live in subpackages.
package speechtotext

import (
	"errors"
	"strings"
)

// ErrClosed is returned by Accept after Close.
var ErrClosed = errors.New("recognizer closed")

// Result is what a recognizer knows after consuming a chunk. A final result
// closes an utterance; a partial one is in-progress text and may be revised.
type Result struct {
	Text    string
	IsFinal bool
}

func (r Result) IsEmpty() bool {
	return strings.TrimSpace(r.Text) == ""
}

// Recognizer consumes audio chunks and reports transcripts. Accept is called
// from a single goroutine; Close may be called once Accept has returned.
type Recognizer interface {
	Accept(chunk []byte) (Result, error)
	Close() error
}

// RecognizerFunc adapts a function to Recognizer with a no-op Close.
type RecognizerFunc func(chunk []byte) (Result, error)

func (f RecognizerFunc) Accept(chunk []byte) (Result, error) { return f(chunk) }
func (f RecognizerFunc) Close() error                        { return nil }
