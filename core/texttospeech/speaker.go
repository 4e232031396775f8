// Package texttospeech defines the synchronous speech synthesis contract.
// Engines live in subpackages.
package texttospeech

import (
	"context"
	"errors"
)

// Speaker synthesizes and plays one utterance, returning when it is done.
// Speakers are not expected to be safe for concurrent use.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Chain speaks text through every speaker in order. A failing speaker does not
// stop the rest; all errors are returned joined.
func Chain(speakers ...Speaker) Speaker {
	return chain(speakers)
}

type chain []Speaker

func (c chain) Speak(ctx context.Context, text string) error {
	var errs []error
	for _, speaker := range c {
		if speaker == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := speaker.Speak(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Silent discards every utterance.
type Silent struct{}

func (Silent) Speak(context.Context, string) error { return nil }
