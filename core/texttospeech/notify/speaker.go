// Package notify shows announcements as desktop notifications, for machines
// without a speech synthesizer.
package notify

import (
	"context"

	"github.com/gen2brain/beeep"
)

const DefaultTitle = "ema-commander"

type Speaker struct {
	title string
	icon  string
	beep  bool

	notify func(title, message, icon string) error
	alert  func(freq float64, duration int) error
}

type Option func(*Speaker)

func WithTitle(title string) Option {
	return func(s *Speaker) { s.title = title }
}

func WithIcon(icon string) Option {
	return func(s *Speaker) { s.icon = icon }
}

// WithBeep plays the system beep with every notification.
func WithBeep(beep bool) Option {
	return func(s *Speaker) { s.beep = beep }
}

func New(opts ...Option) *Speaker {
	s := &Speaker{
		title:  DefaultTitle,
		notify: func(title, message, icon string) error { return beeep.Notify(title, message, icon) },
		alert:  beeep.Beep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Speaker) Speak(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.beep {
		if err := s.alert(beeep.DefaultFreq, beeep.DefaultDuration); err != nil {
			return err
		}
	}
	return s.notify(s.title, text, s.icon)
}
