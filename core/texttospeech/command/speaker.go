// Package command speaks through a local synthesizer program such as
// espeak-ng or macOS say, one process per utterance.
package command

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	DefaultProgram = "espeak-ng"
	// DefaultRate is in words per minute.
	DefaultRate = 150
)

type Speaker struct {
	program string
	rate    int
	voice   string
}

type Option func(*Speaker)

func WithRate(wordsPerMinute int) Option {
	return func(s *Speaker) { s.rate = wordsPerMinute }
}

func WithVoice(voice string) Option {
	return func(s *Speaker) { s.voice = voice }
}

// New resolves program on PATH.
func New(program string, opts ...Option) (*Speaker, error) {
	if program == "" {
		program = DefaultProgram
	}
	path, err := exec.LookPath(program)
	if err != nil {
		return nil, fmt.Errorf("speech synthesizer %q not found: %w", program, err)
	}

	s := &Speaker{program: path, rate: DefaultRate}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Speaker) Speak(ctx context.Context, text string) error {
	cmd := exec.CommandContext(ctx, s.program, s.args(text)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %w: %s", filepath.Base(s.program), err, msg)
		}
		return fmt.Errorf("%s: %w", filepath.Base(s.program), err)
	}
	return nil
}

// args builds the argument list; say takes -r for the rate, the espeak
// family takes -s.
func (s *Speaker) args(text string) []string {
	rateFlag := "-s"
	if filepath.Base(s.program) == "say" {
		rateFlag = "-r"
	}

	var args []string
	if s.rate > 0 {
		args = append(args, rateFlag, strconv.Itoa(s.rate))
	}
	if s.voice != "" {
		args = append(args, "-v", s.voice)
	}
	return append(args, "--", text)
}
