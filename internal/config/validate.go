package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/koscakluka/ema-commander/core/audio"
	"github.com/koscakluka/ema-commander/core/tasks"
)

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if !slices.Contains([]string{"", "debug", "info", "warn", "error"}, strings.ToLower(c.Log.Level)) {
		fail("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	if !slices.Contains([]string{"", "text", "console", "json"}, strings.ToLower(c.Log.Format)) {
		fail("log.format %q is not one of text, json", c.Log.Format)
	}
	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		fail("telemetry.sample_rate must be between 0 and 1")
	}

	switch c.Audio.Backend {
	case AudioPortAudio, AudioMiniaudio:
	case AudioWav:
		if c.Audio.WavPath == "" {
			fail("audio.wav_path is required for the wav backend")
		}
	default:
		fail("unknown audio.backend %q", c.Audio.Backend)
	}
	if c.Audio.SampleRate <= 0 {
		fail("audio.sample_rate must be positive")
	}
	if c.Audio.ChunkSize <= 0 {
		fail("audio.chunk_size must be positive")
	}

	switch c.Recognition.Engine {
	case RecognitionVosk, RecognitionWhisper:
		if c.Recognition.ModelPath == "" {
			fail("recognition.model_path is required for %s", c.Recognition.Engine)
		}
	case RecognitionDeepgram:
	default:
		fail("unknown recognition.engine %q", c.Recognition.Engine)
	}
	if c.Recognition.StopGrace <= 0 {
		fail("recognition.stop_grace must be positive")
	}

	switch c.Speech.Engine {
	case SpeechCommand:
		if c.Speech.Command == "" {
			fail("speech.command is required for the command engine")
		}
	case SpeechDeepgram, SpeechNotify, SpeechNone:
	default:
		fail("unknown speech.engine %q", c.Speech.Engine)
	}
	if c.Speech.Rate <= 0 {
		fail("speech.rate must be positive")
	}
	if c.Speech.QueueSize <= 0 {
		fail("speech.queue_size must be positive")
	}

	s := c.Supervisor
	for name, d := range map[string]time.Duration{
		"task_timeout":       s.TaskTimeout,
		"grace_period":       s.GracePeriod,
		"kill_wait":          s.KillWait,
		"poll_interval":      s.PollInterval,
		"idle_poll_interval": s.IdlePollInterval,
	} {
		if d <= 0 {
			fail("supervisor.%s must be positive", name)
		}
	}

	if len(c.Tasks.Command) == 0 || strings.TrimSpace(c.Tasks.Command[0]) == "" {
		fail("tasks.command must name a program")
	}
	if _, err := tasks.NewTable(c.Tasks.Descriptors()...); err != nil {
		fail("tasks.table: %w", err)
	} else if len(c.Tasks.Table) == 0 {
		fail("tasks.table must list at least one task")
	}
	if len(c.Tasks.StopKeywords) == 0 {
		fail("tasks.stop_keywords must not be empty")
	}
	for _, keyword := range c.Tasks.StopKeywords {
		if strings.TrimSpace(keyword) == "" {
			fail("tasks.stop_keywords must not contain blank entries")
			break
		}
	}

	return errors.Join(errs...)
}

// EncodingInfo is the capture encoding described by the audio section.
func (a AudioConfig) EncodingInfo() audio.EncodingInfo {
	info := audio.GetDefaultEncodingInfo()
	info.SampleRate = a.SampleRate
	info.ChunkSize = a.ChunkSize
	return info
}
