package main

import (
	"context"
	"fmt"

	"github.com/koscakluka/ema-commander/core/audio"
	"github.com/koscakluka/ema-commander/core/audio/miniaudio"
	"github.com/koscakluka/ema-commander/core/audio/portaudio"
	"github.com/koscakluka/ema-commander/core/audio/wavfile"
	"github.com/koscakluka/ema-commander/core/keywords"
	"github.com/koscakluka/ema-commander/core/speechtotext"
	sttdeepgram "github.com/koscakluka/ema-commander/core/speechtotext/deepgram"
	"github.com/koscakluka/ema-commander/core/speechtotext/vosk"
	"github.com/koscakluka/ema-commander/core/speechtotext/whisper"
	"github.com/koscakluka/ema-commander/core/texttospeech"
	"github.com/koscakluka/ema-commander/core/texttospeech/command"
	ttsdeepgram "github.com/koscakluka/ema-commander/core/texttospeech/deepgram"
	"github.com/koscakluka/ema-commander/core/texttospeech/notify"
	"github.com/koscakluka/ema-commander/internal/config"
)

const (
	playbackSampleRate = 24000
	playbackBufferSize = 2048
)

func newSourceOpener(cfg config.AudioConfig) keywords.SourceOpener {
	info := cfg.EncodingInfo()
	return func(context.Context) (audio.Source, error) {
		switch cfg.Backend {
		case config.AudioPortAudio:
			source, err := portaudio.NewCaptureClient(info)
			if err != nil {
				return nil, err
			}
			return source, nil
		case config.AudioMiniaudio:
			source, err := miniaudio.NewClient(info)
			if err != nil {
				return nil, err
			}
			return source, nil
		case config.AudioWav:
			source, err := wavfile.Open(cfg.WavPath,
				wavfile.WithChunkSize(cfg.ChunkSize),
				wavfile.WithRealtime(cfg.Realtime),
			)
			if err != nil {
				return nil, err
			}
			return source, nil
		default:
			return nil, fmt.Errorf("unknown audio backend %q", cfg.Backend)
		}
	}
}

func newRecognizerOpener(cfg config.RecognitionConfig) keywords.RecognizerOpener {
	return func(_ context.Context, info audio.EncodingInfo) (speechtotext.Recognizer, error) {
		switch cfg.Engine {
		case config.RecognitionVosk:
			recognizer, err := vosk.New(cfg.ModelPath, info.SampleRate)
			if err != nil {
				return nil, err
			}
			return recognizer, nil
		case config.RecognitionDeepgram:
			recognizer, err := sttdeepgram.New(info, sttdeepgram.WithLanguage(cfg.Language))
			if err != nil {
				return nil, err
			}
			return recognizer, nil
		case config.RecognitionWhisper:
			recognizer, err := whisper.New(cfg.ModelPath, info,
				whisper.WithLanguage(cfg.Language),
				whisper.WithWindow(cfg.Window),
			)
			if err != nil {
				return nil, err
			}
			return recognizer, nil
		default:
			return nil, fmt.Errorf("unknown recognition engine %q", cfg.Engine)
		}
	}
}

// newSpeaker builds the announcement voice and a function releasing it.
// A missing synthesizer program falls back to desktop notifications.
func newSpeaker(cfg config.SpeechConfig) (texttospeech.Speaker, func(), error) {
	noop := func() {}

	var speaker texttospeech.Speaker
	closeSpeaker := noop
	switch cfg.Engine {
	case config.SpeechCommand:
		opts := []command.Option{command.WithRate(cfg.Rate)}
		if cfg.Voice != "" {
			opts = append(opts, command.WithVoice(cfg.Voice))
		}
		synth, err := command.New(cfg.Command, opts...)
		if err != nil {
			logger.Warn("speech synthesizer unavailable, using notifications", "err", err)
			return notify.New(), noop, nil
		}
		speaker = synth
	case config.SpeechDeepgram:
		playback, err := portaudio.NewPlaybackClient(playbackSampleRate, playbackBufferSize)
		if err != nil {
			return nil, nil, fmt.Errorf("open playback: %w", err)
		}
		synth, err := ttsdeepgram.New(playback,
			ttsdeepgram.WithSampleRate(playbackSampleRate),
			ttsdeepgram.WithVoice(ttsdeepgram.Voice(cfg.Voice)),
		)
		if err != nil {
			_ = playback.Close()
			return nil, nil, err
		}
		speaker = synth
		closeSpeaker = func() {
			if err := playback.Close(); err != nil {
				logger.Warn("failed to close playback", "err", err)
			}
		}
	case config.SpeechNotify:
		return notify.New(), noop, nil
	case config.SpeechNone:
		return texttospeech.Silent{}, noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown speech engine %q", cfg.Engine)
	}

	if cfg.Notify {
		speaker = texttospeech.Chain(speaker, notify.New(notify.WithBeep(false)))
	}
	return speaker, closeSpeaker, nil
}
