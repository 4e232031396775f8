// Package whisper recognizes speech with whisper.cpp over fixed windows of audio.
//
// Whisper is not a streaming engine: audio is buffered until a window is full
// and the whole window is then transcribed into one final result.
package whisper

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"
	goaudio "github.com/go-audio/audio"
	"github.com/koscakluka/ema-commander/core/audio"
	"github.com/koscakluka/ema-commander/core/speechtotext"
)

const DefaultWindow = 3 * time.Second

type Recognizer struct {
	mu       sync.Mutex
	model    whisper.Model
	language string

	sampleRate int
	window     int
	samples    []int
}

type Option func(*Recognizer)

func WithLanguage(language string) Option {
	return func(r *Recognizer) { r.language = language }
}

// WithWindow sets how much audio is transcribed at once.
func WithWindow(window time.Duration) Option {
	return func(r *Recognizer) {
		if window > 0 {
			r.window = int(window.Seconds() * float64(r.sampleRate))
		}
	}
}

// New loads the ggml model at modelPath. Only 16 kHz linear16 input is accepted.
func New(modelPath string, info audio.EncodingInfo, opts ...Option) (*Recognizer, error) {
	if info.SampleRate != whisper.SampleRate || info.Format != audio.EncodingLinear16 {
		return nil, fmt.Errorf("whisper needs %d Hz linear16 audio, got %d Hz %s",
			whisper.SampleRate, info.SampleRate, info.Format.Name())
	}

	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load whisper model: %w", err)
	}

	r := &Recognizer{
		model:      model,
		language:   "en",
		sampleRate: info.SampleRate,
		window:     int(DefaultWindow.Seconds() * float64(info.SampleRate)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Recognizer) Accept(chunk []byte) (speechtotext.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.model == nil {
		return speechtotext.Result{}, speechtotext.ErrClosed
	}

	for i := 0; i+1 < len(chunk); i += 2 {
		r.samples = append(r.samples, int(int16(uint16(chunk[i])|uint16(chunk[i+1])<<8)))
	}
	if len(r.samples) < r.window {
		return speechtotext.Result{}, nil
	}

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: r.sampleRate},
		Data:           r.samples,
		SourceBitDepth: 16,
	}
	r.samples = nil

	text, err := r.transcribe(buf)
	if err != nil {
		return speechtotext.Result{}, err
	}
	return speechtotext.Result{Text: text, IsFinal: true}, nil
}

func (r *Recognizer) transcribe(buf goaudio.Buffer) (string, error) {
	context, err := r.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("create whisper context: %w", err)
	}
	if err := context.SetLanguage(r.language); err != nil {
		return "", fmt.Errorf("set whisper language %q: %w", r.language, err)
	}

	if err := context.Process(buf.AsFloat32Buffer().Data, nil); err != nil {
		return "", fmt.Errorf("whisper process: %w", err)
	}

	var parts []string
	for {
		segment, err := context.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return "", fmt.Errorf("read whisper segment: %w", err)
		}
		if text := cleanSegment(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

// cleanSegment drops annotations such as "[BLANK_AUDIO]" or "(wind blowing)".
func cleanSegment(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if first, last := text[0], text[len(text)-1]; first == '(' || first == '[' || last == ')' || last == ']' {
		return ""
	}
	return text
}

func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.model == nil {
		return nil
	}
	err := r.model.Close()
	r.model = nil
	r.samples = nil
	return err
}
