// Package wavfile replays a 16-bit mono WAV file as an audio.Source, for
// offline runs and tests without a microphone.
package wavfile

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/go-audio/wav"
	"github.com/koscakluka/ema-commander/core/audio"
	"github.com/spf13/afero"
)

var ErrUnsupportedFormat = errors.New("unsupported wav format")

type Source struct {
	info     audio.EncodingInfo
	realtime bool

	mu     sync.Mutex
	data   []byte
	offset int
	closed bool
	// next is when the next chunk may be released in realtime mode.
	next time.Time
}

type options struct {
	fs        afero.Fs
	chunkSize int
	realtime  bool
}

type Option func(*options)

// WithFs reads the file from fs instead of the OS filesystem.
func WithFs(fs afero.Fs) Option {
	return func(o *options) { o.fs = fs }
}

func WithChunkSize(samples int) Option {
	return func(o *options) {
		if samples > 0 {
			o.chunkSize = samples
		}
	}
}

// WithRealtime paces reads to the file's sample rate, as a microphone would.
func WithRealtime(realtime bool) Option {
	return func(o *options) { o.realtime = realtime }
}

// Open decodes the whole file at path.
func Open(path string, opts ...Option) (*Source, error) {
	o := options{fs: afero.NewOsFs(), chunkSize: audio.DefaultChunkSize}
	for _, opt := range opts {
		opt(&o)
	}

	f, err := o.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wav file: %w", err)
	}
	defer f.Close()

	return decode(f, o)
}

// NewSource decodes r. The reader is fully consumed before NewSource returns.
func NewSource(r io.ReadSeeker, opts ...Option) (*Source, error) {
	o := options{chunkSize: audio.DefaultChunkSize}
	for _, opt := range opts {
		opt(&o)
	}
	return decode(r, o)
}

func decode(r io.ReadSeeker, o options) (*Source, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid wav file", ErrUnsupportedFormat)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if decoder.NumChans != 1 || decoder.BitDepth != 16 {
		return nil, fmt.Errorf("%w: %d channel(s) at %d bits, want mono 16-bit",
			ErrUnsupportedFormat, decoder.NumChans, decoder.BitDepth)
	}

	data := make([]byte, len(buf.Data)*2)
	for i, sample := range buf.Data {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(int16(sample)))
	}

	return &Source{
		info: audio.EncodingInfo{
			SampleRate: int(decoder.SampleRate),
			Format:     audio.EncodingLinear16,
			ChunkSize:  o.chunkSize,
		},
		realtime: o.realtime,
		data:     data,
	}, nil
}

func (s *Source) EncodingInfo() audio.EncodingInfo { return s.info }

// ReadChunk returns the next chunk, padding the last one with silence, and
// io.EOF once the file is exhausted.
func (s *Source) ReadChunk(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, audio.ErrSourceClosed
	}
	if s.offset >= len(s.data) {
		return nil, io.EOF
	}

	if s.realtime {
		if err := s.pace(ctx); err != nil {
			return nil, err
		}
	} else if err := ctx.Err(); err != nil {
		return nil, err
	}

	size := s.info.ChunkBytes()
	chunk := make([]byte, size)
	n := copy(chunk, s.data[s.offset:])
	if silence := s.info.SilenceValue(); silence != 0 {
		for i := n; i < size; i++ {
			chunk[i] = silence
		}
	}
	s.offset += size

	return chunk, nil
}

func (s *Source) pace(ctx context.Context) error {
	now := time.Now()
	if s.next.IsZero() {
		s.next = now
	}
	if wait := s.next.Sub(now); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	s.next = s.next.Add(s.info.ChunkDuration())
	return nil
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.data = nil
	return nil
}
