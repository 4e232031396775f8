// Package portaudio captures microphone audio and plays PCM through PortAudio.
package portaudio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-commander/core/audio"
)

// CaptureClient reads fixed-size chunks from the default input device.
type CaptureClient struct {
	info   audio.EncodingInfo
	stream *portaudio.Stream
	in     []int16

	mu     sync.Mutex
	closed bool
}

// NewCaptureClient initializes PortAudio and starts a blocking mono input
// stream with one chunk per buffer. Only linear16 is supported.
func NewCaptureClient(info audio.EncodingInfo) (*CaptureClient, error) {
	if info.IsZero() {
		info = audio.GetDefaultEncodingInfo()
	}
	if info.Format != audio.EncodingLinear16 {
		return nil, fmt.Errorf("portaudio capture: unsupported format %q", info.Format.Name())
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	in := make([]int16, info.ChunkSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(info.SampleRate), info.ChunkSize, in)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to start input stream: %w", err)
	}

	return &CaptureClient{info: info, stream: stream, in: in}, nil
}

func (c *CaptureClient) EncodingInfo() audio.EncodingInfo { return c.info }

// ReadChunk blocks on the device until ChunkSize samples were captured.
func (c *CaptureClient) ReadChunk(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, audio.ErrSourceClosed
	}

	if err := c.stream.Read(); err != nil {
		return nil, fmt.Errorf("failed to read from input stream: %w", err)
	}

	buf := bytes.Buffer{}
	buf.Grow(len(c.in) * 2)
	if err := binary.Write(&buf, binary.LittleEndian, c.in); err != nil {
		return nil, fmt.Errorf("failed to encode samples: %w", err)
	}
	return buf.Bytes(), nil
}

func (c *CaptureClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	var errs []error
	if err := c.stream.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop input stream: %w", err))
	}
	if err := c.stream.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close input stream: %w", err))
	}
	if err := portaudio.Terminate(); err != nil {
		errs = append(errs, fmt.Errorf("terminate portaudio: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("close capture client: %v", errs)
	}
	return nil
}
