package portaudio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PlaybackClient writes linear16 mono PCM to the default output device.
type PlaybackClient struct {
	mu            sync.Mutex
	bufferSize    int
	stream        *portaudio.Stream
	out           []int16
	leftoverAudio []byte
}

func NewPlaybackClient(sampleRate, bufferSize int) (*PlaybackClient, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	out := make([]int16, bufferSize)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(sampleRate), bufferSize, out)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to open output stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, fmt.Errorf("failed to start output stream: %w", err)
	}

	return &PlaybackClient{bufferSize: bufferSize, stream: stream, out: out}, nil
}

// Write plays every whole buffer in pcm and keeps the remainder for the next
// call or Flush.
func (c *PlaybackClient) Write(pcm []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.leftoverAudio = append(c.leftoverAudio, pcm...)
	return c.writeBuffers(false)
}

// Flush plays any buffered remainder padded with silence.
func (c *PlaybackClient) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeBuffers(true)
}

func (c *PlaybackClient) writeBuffers(pad bool) error {
	bufferBytes := c.bufferSize * 2
	if pad && len(c.leftoverAudio)%bufferBytes != 0 {
		padding := bufferBytes - len(c.leftoverAudio)%bufferBytes
		c.leftoverAudio = append(c.leftoverAudio, make([]byte, padding)...)
	}

	for len(c.leftoverAudio) >= bufferBytes {
		if err := binary.Read(bytes.NewReader(c.leftoverAudio[:bufferBytes]), binary.LittleEndian, c.out); err != nil {
			return fmt.Errorf("decode samples: %w", err)
		}
		c.leftoverAudio = c.leftoverAudio[bufferBytes:]
		if err := c.stream.Write(); err != nil {
			return fmt.Errorf("write output stream: %w", err)
		}
	}
	return nil
}

// ClearBuffer drops audio that has not been played yet.
func (c *PlaybackClient) ClearBuffer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.leftoverAudio = nil
}

func (c *PlaybackClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if err := c.stream.Stop(); err != nil {
		errs = append(errs, err)
	}
	if err := c.stream.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := portaudio.Terminate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("close playback client: %v", errs)
	}
	return nil
}
