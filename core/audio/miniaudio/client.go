// Package miniaudio captures microphone audio through miniaudio (malgo).
package miniaudio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-commander/core/audio"
)

// chunkQueueDepth is how many whole chunks may wait for a slow reader.
const chunkQueueDepth = 8

// Client is an audio.Source backed by the default capture device.
type Client struct {
	// audioContext is only kept so Close can uninitialize it.
	audioContext *malgo.AllocatedContext
	captureClient

	info    audio.EncodingInfo
	chunker *audio.Chunker

	closeOnce sync.Once
	closeErr  error
}

// NewClient opens the default capture device and starts delivering chunks.
func NewClient(info audio.EncodingInfo) (*Client, error) {
	if info.IsZero() {
		info = audio.GetDefaultEncodingInfo()
	}
	if info.Format != audio.EncodingLinear16 {
		return nil, fmt.Errorf("miniaudio capture: unsupported format %q", info.Format.Name())
	}

	audioCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(string) {})
	if err != nil {
		return nil, fmt.Errorf("malgo init context: %w", err)
	}

	client := &Client{
		audioContext: audioCtx,
		info:         info,
		chunker:      audio.NewChunker(info.ChunkBytes(), chunkQueueDepth),
	}

	if err := client.captureClient.Init(audioCtx, uint32(info.SampleRate)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialize capture client: %w", err)
	}
	if err := client.captureClient.Start(client.chunker.Write); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to start capture client: %w", err)
	}

	return client, nil
}

func (c *Client) EncodingInfo() audio.EncodingInfo { return c.info }

func (c *Client) ReadChunk(ctx context.Context) ([]byte, error) {
	return c.chunker.Read(ctx)
}

// Dropped reports chunks lost because the reader fell behind the device.
func (c *Client) Dropped() int {
	return c.chunker.Dropped()
}

func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		var errs []error
		if err := c.captureClient.Stop(); err != nil && !errors.Is(err, errDeviceNotInitialized) {
			errs = append(errs, err)
		}
		if err := c.captureClient.Uninit(); err != nil {
			errs = append(errs, err)
		}
		c.chunker.Close()
		if err := c.audioContext.Uninit(); err != nil {
			errs = append(errs, fmt.Errorf("malgo uninit context: %w", err))
		}
		c.audioContext.Free()
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}
