// Package audio defines the capture contract shared by the audio backends.
package audio

import (
	"context"
	"errors"
	"sync"
)

// ErrSourceClosed is returned by reads after a source has been closed.
var ErrSourceClosed = errors.New("audio source closed")

// Source delivers captured audio in chunks of EncodingInfo().ChunkBytes()
// bytes. ReadChunk blocks until a full chunk is available; io.EOF marks the
// end of a finite source.
type Source interface {
	ReadChunk(ctx context.Context) ([]byte, error)
	EncodingInfo() EncodingInfo
	Close() error
}

// Chunker regroups arbitrarily sized writes into fixed-size chunks and queues
// them for a reader. Writes never block: when the queue is full the chunk is
// dropped and counted.
type Chunker struct {
	mu      sync.Mutex
	size    int
	pending []byte
	closed  bool
	dropped int

	chunks chan []byte
}

func NewChunker(chunkBytes, depth int) *Chunker {
	if depth < 1 {
		depth = 1
	}
	return &Chunker{size: chunkBytes, chunks: make(chan []byte, depth)}
}

func (c *Chunker) Write(p []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.pending = append(c.pending, p...)
	for len(c.pending) >= c.size {
		chunk := make([]byte, c.size)
		copy(chunk, c.pending)
		c.pending = c.pending[c.size:]

		select {
		case c.chunks <- chunk:
		default:
			c.dropped++
		}
	}
}

// Read waits for the next chunk. It returns ErrSourceClosed once the chunker
// is closed and drained.
func (c *Chunker) Read(ctx context.Context) ([]byte, error) {
	select {
	case chunk, ok := <-c.chunks:
		if !ok {
			return nil, ErrSourceClosed
		}
		return chunk, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Dropped returns how many chunks were discarded because nobody was reading.
func (c *Chunker) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Close discards any partial chunk and ends the stream.
func (c *Chunker) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.pending = nil
	close(c.chunks)
}
