package wavfile

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/koscakluka/ema-commander/core/audio"
	"github.com/spf13/afero"
)

func writeWav(t *testing.T, fs afero.Fs, path string, sampleRate, channels int, samples []int) {
	t.Helper()

	f, err := fs.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()

	encoder := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           samples,
		SourceBitDepth: 16,
	}
	if err := encoder.Write(buf); err != nil {
		t.Fatalf("failed to write samples: %v", err)
	}
	if err := encoder.Close(); err != nil {
		t.Fatalf("failed to finalize wav: %v", err)
	}
}

func TestSourceChunksFileAndPadsTail(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeWav(t, fs, "/speech.wav", 16000, 1, []int{1, -2, 3, 4, 5})

	source, err := Open("/speech.wav", WithFs(fs), WithChunkSize(2))
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}
	defer source.Close()

	info := source.EncodingInfo()
	if info.SampleRate != 16000 || info.ChunkBytes() != 4 || info.Format != audio.EncodingLinear16 {
		t.Fatalf("unexpected encoding info %+v", info)
	}

	ctx := context.Background()
	var samples []int16
	for range 3 {
		chunk, err := source.ReadChunk(ctx)
		if err != nil {
			t.Fatalf("unexpected read error %v", err)
		}
		if len(chunk) != 4 {
			t.Fatalf("expected 4 byte chunk, got %d", len(chunk))
		}
		for i := 0; i < len(chunk); i += 2 {
			samples = append(samples, int16(binary.LittleEndian.Uint16(chunk[i:])))
		}
	}

	expected := []int16{1, -2, 3, 4, 5, 0}
	for i := range expected {
		if samples[i] != expected[i] {
			t.Fatalf("expected samples %v, got %v", expected, samples)
		}
	}

	if _, err := source.ReadChunk(ctx); !errors.Is(err, io.EOF) {
		t.Fatalf("expected io.EOF, got %v", err)
	}
}

func TestSourceRejectsStereo(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeWav(t, fs, "/stereo.wav", 16000, 2, []int{1, 1, 2, 2})

	if _, err := Open("/stereo.wav", WithFs(fs)); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestSourceRejectsGarbage(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/noise.wav", []byte("definitely not riff"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	if _, err := Open("/noise.wav", WithFs(fs)); err == nil {
		t.Fatalf("expected invalid file to fail")
	}
	if _, err := Open("/missing.wav", WithFs(fs)); err == nil {
		t.Fatalf("expected missing file to fail")
	}
}

func TestRealtimeSourcePacesReads(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeWav(t, fs, "/speech.wav", 1000, 1, make([]int, 60))

	// 20 samples at 1 kHz is 20ms per chunk.
	source, err := Open("/speech.wav", WithFs(fs), WithChunkSize(20), WithRealtime(true))
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}

	start := time.Now()
	for range 3 {
		if _, err := source.ReadChunk(context.Background()); err != nil {
			t.Fatalf("unexpected read error %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("expected paced reads to take at least 40ms, took %s", elapsed)
	}

	if err := source.Close(); err != nil {
		t.Fatalf("unexpected close error %v", err)
	}
	if _, err := source.ReadChunk(context.Background()); !errors.Is(err, audio.ErrSourceClosed) {
		t.Fatalf("expected ErrSourceClosed, got %v", err)
	}
}
