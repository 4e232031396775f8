package audio

import "time"

const (
	DefaultSampleRate = 16000
	// DefaultChunkSize is the number of samples handed to the recognizer per read.
	DefaultChunkSize = 8000
	DefaultFormat    = "linear16"
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{
		SampleRate: DefaultSampleRate,
		Format:     encodingFormat(DefaultFormat),
		ChunkSize:  DefaultChunkSize,
	}
}

// EncodingInfo describes mono PCM audio delivered in fixed-size chunks.
type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
	ChunkSize  int
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == "" || e.ChunkSize == 0
}

// ChunkBytes is the size of one chunk in bytes, or 0 for unknown formats.
func (e EncodingInfo) ChunkBytes() int {
	if size := e.Format.ByteSize(); size > 0 {
		return e.ChunkSize * size
	}
	return 0
}

func (e EncodingInfo) ChunkDuration() time.Duration {
	if e.SampleRate == 0 {
		return 0
	}
	return time.Duration(e.ChunkSize) * time.Second / time.Duration(e.SampleRate)
}

func (e EncodingInfo) SilenceValue() byte {
	switch e.Format {
	case EncodingALaw:
		return 0x55
	case EncodingMulaw:
		return 0xFF
	}
	return 0
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingMulaw, EncodingALaw:
		return 1
	case EncodingLinear16:
		return 2
	}
	return -1
}

const (
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingALaw     encodingFormat = "alaw"
	EncodingLinear16 encodingFormat = "linear16"
)

// ParseFormat returns the named format, or false when it is not supported.
func ParseFormat(name string) (encodingFormat, bool) {
	switch f := encodingFormat(name); f {
	case EncodingMulaw, EncodingALaw, EncodingLinear16:
		return f, true
	}
	return "", false
}
