package deepgram

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"

	"github.com/koscakluka/ema-commander/core/audio"
)

// ErrUnsupportedAudio is returned for capture settings the live endpoint
// cannot transcribe.
var ErrUnsupportedAudio = errors.New("unsupported audio for deepgram")

// linear16Rates are the capture rates the commander can configure that the
// live endpoint accepts for raw PCM. Companded formats are telephony only.
var linear16Rates = []int{8000, 16000, 24000, 32000, 44100, 48000}

// audioParams describes mono capture audio as live listen query parameters.
func audioParams(encoding audio.EncodingInfo) (url.Values, error) {
	var name string
	switch encoding.Format {
	case audio.EncodingLinear16:
		if !slices.Contains(linear16Rates, encoding.SampleRate) {
			return nil, fmt.Errorf("%w: sample rate %d", ErrUnsupportedAudio, encoding.SampleRate)
		}
		name = "linear16"
	case audio.EncodingALaw, audio.EncodingMulaw:
		if encoding.SampleRate != 8000 {
			return nil, fmt.Errorf("%w: %s needs 8000 Hz, got %d", ErrUnsupportedAudio, encoding.Format.Name(), encoding.SampleRate)
		}
		name = encoding.Format.Name()
	default:
		return nil, fmt.Errorf("%w: encoding %q", ErrUnsupportedAudio, encoding.Format.Name())
	}

	return url.Values{
		"encoding":    {name},
		"sample_rate": {strconv.Itoa(encoding.SampleRate)},
		"channels":    {"1"},
	}, nil
}
