// Package vosk runs offline speech recognition with a local Vosk model.
package vosk

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"
	"github.com/koscakluka/ema-commander/core/speechtotext"
)

// Recognizer is a streaming Vosk recognizer. Final results are reported when
// Vosk detects the end of an utterance; otherwise the partial text is returned.
type Recognizer struct {
	mu         sync.Mutex
	model      *vosk.VoskModel
	recognizer *vosk.VoskRecognizer
}

type finalResult struct {
	Text string `json:"text"`
}

type partialResult struct {
	Partial string `json:"partial"`
}

func init() {
	// Silence the model loading chatter on stderr.
	vosk.SetLogLevel(-1)
}

// New loads the model directory at modelPath for audio at sampleRate.
func New(modelPath string, sampleRate int) (*Recognizer, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("vosk model not found at %s: %w", modelPath, err)
	}

	model, err := vosk.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load vosk model: %w", err)
	}

	rec, err := vosk.NewRecognizer(model, float64(sampleRate))
	if err != nil {
		model.Free()
		return nil, fmt.Errorf("failed to create vosk recognizer: %w", err)
	}

	return &Recognizer{model: model, recognizer: rec}, nil
}

func (r *Recognizer) Accept(chunk []byte) (speechtotext.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recognizer == nil {
		return speechtotext.Result{}, speechtotext.ErrClosed
	}

	switch r.recognizer.AcceptWaveform(chunk) {
	case 1:
		var result finalResult
		if err := json.Unmarshal([]byte(r.recognizer.Result()), &result); err != nil {
			return speechtotext.Result{}, fmt.Errorf("decode vosk result: %w", err)
		}
		return speechtotext.Result{Text: strings.TrimSpace(result.Text), IsFinal: true}, nil
	case 0:
		var result partialResult
		if err := json.Unmarshal([]byte(r.recognizer.PartialResult()), &result); err != nil {
			return speechtotext.Result{}, fmt.Errorf("decode vosk partial result: %w", err)
		}
		return speechtotext.Result{Text: strings.TrimSpace(result.Partial)}, nil
	default:
		return speechtotext.Result{}, fmt.Errorf("vosk rejected audio chunk")
	}
}

func (r *Recognizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.recognizer != nil {
		r.recognizer.Free()
		r.recognizer = nil
	}
	if r.model != nil {
		r.model.Free()
		r.model = nil
	}
	return nil
}
