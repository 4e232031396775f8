// Package deepgram speaks text with Deepgram's streaming speak API and plays
// the returned PCM on an audio sink.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-commander/core/audio"
	"github.com/koscakluka/ema-commander/internal/utils"
)

const defaultSpeakURL = "wss://api.deepgram.com/v1/speak"

// Sink plays linear16 PCM. Flush is called once an utterance is complete.
type Sink interface {
	Write(pcm []byte) error
	Flush() error
}

type Speaker struct {
	voice    Voice
	sink     Sink
	encoding audio.EncodingInfo
	speakURL string
	apiKey   string
}

type Option func(*Speaker)

// WithVoice selects the voice. Empty keeps the default.
func WithVoice(voice Voice) Option {
	return func(s *Speaker) { s.voice = utils.FirstNonZero(voice, s.voice) }
}

func WithSpeakURL(speakURL string) Option {
	return func(s *Speaker) { s.speakURL = speakURL }
}

// WithAPIKey sets the key; by default DEEPGRAM_API_KEY is used.
func WithAPIKey(apiKey string) Option {
	return func(s *Speaker) { s.apiKey = apiKey }
}

// WithSampleRate sets the rate requested from the service; it must match the sink.
func WithSampleRate(sampleRate int) Option {
	return func(s *Speaker) { s.encoding.SampleRate = sampleRate }
}

func New(sink Sink, opts ...Option) (*Speaker, error) {
	s := &Speaker{
		voice:    defaultVoice,
		sink:     sink,
		encoding: audio.EncodingInfo{SampleRate: 24000, Format: audio.EncodingLinear16},
		speakURL: defaultSpeakURL,
		apiKey:   os.Getenv("DEEPGRAM_API_KEY"),
	}
	for _, opt := range opts {
		opt(s)
	}

	if sink == nil {
		return nil, fmt.Errorf("deepgram speaker needs an audio sink")
	}
	if !slices.Contains(availableVoices, s.voice) {
		return nil, fmt.Errorf("invalid voice %q", s.voice)
	}
	if s.apiKey == "" {
		return nil, fmt.Errorf("deepgram api key not found")
	}
	return s, nil
}

type websocketMessage struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

var (
	flushMsg = websocketMessage{Type: "Flush"}
	clearMsg = websocketMessage{Type: "Clear"}
	closeMsg = websocketMessage{Type: "Close"}
)

func sendTextMsg(text string) websocketMessage {
	return websocketMessage{Type: "Speak", Text: text}
}

// Speak opens a stream for the utterance, plays audio as it arrives and
// returns after the service reports the text flushed.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	conn, err := s.connect(ctx)
	if err != nil {
		return err
	}

	var writeMu sync.Mutex
	write := func(msg websocketMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(msg)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = write(clearMsg)
		_ = conn.Close()
	})
	defer stop()
	defer conn.Close()

	if err := write(sendTextMsg(text)); err != nil {
		return fmt.Errorf("failed to send text: %w", err)
	}
	if err := write(flushMsg); err != nil {
		return fmt.Errorf("failed to flush text: %w", err)
	}

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("websocket read error: %w", err)
		}

		switch msgType {
		case websocket.BinaryMessage:
			if err := s.sink.Write(msg); err != nil {
				return fmt.Errorf("failed to play speech: %w", err)
			}
		case websocket.TextMessage:
			var parsedMsg websocketMessage
			if err := json.Unmarshal(msg, &parsedMsg); err != nil {
				continue
			}
			if parsedMsg.Type != "Flushed" {
				continue
			}

			flushErr := s.sink.Flush()
			closeErr := write(closeMsg)
			if errors.Is(closeErr, websocket.ErrCloseSent) {
				closeErr = nil
			}
			return errors.Join(flushErr, closeErr)
		}
	}
}

func (s *Speaker) connect(ctx context.Context) (*websocket.Conn, error) {
	speakURL, err := url.Parse(s.speakURL)
	if err != nil {
		return nil, fmt.Errorf("invalid speak url: %w", err)
	}
	urlValues := speakURL.Query()
	urlValues.Set("encoding", s.encoding.Format.Name())
	urlValues.Set("sample_rate", strconv.Itoa(s.encoding.SampleRate))
	urlValues.Set("model", string(s.voice))
	urlValues.Set("container", "none")
	speakURL.RawQuery = urlValues.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, speakURL.String(),
		http.Header{"Authorization": {"token " + s.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	return conn, nil
}
