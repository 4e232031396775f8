// Package deepgram streams audio to Deepgram's live transcription API.
package deepgram

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/gorilla/websocket"
	"github.com/koscakluka/ema-commander/core/audio"
	"github.com/koscakluka/ema-commander/core/speechtotext"
	"github.com/koscakluka/ema-commander/internal/utils"
)

const (
	defaultListenURL = "wss://api.deepgram.com/v1/listen"
	resultQueueSize  = 64
)

// Recognizer sends each chunk over a live websocket and returns whatever
// results arrived since the previous chunk. Transcripts lag the audio by the
// service's latency, so a final result usually surfaces a few chunks later.
type Recognizer struct {
	connMu sync.Mutex
	conn   *websocket.Conn

	results chan speechtotext.Result

	readErrMu sync.Mutex
	readErr   error

	done chan struct{}
}

type options struct {
	listenURL string
	apiKey    string
	language  string
	model     string
	dialer    *websocket.Dialer
}

type Option func(*options)

// WithListenURL overrides the websocket endpoint.
func WithListenURL(listenURL string) Option {
	return func(o *options) { o.listenURL = listenURL }
}

// WithAPIKey sets the key; by default DEEPGRAM_API_KEY is used.
func WithAPIKey(apiKey string) Option {
	return func(o *options) { o.apiKey = apiKey }
}

// WithLanguage sets the transcription language. Empty keeps the default.
func WithLanguage(language string) Option {
	return func(o *options) { o.language = utils.FirstNonZero(language, o.language) }
}

func WithModel(model string) Option {
	return func(o *options) { o.model = utils.FirstNonZero(model, o.model) }
}

// New opens the websocket for audio described by encoding.
func New(encoding audio.EncodingInfo, opts ...Option) (*Recognizer, error) {
	o := options{
		listenURL: defaultListenURL,
		apiKey:    os.Getenv("DEEPGRAM_API_KEY"),
		language:  "en-US",
		model:     "nova-3",
		dialer:    websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.apiKey == "" {
		return nil, fmt.Errorf("deepgram api key not found")
	}

	params, err := audioParams(encoding)
	if err != nil {
		return nil, err
	}

	conn, err := connectWebsocket(o, params)
	if err != nil {
		return nil, err
	}

	r := &Recognizer{
		conn:    conn,
		results: make(chan speechtotext.Result, resultQueueSize),
		done:    make(chan struct{}),
	}
	go r.readMessages(conn)

	return r, nil
}

func connectWebsocket(o options, params url.Values) (*websocket.Conn, error) {
	listenURL, err := url.Parse(o.listenURL)
	if err != nil {
		return nil, fmt.Errorf("invalid listen url: %w", err)
	}
	queryParams := listenURL.Query()
	for key, values := range params {
		queryParams[key] = values
	}
	queryParams.Set("model", o.model)
	queryParams.Set("language", o.language)
	queryParams.Set("smart_format", "true")
	queryParams.Set("interim_results", "true")
	queryParams.Set("endpointing", "300")
	listenURL.RawQuery = queryParams.Encode()

	conn, _, err := o.dialer.Dial(listenURL.String(),
		http.Header{"Authorization": {"Token " + o.apiKey}})
	if err != nil {
		return nil, fmt.Errorf("failed to open socket connection to deepgram: %w", err)
	}
	return conn, nil
}

// Accept writes chunk and collects queued results: finals are joined into
// one final result, otherwise the latest partial is returned.
func (r *Recognizer) Accept(chunk []byte) (speechtotext.Result, error) {
	r.connMu.Lock()
	conn := r.conn
	if conn == nil {
		r.connMu.Unlock()
		return speechtotext.Result{}, speechtotext.ErrClosed
	}
	if err := r.err(); err != nil {
		r.connMu.Unlock()
		return speechtotext.Result{}, err
	}
	err := conn.WriteMessage(websocket.BinaryMessage, chunk)
	r.connMu.Unlock()
	if err != nil {
		return speechtotext.Result{}, fmt.Errorf("failed to write to deepgram client: %w", err)
	}

	return r.collect(), nil
}

func (r *Recognizer) collect() speechtotext.Result {
	var finals []string
	var partial speechtotext.Result
	for {
		select {
		case result := <-r.results:
			if result.IsFinal {
				finals = append(finals, result.Text)
			} else {
				partial = result
			}
		default:
			if len(finals) > 0 {
				return speechtotext.Result{Text: strings.Join(finals, " "), IsFinal: true}
			}
			return partial
		}
	}
}

func (r *Recognizer) err() error {
	r.readErrMu.Lock()
	defer r.readErrMu.Unlock()
	return r.readErr
}

func (r *Recognizer) readMessages(conn *websocket.Conn) {
	defer close(r.done)

	for {
		msgType, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				r.readErrMu.Lock()
				r.readErr = fmt.Errorf("deepgram connection lost: %w", err)
				r.readErrMu.Unlock()
			}
			return
		}
		if msgType == websocket.BinaryMessage {
			continue
		}

		result, ok, err := parseMessage(msg)
		if err != nil {
			log.Println("Failed to unmarshal deepgram message", "error", err)
			continue
		}
		if !ok {
			continue
		}

		select {
		case r.results <- result:
		default:
			log.Println("Dropping deepgram result, queue full")
		}
	}
}

func parseMessage(msg []byte) (speechtotext.Result, bool, error) {
	var parsedMsg struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		return speechtotext.Result{}, false, err
	}
	if api.TypeResponse(parsedMsg.Type) != api.TypeMessageResponse {
		return speechtotext.Result{}, false, nil
	}

	var msgResp api.MessageResponse
	if err := json.Unmarshal(msg, &msgResp); err != nil {
		return speechtotext.Result{}, false, err
	}
	if len(msgResp.Channel.Alternatives) == 0 {
		return speechtotext.Result{}, false, nil
	}

	transcript := strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
	if transcript == "" {
		return speechtotext.Result{}, false, nil
	}
	return speechtotext.Result{Text: transcript, IsFinal: msgResp.IsFinal}, true, nil
}

// Close asks the service to flush and close the stream, then drops the socket.
func (r *Recognizer) Close() error {
	r.connMu.Lock()
	conn := r.conn
	r.conn = nil
	r.connMu.Unlock()
	if conn == nil {
		return nil
	}

	var errs []error
	if err := conn.WriteJSON(struct {
		Type string `json:"type"`
	}{Type: string(api.TypeCloseStreamResponse)}); err != nil {
		errs = append(errs, fmt.Errorf("failed to close deepgram stream: %w", err))
	}
	if err := conn.Close(); err != nil {
		errs = append(errs, err)
	}
	<-r.done
	return errors.Join(errs...)
}
