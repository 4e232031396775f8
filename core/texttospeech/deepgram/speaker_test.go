package deepgram

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type recordingSink struct {
	mu      sync.Mutex
	pcm     bytes.Buffer
	flushes int
}

func (s *recordingSink) Write(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pcm.Write(pcm)
	return nil
}

func (s *recordingSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

// newSpeakServer answers Speak+Flush with two audio frames and Flushed unless
// hang is set, in which case it never answers.
func newSpeakServer(t *testing.T, hang bool) (*httptest.Server, chan websocketMessage) {
	t.Helper()
	received := make(chan websocketMessage, 16)
	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var msg websocketMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			received <- msg
			if msg.Type == "Flush" && !hang {
				_ = conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2})
				_ = conn.WriteMessage(websocket.BinaryMessage, []byte{3, 4})
				_ = conn.WriteJSON(websocketMessage{Type: "Flushed"})
			}
		}
	}))
	t.Cleanup(server.Close)
	return server, received
}

func TestSpeakPlaysAudioUntilFlushed(t *testing.T) {
	server, received := newSpeakServer(t, false)
	sink := &recordingSink{}

	speaker, err := New(sink, WithAPIKey("secret"), WithSpeakURL("ws"+strings.TrimPrefix(server.URL, "http")))
	if err != nil {
		t.Fatalf("failed to create speaker: %v", err)
	}

	if err := speaker.Speak(context.Background(), "Task completed"); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	if !bytes.Equal(sink.pcm.Bytes(), []byte{1, 2, 3, 4}) || sink.flushes != 1 {
		t.Fatalf("unexpected playback %v flushes=%d", sink.pcm.Bytes(), sink.flushes)
	}
	if first := <-received; first.Type != "Speak" || first.Text != "Task completed" {
		t.Fatalf("unexpected first message %+v", first)
	}
}

func TestSpeakHonoursCancellation(t *testing.T) {
	server, _ := newSpeakServer(t, true)

	speaker, err := New(&recordingSink{}, WithAPIKey("secret"), WithSpeakURL("ws"+strings.TrimPrefix(server.URL, "http")))
	if err != nil {
		t.Fatalf("failed to create speaker: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := speaker.Speak(ctx, "hello"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestNewValidatesConfiguration(t *testing.T) {
	if _, err := New(nil, WithAPIKey("secret")); err == nil {
		t.Fatalf("expected missing sink to fail")
	}
	if _, err := New(&recordingSink{}, WithAPIKey("secret"), WithVoice("robot-voice")); err == nil {
		t.Fatalf("expected unknown voice to fail")
	}
	t.Setenv("DEEPGRAM_API_KEY", "")
	if _, err := New(&recordingSink{}); err == nil {
		t.Fatalf("expected missing key to fail")
	}
}
