package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/hkguide/server/adapters/playback"
	"github.com/hkguide/server/adapters/stt"
	"github.com/hkguide/server/adapters/tts"
	"github.com/hkguide/server/domain/entities"
	"github.com/hkguide/server/domain/repositories"
)

type staticCompleter struct {
	mu    sync.Mutex
	calls int
}

func (s *staticCompleter) Complete(ctx context.Context, history []repositories.ChatMessage, utterance string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return "Take the Star Ferry to Central.", nil
}

// received is a loose view over every outbound message type.
type received struct {
	Type     MessageType                 `json:"type"`
	Turns    []entities.ConversationTurn `json:"turns"`
	Pipeline entities.PipelineState      `json:"pipeline"`
	Voice    entities.VoiceState         `json:"voice"`
	HandleID string                      `json:"handle_id"`
	URI      string                      `json:"uri"`
	Text     string                      `json:"text"`
	IsFinal  bool                        `json:"is_final"`
	Title    string                      `json:"title"`
	Code     string                      `json:"error_code"`
	Data     string                      `json:"data"`
}

func setupTestHub(t *testing.T) (*Hub, string) {
	t.Helper()
	logger := zaptest.NewLogger(t)

	hub := NewHub(Dependencies{
		Completer:   &staticCompleter{},
		Synthesizer: tts.NewMockTTS(logger),
		NewCapture: func(logger *zap.Logger) (repositories.SpeechCapture, error) {
			return stt.NewScriptedCaptureFromText("Plan a day in Central", 0, logger), nil
		},
		SettleDelay: 20 * time.Millisecond,
		Locale:      "en-US",
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	e := echo.New()
	e.GET("/ws", func(c echo.Context) error {
		return HandleWebSocketWithAuth(hub, c, "user-1", logger)
	})
	srv := httptest.NewServer(e)

	t.Cleanup(func() {
		cancel()
		srv.Close()
	})

	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendJSON(t *testing.T, conn *websocket.Conn, v interface{}) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}
}

// readUntil reads messages until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, what string, match func(received) bool) received {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	defer conn.SetReadDeadline(time.Time{})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("Failed waiting for %s: %v", what, err)
		}
		var msg received
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("Failed to decode %s: %v", data, err)
		}
		if match(msg) {
			return msg
		}
	}
}

func ofType(mt MessageType) func(received) bool {
	return func(m received) bool { return m.Type == mt }
}

func TestHub_SnapshotOnConnect(t *testing.T) {
	_, url := setupTestHub(t)
	conn := dial(t, url)

	conv := readUntil(t, conn, "conversation", ofType(MessageTypeConversation))
	if len(conv.Turns) != 0 {
		t.Errorf("Expected empty conversation, got %d turns", len(conv.Turns))
	}

	state := readUntil(t, conn, "state", ofType(MessageTypeState))
	if state.Pipeline != entities.PipelineIdle || state.Voice != entities.VoiceIdle {
		t.Errorf("Expected idle states, got %s/%s", state.Pipeline, state.Voice)
	}
}

func TestHub_TextTurnWithPlayback(t *testing.T) {
	_, url := setupTestHub(t)
	conn := dial(t, url)

	sendJSON(t, conn, map[string]string{"type": "text_submit", "text": "How do I get to Central?"})

	pending := readUntil(t, conn, "placeholder", func(m received) bool {
		return m.Type == MessageTypeConversation && len(m.Turns) == 2
	})
	if !pending.Turns[1].Pending || pending.Turns[1].Content != entities.ThinkingPlaceholder {
		t.Errorf("Expected placeholder, got %+v", pending.Turns[1])
	}

	resolved := readUntil(t, conn, "reply", func(m received) bool {
		return m.Type == MessageTypeConversation && len(m.Turns) == 2 && !m.Turns[1].Pending
	})
	if resolved.Turns[1].Content != "Take the Star Ferry to Central." {
		t.Errorf("Unexpected reply: %q", resolved.Turns[1].Content)
	}

	load := readUntil(t, conn, "audio_load", ofType(MessageTypeAudioLoad))
	if load.HandleID == "" {
		t.Fatal("Expected a handle id")
	}
	audio, err := playback.DecodeDataURI(load.URI)
	if err != nil {
		t.Fatalf("Invalid audio uri: %v", err)
	}
	if len(audio) == 0 {
		t.Error("Expected audio bytes")
	}

	play := readUntil(t, conn, "audio_play", ofType(MessageTypeAudioPlay))
	if play.HandleID != load.HandleID {
		t.Errorf("Play for %q, loaded %q", play.HandleID, load.HandleID)
	}

	readUntil(t, conn, "playing state", func(m received) bool {
		return m.Type == MessageTypeState && m.Pipeline == entities.PipelinePlaying
	})

	sendJSON(t, conn, map[string]string{"type": "playback_status", "handle_id": load.HandleID, "status": "finished"})

	readUntil(t, conn, "idle state", func(m received) bool {
		return m.Type == MessageTypeState && m.Pipeline == entities.PipelineIdle
	})
}

func TestHub_RejectsWhileTurnInFlight(t *testing.T) {
	_, url := setupTestHub(t)
	conn := dial(t, url)

	sendJSON(t, conn, map[string]string{"type": "text_submit", "text": "first"})
	readUntil(t, conn, "audio_play", ofType(MessageTypeAudioPlay))

	// The first turn waits for the device to report playback.
	sendJSON(t, conn, map[string]string{"type": "text_submit", "text": "second"})
	msg := readUntil(t, conn, "error", ofType(MessageTypeError))
	if msg.Code != ErrorCodeTurnInFlight {
		t.Errorf("Expected %s, got %s", ErrorCodeTurnInFlight, msg.Code)
	}
}

func TestHub_EmptySubmission(t *testing.T) {
	_, url := setupTestHub(t)
	conn := dial(t, url)

	sendJSON(t, conn, map[string]string{"type": "text_submit", "text": "   "})
	msg := readUntil(t, conn, "error", ofType(MessageTypeError))
	if msg.Code != ErrorCodeEmptySubmission {
		t.Errorf("Expected %s, got %s", ErrorCodeEmptySubmission, msg.Code)
	}
}

func TestHub_VoiceTurn(t *testing.T) {
	_, url := setupTestHub(t)
	conn := dial(t, url)

	sendJSON(t, conn, map[string]string{"type": "record_start", "locale": "en-HK"})
	readUntil(t, conn, "recording state", func(m received) bool {
		return m.Type == MessageTypeState && m.Voice == entities.VoiceRecording
	})
	readUntil(t, conn, "full partial", func(m received) bool {
		return m.Type == MessageTypeTranscript && m.Text == "Plan a day in Central"
	})

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{0, 1, 2, 3}); err != nil {
		t.Fatalf("Failed to send audio: %v", err)
	}

	sendJSON(t, conn, map[string]string{"type": "record_stop"})

	conv := readUntil(t, conn, "submitted turn", func(m received) bool {
		return m.Type == MessageTypeConversation && len(m.Turns) == 2
	})
	if conv.Turns[0].Content != "Plan a day in Central" {
		t.Errorf("Expected recognized text as user turn, got %q", conv.Turns[0].Content)
	}
}

func TestHub_PingAndInvalidMessage(t *testing.T) {
	_, url := setupTestHub(t)
	conn := dial(t, url)

	sendJSON(t, conn, map[string]string{"type": "ping", "data": "hello"})
	pong := readUntil(t, conn, "pong", ofType(MessageTypePong))
	if pong.Data != "hello" {
		t.Errorf("Expected pong data hello, got %q", pong.Data)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"bogus"}`)); err != nil {
		t.Fatalf("Failed to send: %v", err)
	}
	msg := readUntil(t, conn, "error", ofType(MessageTypeError))
	if msg.Code != ErrorCodeInvalidMessage {
		t.Errorf("Expected %s, got %s", ErrorCodeInvalidMessage, msg.Code)
	}
}

func waitForCount(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Expected %d clients, got %d", want, hub.ClientCount())
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub, url := setupTestHub(t)

	conn := dial(t, url)
	waitForCount(t, hub, 1)

	conn.Close()
	waitForCount(t, hub, 0)
}

func TestSessionCleanupService_ClosesIdleSessions(t *testing.T) {
	hub, url := setupTestHub(t)
	conn := dial(t, url)
	waitForCount(t, hub, 1)

	cleanup := NewSessionCleanupService(hub, time.Minute, time.Hour, zaptest.NewLogger(t))

	if closed := cleanup.runCleanup(); closed != 0 {
		t.Errorf("Fresh session should not be reaped, closed %d", closed)
	}

	cleanup.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if closed := cleanup.runCleanup(); closed != 1 {
		t.Errorf("Expected 1 idle session closed, got %d", closed)
	}
	waitForCount(t, hub, 0)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
