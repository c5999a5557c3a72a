package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hkguide/server/adapters/playback"
	"github.com/hkguide/server/domain"
	"github.com/hkguide/server/domain/entities"
	"github.com/hkguide/server/usecase"
)

var (
	errClientClosed = errors.New("client closed")
	errSendOverflow = errors.New("send buffer full")
)

type WriteData struct {
	// MessageType is the type of the websocket message.
	// Expect websocket.TextMessage or websocket.BinaryMessage
	Type    int
	Payload []byte
}

// Client is a middleman between the websocket connection and its session.
type Client struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn

	// Buffered channel of outbound messages.
	send chan WriteData

	// Closed when the session ends.
	done      chan struct{}
	closeOnce sync.Once

	sessionID string
	userID    string
	logger    *zap.Logger
	validator *MessageValidator

	chat   *usecase.ChatService
	voice  *usecase.VoiceService
	player *playback.Player

	// Last states, combined into one state message.
	stateMu  sync.Mutex
	pipeline entities.PipelineState
	voiceSt  entities.VoiceState

	active atomic.Int64
}

var (
	_ usecase.ChatObserver  = (*Client)(nil)
	_ usecase.VoiceObserver = (*Client)(nil)
)

func newClient(hub *Hub, conn *websocket.Conn, sessionID, userID string, logger *zap.Logger) *Client {
	c := &Client{
		hub:       hub,
		conn:      conn,
		send:      make(chan WriteData, sendBufferSize),
		done:      make(chan struct{}),
		sessionID: sessionID,
		userID:    userID,
		logger:    logger,
		validator: NewMessageValidator(),
		pipeline:  entities.PipelineIdle,
		voiceSt:   entities.VoiceIdle,
	}
	c.touch()
	return c
}

// readPump pumps messages from the websocket connection to the session.
func (c *Client) readPump() {
	defer func() {
		c.close()
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.TextMessage:
			c.touch()
			c.processMessage(message)
		case websocket.BinaryMessage:
			c.touch()
			c.processBinaryAudioChunk(message)
		default:
			c.logger.Warn("Received unknown message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the session to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(message.Type, message.Payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
				return
			}

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// processMessage dispatches an inbound control message.
func (c *Client) processMessage(message []byte) {
	msg, err := c.validator.ValidateMessage(message)
	if err != nil {
		c.logger.Warn("Rejected inbound message", zap.Error(err))
		c.sendError(ErrorCodeInvalidMessage, "Invalid message", err.Error())
		return
	}

	ctx := context.Background()

	switch m := msg.(type) {
	case *TextSubmitMessage:
		if _, err := c.chat.Submit(ctx, m.Text); err != nil {
			c.sendSessionError(err)
		}

	case *RecordStartMessage:
		locale := m.Locale
		if locale == "" {
			locale = c.hub.deps.Locale
		}
		if err := c.voice.Press(ctx, locale); err != nil {
			// Capture failures are reported through the voice alert.
			if errors.Is(err, domain.ErrAlreadyRecording) || errors.Is(err, domain.ErrSessionClosed) {
				c.sendSessionError(err)
			}
		}

	case *RecordStopMessage:
		if err := c.voice.Release(); err != nil {
			c.logger.Warn("Failed to release recording", zap.Error(err))
		}

	case *PlaybackStatusMessage:
		c.player.Report(m.HandleID, m.Status, m.Error)

	case *SetVoiceMessage:
		c.chat.SetVoice(m.Voice)
		c.logger.Info("Voice selected", zap.String("voice", m.Voice))

	case *PingMessage:
		c.sendJSON(CreatePongMessage(m.Data))
	}
}

// processBinaryAudioChunk forwards device audio to the capture engine
func (c *Client) processBinaryAudioChunk(data []byte) {
	if err := c.voice.Feed(data); err != nil {
		c.logger.Error("Failed to stream audio data", zap.Int("size", len(data)), zap.Error(err))
	}
}

func (c *Client) sendSessionError(err error) {
	switch {
	case errors.Is(err, domain.ErrEmptySubmission):
		c.sendError(ErrorCodeEmptySubmission, "Message is empty", "")
	case errors.Is(err, domain.ErrTurnInFlight):
		c.sendError(ErrorCodeTurnInFlight, "Please wait for the current reply to finish", "")
	case errors.Is(err, domain.ErrAlreadyRecording):
		c.sendError(ErrorCodeAlreadyRecording, "Already recording", "")
	case errors.Is(err, domain.ErrSessionClosed):
		c.sendError(ErrorCodeSessionClosed, "Session is closed", "")
	default:
		c.logger.Error("Session operation failed", zap.Error(err))
		c.sendError(ErrorCodeInternal, "Internal error", "")
	}
}

func (c *Client) sendError(code, message, details string) {
	c.sendJSON(CreateErrorMessage(code, message, details))
}

// sendJSON queues a message without blocking. Callers may hold session locks.
func (c *Client) sendJSON(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to marshal message", zap.Error(err))
		return err
	}

	select {
	case <-c.done:
		return errClientClosed
	default:
	}

	select {
	case c.send <- WriteData{Type: websocket.TextMessage, Payload: payload}:
		return nil
	default:
		c.logger.Warn("Dropping outbound message, send buffer full")
		return errSendOverflow
	}
}

// sendSnapshot pushes the current conversation and state.
func (c *Client) sendSnapshot() {
	turns := c.chat.Conversation()
	if turns == nil {
		turns = []entities.ConversationTurn{}
	}
	c.sendJSON(&ConversationMessage{BaseMessage: newBase(MessageTypeConversation), Turns: turns})
	c.sendState()
}

func (c *Client) sendState() {
	c.stateMu.Lock()
	msg := &StateMessage{BaseMessage: newBase(MessageTypeState), Pipeline: c.pipeline, Voice: c.voiceSt}
	c.stateMu.Unlock()
	c.sendJSON(msg)
}

// OnConversation implements usecase.ChatObserver
func (c *Client) OnConversation(turns []entities.ConversationTurn) {
	c.sendJSON(&ConversationMessage{BaseMessage: newBase(MessageTypeConversation), Turns: turns})
}

// OnPipelineState implements usecase.ChatObserver
func (c *Client) OnPipelineState(state entities.PipelineState) {
	c.stateMu.Lock()
	c.pipeline = state
	c.stateMu.Unlock()
	c.sendState()
}

// OnAlert implements usecase.ChatObserver and usecase.VoiceObserver
func (c *Client) OnAlert(alert entities.Alert) {
	c.sendJSON(&AlertMessage{BaseMessage: newBase(MessageTypeAlert), Alert: alert})
}

// OnVoiceState implements usecase.VoiceObserver
func (c *Client) OnVoiceState(state entities.VoiceState) {
	c.stateMu.Lock()
	c.voiceSt = state
	c.stateMu.Unlock()
	c.sendState()
}

// OnTranscript implements usecase.VoiceObserver
func (c *Client) OnTranscript(state entities.TranscriptState) {
	c.sendJSON(&TranscriptMessage{BaseMessage: newBase(MessageTypeTranscript), TranscriptState: state})
}

func (c *Client) touch() {
	c.active.Store(time.Now().UnixNano())
}

func (c *Client) lastActive() time.Time {
	return time.Unix(0, c.active.Load())
}

// close ends the session: recording and the in-flight turn are abandoned and
// the connection is closed.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.voice != nil {
			if err := c.voice.Close(); err != nil {
				c.logger.Warn("Failed to stop speech capture", zap.Error(err))
			}
		}
		if c.chat != nil {
			c.chat.Close()
		}
		c.conn.Close()
	})
}

// deviceSink delivers playback commands to the device over the connection.
type deviceSink struct {
	client *Client
}

func (s *deviceSink) Load(ctx context.Context, handleID, uri string) error {
	return s.client.sendJSON(&AudioLoadMessage{BaseMessage: newBase(MessageTypeAudioLoad), HandleID: handleID, URI: uri})
}

func (s *deviceSink) Play(ctx context.Context, handleID string) error {
	return s.client.sendJSON(&AudioControlMessage{BaseMessage: newBase(MessageTypeAudioPlay), HandleID: handleID})
}

func (s *deviceSink) Stop(ctx context.Context, handleID string) error {
	return s.client.sendJSON(&AudioControlMessage{BaseMessage: newBase(MessageTypeAudioStop), HandleID: handleID})
}
