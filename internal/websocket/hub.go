package websocket

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hkguide/server/adapters/playback"
	"github.com/hkguide/server/domain/repositories"
	"github.com/hkguide/server/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio chunks

	sendBufferSize = 256
)

var ErrHubStopped = errors.New("hub is not running")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// CaptureFactory creates the speech capture for a new connection.
type CaptureFactory func(logger *zap.Logger) (repositories.SpeechCapture, error)

// Dependencies are shared by every session the hub creates.
type Dependencies struct {
	Completer       repositories.ChatCompleter
	Synthesizer     repositories.SpeechSynthesizer
	NewCapture      CaptureFactory
	SettleDelay     time.Duration
	PlaybackTimeout time.Duration
	Locale          string
}

// Hub maintains the set of active clients. Each client owns one chat session.
type Hub struct {
	// Registered clients, keyed by session id.
	clients map[string]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed when Run returns.
	done chan struct{}

	// Mutex for thread-safe access to clients map
	mu sync.RWMutex

	deps   Dependencies
	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(deps Dependencies, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		deps:       deps,
		logger:     logger,
	}
}

// Run starts the hub's main loop. When ctx ends every connection is closed.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.sessionID] = client
			h.mu.Unlock()
			h.logger.Info("Client registered",
				zap.String("sessionID", client.sessionID),
				zap.String("userID", client.userID))

		case client := <-h.unregister:
			h.mu.Lock()
			delete(h.clients, client.sessionID)
			h.mu.Unlock()
			h.logger.Info("Client unregistered", zap.String("sessionID", client.sessionID))

		case <-ctx.Done():
			h.mu.Lock()
			clients := make([]*Client, 0, len(h.clients))
			for id, client := range h.clients {
				clients = append(clients, client)
				delete(h.clients, id)
			}
			h.mu.Unlock()

			for _, client := range clients {
				client.close()
			}
			h.logger.Info("Hub stopped", zap.Int("closedClients", len(clients)))
			return
		}
	}
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ReapIdle closes clients with no inbound activity since the cutoff.
func (h *Hub) ReapIdle(cutoff time.Time) int {
	h.mu.RLock()
	var idle []*Client
	for _, client := range h.clients {
		if client.lastActive().Before(cutoff) {
			idle = append(idle, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range idle {
		h.logger.Info("Closing idle session", zap.String("sessionID", client.sessionID))
		client.close()
	}
	return len(idle)
}

// HandleWebSocketWithAuth upgrades an authenticated request and starts a
// session for the user.
func HandleWebSocketWithAuth(hub *Hub, c echo.Context, userID string, logger *zap.Logger) error {
	sessionID := uuid.NewString()
	clientLogger := logger.With(zap.String("sessionID", sessionID), zap.String("userID", userID))

	capture, err := hub.deps.NewCapture(clientLogger)
	if err != nil {
		logger.Error("Failed to create speech capture", zap.Error(err))
		return echo.NewHTTPError(http.StatusServiceUnavailable, "speech capture unavailable")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := newClient(hub, conn, sessionID, userID, clientLogger)
	client.player = playback.NewPlayer(&deviceSink{client: client}, clientLogger)
	client.chat = usecase.NewChatService(hub.deps.Completer, hub.deps.Synthesizer, client.player, client, clientLogger)
	client.chat.SetPlaybackTimeout(hub.deps.PlaybackTimeout)
	client.voice = usecase.NewVoiceService(capture, client.chat, client, hub.deps.SettleDelay, clientLogger)

	select {
	case hub.register <- client:
	case <-hub.done:
		client.close()
		return ErrHubStopped
	}

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	go client.readPump()

	client.sendSnapshot()
	return nil
}
