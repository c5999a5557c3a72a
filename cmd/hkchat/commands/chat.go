package commands

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hkguide/server/adapters/playback"
	"github.com/hkguide/server/domain/entities"
	gateway "github.com/hkguide/server/internal/websocket"
)

const closeGracePeriod = 2 * time.Second

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant",
	Long: `Chat with the assistant over the gateway.

Type a message and press enter. Spoken replies are saved under the data
directory. Commands:
  /voice NAME   switch the synthesis voice
  /quit         leave the chat`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		token, err := store.LoadToken(cmd.Context())
		store.Close()
		if err != nil {
			return err
		}
		if token == "" {
			return errors.New("no gateway session, run: hkchat login")
		}

		target, err := websocketURL(gatewayURL)
		if err != nil {
			return err
		}
		header := http.Header{}
		header.Set("Authorization", "Bearer "+token)

		conn, resp, err := websocket.DefaultDialer.DialContext(cmd.Context(), target, header)
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusUnauthorized {
				return errors.New("gateway session expired, run: hkchat login")
			}
			return fmt.Errorf("failed to connect to %s: %w", target, err)
		}
		defer conn.Close()

		session := &chatSession{
			conn:     conn,
			audioDir: filepath.Join(dataDir, "audio"),
			printed:  make(map[string]bool),
			audio:    make(map[string]string),
			logger:   newLogger(),
		}
		fmt.Println("Connected. Type /quit to leave.")
		return session.run(cmd.Context())
	},
}

// chatSession is one terminal chat over the gateway socket.
type chatSession struct {
	conn     *websocket.Conn
	writeMu  sync.Mutex
	quitting atomic.Bool

	audioDir string
	printed  map[string]bool
	audio    map[string]string
	logger   *zap.Logger
}

func (s *chatSession) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		close(lines)
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return s.readLoop()
	})
	g.Go(func() error {
		return s.writeLoop(gctx, lines)
	})
	return g.Wait()
}

func (s *chatSession) writeLoop(ctx context.Context, lines <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return s.closeNormal()
			}
			line = strings.TrimSpace(line)
			switch {
			case line == "":
				continue
			case line == "/quit":
				return s.closeNormal()
			case strings.HasPrefix(line, "/voice"):
				voice := strings.TrimSpace(strings.TrimPrefix(line, "/voice"))
				if voice == "" {
					fmt.Println("usage: /voice NAME")
					continue
				}
				if err := s.send(gateway.SetVoiceMessage{
					BaseMessage: gateway.BaseMessage{Type: gateway.MessageTypeSetVoice},
					Voice:       voice,
				}); err != nil {
					return err
				}
			default:
				if err := s.send(gateway.TextSubmitMessage{
					BaseMessage: gateway.BaseMessage{Type: gateway.MessageTypeTextSubmit},
					Text:        line,
				}); err != nil {
					return err
				}
			}
		}
	}
}

func (s *chatSession) readLoop() error {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if s.quitting.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("connection lost: %w", err)
		}
		if err := s.handle(data); err != nil {
			s.logger.Warn("Failed to handle gateway message", zap.Error(err))
		}
	}
}

func (s *chatSession) handle(data []byte) error {
	var base gateway.BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return err
	}

	switch base.Type {
	case gateway.MessageTypeConversation:
		var msg gateway.ConversationMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return err
		}
		s.printReplies(msg.Turns)

	case gateway.MessageTypeAlert:
		var msg gateway.AlertMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return err
		}
		fmt.Printf("[%s] %s\n", msg.Title, msg.Message)

	case gateway.MessageTypeError:
		var msg gateway.ErrorMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return err
		}
		fmt.Printf("error: %s\n", msg.Message)

	case gateway.MessageTypeAudioLoad:
		var msg gateway.AudioLoadMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return err
		}
		return s.loadAudio(msg)

	case gateway.MessageTypeAudioPlay:
		var msg gateway.AudioControlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return err
		}
		return s.playAudio(msg.HandleID)

	default:
		s.logger.Debug("Ignoring gateway message", zap.String("type", string(base.Type)))
	}
	return nil
}

// printReplies prints each resolved bot turn once.
func (s *chatSession) printReplies(turns []entities.ConversationTurn) {
	for _, turn := range turns {
		if turn.Role != entities.TurnRoleBot || turn.Pending || s.printed[turn.ID] {
			continue
		}
		s.printed[turn.ID] = true
		fmt.Printf("assistant> %s\n", turn.Content)
	}
}

func (s *chatSession) loadAudio(msg gateway.AudioLoadMessage) error {
	audio, err := playback.DecodeDataURI(msg.URI)
	if err != nil {
		return s.reportPlayback(msg.HandleID, entities.PlaybackError, err.Error())
	}
	if err := os.MkdirAll(s.audioDir, 0o700); err != nil {
		return s.reportPlayback(msg.HandleID, entities.PlaybackError, err.Error())
	}

	path := filepath.Join(s.audioDir, msg.HandleID+".mp3")
	if err := os.WriteFile(path, audio, 0o600); err != nil {
		return s.reportPlayback(msg.HandleID, entities.PlaybackError, err.Error())
	}
	s.audio[msg.HandleID] = path
	return nil
}

// playAudio stands in for a speaker: the reply is already on disk, so
// playback completes immediately.
func (s *chatSession) playAudio(handleID string) error {
	path, ok := s.audio[handleID]
	if !ok {
		return s.reportPlayback(handleID, entities.PlaybackError, "audio was not loaded")
	}
	if err := s.reportPlayback(handleID, entities.PlaybackPlaying, ""); err != nil {
		return err
	}
	fmt.Printf("(audio saved to %s)\n", path)
	delete(s.audio, handleID)
	return s.reportPlayback(handleID, entities.PlaybackFinished, "")
}

func (s *chatSession) reportPlayback(handleID string, status entities.PlaybackStatus, reason string) error {
	return s.send(gateway.PlaybackStatusMessage{
		BaseMessage: gateway.BaseMessage{Type: gateway.MessageTypePlaybackStatus},
		HandleID:    handleID,
		Status:      status,
		Error:       reason,
	})
}

func (s *chatSession) send(v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

// closeNormal starts the close handshake and gives the gateway a moment to
// answer before the read loop gives up.
func (s *chatSession) closeNormal() error {
	s.quitting.Store(true)
	_ = s.conn.SetReadDeadline(time.Now().Add(closeGracePeriod))

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := s.conn.WriteMessage(websocket.CloseMessage, msg); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		return err
	}
	return nil
}
