package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hkguide/server/domain"
	"github.com/hkguide/server/domain/entities"
	"github.com/hkguide/server/domain/repositories"
)

const (
	// ApologyReply replaces the placeholder when completion fails.
	ApologyReply = "Sorry, I encountered an error generating a response."
	// AudioErrorMessage accompanies the audio alert.
	AudioErrorMessage = "Failed to generate or play audio response. Please check your internet connection."
	// DefaultVoice is the synthesis voice used until the client picks one.
	DefaultVoice = "Alice"
	// DefaultPlaybackTimeout bounds the wait for the device to report the end
	// of playback.
	DefaultPlaybackTimeout = 90 * time.Second
)

// ChatObserver receives pipeline notifications. Callbacks run with the
// session lock held and must not call back into the ChatService.
type ChatObserver interface {
	OnConversation(turns []entities.ConversationTurn)
	OnPipelineState(state entities.PipelineState)
	OnAlert(alert entities.Alert)
}

// ChatService runs chat turns for one session: completion, then synthesis,
// then playback. Only one turn is in flight at a time.
type ChatService struct {
	completer   repositories.ChatCompleter
	synthesizer repositories.SpeechSynthesizer
	player      repositories.AudioPlayer
	observer    ChatObserver
	logger      *zap.Logger

	conversation *entities.ConversationLog

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu              sync.Mutex
	state           entities.PipelineState
	voice           string
	playbackTimeout time.Duration
	closed          bool
}

// NewChatService creates a chat service
func NewChatService(
	completer repositories.ChatCompleter,
	synthesizer repositories.SpeechSynthesizer,
	player repositories.AudioPlayer,
	observer ChatObserver,
	logger *zap.Logger,
) *ChatService {
	ctx, cancel := context.WithCancel(context.Background())
	return &ChatService{
		completer:       completer,
		synthesizer:     synthesizer,
		player:          player,
		observer:        observer,
		logger:          logger,
		conversation:    entities.NewConversationLog(),
		ctx:             ctx,
		cancel:          cancel,
		state:           entities.PipelineIdle,
		voice:           DefaultVoice,
		playbackTimeout: DefaultPlaybackTimeout,
	}
}

// Submit appends the user turn and its placeholder, then processes the turn
// in the background. It returns the turn id.
func (s *ChatService) Submit(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.ErrEmptySubmission
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", domain.ErrSessionClosed
	}
	if s.state.Busy() {
		return "", domain.ErrTurnInFlight
	}

	turnID := uuid.NewString()
	if err := s.conversation.BeginTurn(turnID, text); err != nil {
		return "", err
	}
	s.observer.OnConversation(s.conversation.Turns())
	s.setStateLocked(entities.PipelineAwaitingCompletion)

	s.logger.Info("Chat turn submitted", zap.String("turnID", turnID), zap.Int("length", len(text)))

	s.wg.Add(1)
	go s.runTurn(turnID, text)

	return turnID, nil
}

func (s *ChatService) runTurn(turnID, text string) {
	defer s.wg.Done()
	ctx := s.ctx
	logger := s.logger.With(zap.String("turnID", turnID))

	history := s.history(turnID)
	reply, err := s.completer.Complete(ctx, history, text)
	if ctx.Err() != nil {
		logger.Info("Turn abandoned during completion")
		return
	}
	if err != nil {
		logger.Warn("Completion failed", zap.Error(err))
		s.apply(func() {
			s.resolveLocked(turnID, ApologyReply)
			s.setStateLocked(entities.PipelineIdle)
		})
		return
	}

	voice := ""
	if !s.apply(func() {
		s.resolveLocked(turnID, reply)
		s.conversation.SetAudioStatus(turnID, entities.AudioStatusPreparing)
		s.observer.OnConversation(s.conversation.Turns())
		s.setStateLocked(entities.PipelineAwaitingSynthesis)
		voice = s.voice
	}) {
		return
	}

	audio, err := s.synthesizer.Synthesize(ctx, reply, voice)
	if ctx.Err() != nil {
		logger.Info("Turn abandoned during synthesis")
		return
	}
	if err != nil {
		logger.Warn("Speech synthesis failed", zap.Error(err))
		s.failAudio(turnID)
		return
	}

	if !s.apply(func() {
		s.conversation.SetAudioStatus(turnID, entities.AudioStatusReady)
		s.observer.OnConversation(s.conversation.Turns())
	}) {
		return
	}

	handle, err := s.player.Play(ctx, audio)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		logger.Warn("Audio playback failed to start", zap.Error(err))
		s.failPlayback()
		return
	}
	var timeout time.Duration
	if !s.apply(func() {
		s.setStateLocked(entities.PipelinePlaying)
		timeout = s.playbackTimeout
	}) {
		return
	}

	waitCtx, cancelWait := context.WithTimeout(ctx, timeout)
	status, err := handle.Wait(waitCtx)
	cancelWait()
	if ctx.Err() != nil {
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("Device did not report the end of playback", zap.Duration("timeout", timeout))
		s.player.Release(ctx)
		s.failPlayback()
		return
	}
	if err != nil {
		logger.Warn("Audio playback failed", zap.Error(err))
		s.failPlayback()
		return
	}

	logger.Info("Chat turn completed", zap.String("playback", string(status)))
	s.apply(func() { s.setStateLocked(entities.PipelineIdle) })
}

func (s *ChatService) failAudio(turnID string) {
	s.apply(func() {
		s.conversation.SetAudioStatus(turnID, entities.AudioStatusFailed)
		s.observer.OnConversation(s.conversation.Turns())
		s.observer.OnAlert(entities.Alert{Title: entities.AlertTitleAudio, Message: AudioErrorMessage})
		s.setStateLocked(entities.PipelineIdle)
	})
}

func (s *ChatService) failPlayback() {
	s.apply(func() {
		s.observer.OnAlert(entities.Alert{Title: entities.AlertTitleAudio, Message: AudioErrorMessage})
		s.setStateLocked(entities.PipelineIdle)
	})
}

// apply runs fn under the session lock unless the session is closed.
func (s *ChatService) apply(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	fn()
	return true
}

func (s *ChatService) resolveLocked(turnID, content string) {
	if err := s.conversation.ResolvePlaceholder(turnID, content); err != nil {
		s.logger.Error("Failed to resolve placeholder", zap.String("turnID", turnID), zap.Error(err))
		return
	}
	s.observer.OnConversation(s.conversation.Turns())
}

func (s *ChatService) setStateLocked(state entities.PipelineState) {
	if s.state == state {
		return
	}
	s.state = state
	s.observer.OnPipelineState(state)
}

// history converts completed exchanges into chat messages, leaving out the
// turn being processed and exchanges that ended in an apology.
func (s *ChatService) history(exclude string) []repositories.ChatMessage {
	var messages []repositories.ChatMessage
	for _, pair := range s.conversation.Exchanges(exclude) {
		if pair[1].Content == ApologyReply {
			continue
		}
		messages = append(messages,
			repositories.ChatMessage{Role: repositories.UserRole, Content: pair[0].Content},
			repositories.ChatMessage{Role: repositories.AssistantRole, Content: pair[1].Content},
		)
	}
	return messages
}

// SetVoice selects the synthesis voice for later turns.
func (s *ChatService) SetVoice(voice string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if voice == "" {
		voice = DefaultVoice
	}
	s.voice = voice
}

// SetPlaybackTimeout changes how long a turn waits for the device to finish
// playback. Non-positive values restore the default.
func (s *ChatService) SetPlaybackTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d <= 0 {
		d = DefaultPlaybackTimeout
	}
	s.playbackTimeout = d
}

func (s *ChatService) Voice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voice
}

func (s *ChatService) State() entities.PipelineState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Conversation returns a snapshot of the log.
func (s *ChatService) Conversation() []entities.ConversationTurn {
	return s.conversation.Turns()
}

// Close cancels the in-flight turn and waits for it to unwind. After Close
// returns the log is never mutated and no observer is called.
func (s *ChatService) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.player.Release(context.Background())

	s.logger.Info("Chat service closed", zap.Int("turns", s.conversation.Len()))
	return nil
}

// IsRejection reports whether err is a submission the caller should surface
// to the user rather than log.
func IsRejection(err error) bool {
	return errors.Is(err, domain.ErrEmptySubmission) || errors.Is(err, domain.ErrTurnInFlight)
}
