package stt

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hkguide/server/domain"
	"github.com/hkguide/server/domain/repositories"
)

// ScriptedCapture replays a fixed list of capture events. Partial events are
// emitted after Start, one per step; Stop emits the terminal event. A terminal
// event inside the script ends the session on its own, the way an engine
// error or timeout would.
type ScriptedCapture struct {
	logger      *zap.Logger
	script      []repositories.CaptureEvent
	step        time.Duration
	unavailable bool

	mu      sync.Mutex
	active  bool
	stopped chan struct{}
	fed     int
}

var _ repositories.SpeechCapture = (*ScriptedCapture)(nil)

// NewScriptedCapture creates a capture that replays script.
func NewScriptedCapture(script []repositories.CaptureEvent, step time.Duration, logger *zap.Logger) *ScriptedCapture {
	return &ScriptedCapture{logger: logger, script: script, step: step}
}

// NewScriptedCaptureFromText builds a script that recognizes text word by
// word, ending with the whole sentence as the final result.
func NewScriptedCaptureFromText(text string, step time.Duration, logger *zap.Logger) *ScriptedCapture {
	words := strings.Fields(text)
	script := make([]repositories.CaptureEvent, 0, len(words)+1)
	for i := range words {
		script = append(script, repositories.CaptureEvent{
			Kind: repositories.CapturePartial,
			Text: strings.Join(words[:i+1], " "),
		})
	}
	if len(words) > 0 {
		script = append(script, repositories.CaptureEvent{Kind: repositories.CaptureFinal, Text: strings.Join(words, " ")})
	}
	return NewScriptedCapture(script, step, logger)
}

// NewUnavailableCapture returns a capture whose Start always fails, as on a
// device without a speech engine or permission.
func NewUnavailableCapture(logger *zap.Logger) *ScriptedCapture {
	return &ScriptedCapture{logger: logger, unavailable: true}
}

// Start implements repositories.SpeechCapture
func (s *ScriptedCapture) Start(ctx context.Context, locale string) (<-chan repositories.CaptureEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unavailable {
		return nil, domain.ErrCaptureUnavailable
	}
	if s.active {
		return nil, domain.ErrAlreadyRecording
	}

	s.active = true
	s.stopped = make(chan struct{})
	events := make(chan repositories.CaptureEvent, len(s.script)+1)

	s.logger.Debug("Scripted capture started", zap.String("locale", locale), zap.Int("events", len(s.script)))

	go s.replay(ctx, s.stopped, events)
	return events, nil
}

func (s *ScriptedCapture) replay(ctx context.Context, stopped <-chan struct{}, events chan<- repositories.CaptureEvent) {
	defer close(events)
	defer s.finish(stopped)

	terminal := repositories.CaptureEvent{Kind: repositories.CaptureEnded}
	for _, ev := range s.script {
		if ev.Terminal() {
			if ev.Kind != repositories.CaptureFinal {
				events <- ev
				return
			}
			// A scripted final is held back until Stop.
			terminal = ev
			break
		}

		if s.step > 0 {
			select {
			case <-time.After(s.step):
			case <-stopped:
				events <- terminal
				return
			case <-ctx.Done():
				return
			}
		}
		events <- ev
	}

	select {
	case <-stopped:
		events <- terminal
	case <-ctx.Done():
	}
}

func (s *ScriptedCapture) finish(stopped <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped == stopped {
		s.active = false
	}
}

// Stop implements repositories.SpeechCapture
func (s *ScriptedCapture) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active {
		return nil
	}
	s.active = false
	close(s.stopped)
	return nil
}

// Feed implements repositories.SpeechCapture
func (s *ScriptedCapture) Feed(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		s.fed += len(chunk)
	}
	return nil
}

// Recording implements repositories.SpeechCapture
func (s *ScriptedCapture) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// BytesFed reports how much audio arrived while recording.
func (s *ScriptedCapture) BytesFed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fed
}
