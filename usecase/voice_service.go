package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hkguide/server/domain"
	"github.com/hkguide/server/domain/entities"
	"github.com/hkguide/server/domain/repositories"
)

// DefaultSettleDelay is how long Release waits for the recognizer's last
// result before submitting.
const DefaultSettleDelay = 1500 * time.Millisecond

// Submitter accepts recognized text as a chat turn.
type Submitter interface {
	Submit(ctx context.Context, text string) (string, error)
}

// VoiceObserver receives press-and-hold notifications.
type VoiceObserver interface {
	OnVoiceState(state entities.VoiceState)
	OnTranscript(state entities.TranscriptState)
	OnAlert(alert entities.Alert)
}

// VoiceService drives press-and-hold recording: capture fills the transcript
// buffer while held, and the buffer is submitted once the settle delay after
// release has passed.
type VoiceService struct {
	capture     repositories.SpeechCapture
	transcript  *entities.TranscriptBuffer
	submitter   Submitter
	observer    VoiceObserver
	settleDelay time.Duration
	logger      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu         sync.Mutex
	state      entities.VoiceState
	generation uint64
	closed     bool
}

// NewVoiceService creates a voice service. A zero settle delay uses
// DefaultSettleDelay.
func NewVoiceService(
	capture repositories.SpeechCapture,
	submitter Submitter,
	observer VoiceObserver,
	settleDelay time.Duration,
	logger *zap.Logger,
) *VoiceService {
	if settleDelay <= 0 {
		settleDelay = DefaultSettleDelay
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &VoiceService{
		capture:     capture,
		transcript:  entities.NewTranscriptBuffer(),
		submitter:   submitter,
		observer:    observer,
		settleDelay: settleDelay,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		state:       entities.VoiceIdle,
	}
}

// Press starts recording. It fails with ErrAlreadyRecording unless idle.
func (v *VoiceService) Press(ctx context.Context, locale string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return domain.ErrSessionClosed
	}
	if v.state != entities.VoiceIdle {
		return domain.ErrAlreadyRecording
	}

	v.observer.OnTranscript(v.transcript.Clear())

	events, err := v.capture.Start(v.ctx, locale)
	if err != nil {
		v.logger.Warn("Failed to start speech capture", zap.Error(err))
		v.observer.OnAlert(entities.Alert{Title: entities.AlertTitleVoice, Message: voiceErrorMessage(err)})
		return err
	}

	v.generation++
	v.setStateLocked(entities.VoiceRecording)

	v.wg.Add(1)
	go v.pump(v.generation, events)
	return nil
}

// pump copies capture events into the transcript buffer. Events from an
// older recording are dropped.
func (v *VoiceService) pump(gen uint64, events <-chan repositories.CaptureEvent) {
	defer v.wg.Done()

	for ev := range events {
		v.mu.Lock()
		if v.closed || gen != v.generation {
			v.mu.Unlock()
			continue
		}

		switch ev.Kind {
		case repositories.CapturePartial:
			v.observer.OnTranscript(v.transcript.Update(ev.Text, false))
		case repositories.CaptureFinal:
			v.observer.OnTranscript(v.transcript.Update(ev.Text, true))
		case repositories.CaptureError:
			v.logger.Warn("Speech capture error", zap.String("reason", ev.Reason))
			v.observer.OnAlert(entities.Alert{Title: entities.AlertTitleVoice, Message: ev.Reason})
			if v.state == entities.VoiceRecording {
				_ = v.capture.Stop()
				v.setStateLocked(entities.VoiceIdle)
			}
		case repositories.CaptureEnded:
			v.logger.Debug("Speech capture ended")
		}
		v.mu.Unlock()
	}
}

// Release stops recording and schedules submission after the settle delay.
// Releasing while not recording does nothing.
func (v *VoiceService) Release() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed || v.state != entities.VoiceRecording {
		return nil
	}

	v.setStateLocked(entities.VoiceSettling)
	if err := v.capture.Stop(); err != nil {
		v.logger.Warn("Failed to stop speech capture", zap.Error(err))
	}

	v.wg.Add(1)
	go v.settle(v.generation)
	return nil
}

func (v *VoiceService) settle(gen uint64) {
	defer v.wg.Done()

	timer := time.NewTimer(v.settleDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-v.ctx.Done():
		return
	}

	v.mu.Lock()
	if v.closed || gen != v.generation || v.state != entities.VoiceSettling {
		v.mu.Unlock()
		return
	}
	text := strings.TrimSpace(v.transcript.Read())
	v.setStateLocked(entities.VoiceIdle)
	v.mu.Unlock()

	if text == "" {
		v.logger.Info("Nothing recognized, skipping submission")
		return
	}

	if _, err := v.submitter.Submit(v.ctx, text); err != nil {
		v.logger.Warn("Voice submission rejected", zap.Error(err))
		if errors.Is(err, domain.ErrTurnInFlight) {
			v.mu.Lock()
			if !v.closed {
				v.observer.OnAlert(entities.Alert{Title: entities.AlertTitleVoice, Message: "Please wait for the current reply to finish."})
			}
			v.mu.Unlock()
		}
	}
}

func (v *VoiceService) setStateLocked(state entities.VoiceState) {
	if v.state == state {
		return
	}
	v.state = state
	v.observer.OnVoiceState(state)
}

// Feed forwards device audio to the capture engine.
func (v *VoiceService) Feed(chunk []byte) error {
	return v.capture.Feed(chunk)
}

func (v *VoiceService) State() entities.VoiceState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Transcript returns the current transcript snapshot.
func (v *VoiceService) Transcript() entities.TranscriptState {
	return v.transcript.State()
}

// Recording reports the capture engine's recording indicator.
func (v *VoiceService) Recording() bool {
	return v.capture.Recording()
}

// Close stops capture and waits for background work to finish.
func (v *VoiceService) Close() error {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return nil
	}
	v.closed = true
	v.mu.Unlock()

	v.cancel()
	err := v.capture.Stop()
	v.wg.Wait()
	return err
}

func voiceErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrCaptureUnavailable):
		return "Speech recognition is not available on this device."
	case errors.Is(err, domain.ErrAlreadyRecording):
		return "Already recording."
	default:
		return err.Error()
	}
}
