package playback

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hkguide/server/domain"
	"github.com/hkguide/server/domain/entities"
	"github.com/hkguide/server/domain/repositories"
)

// Player plays synthesized audio on a device sink. At most one handle is live
// at a time.
type Player struct {
	sink   repositories.AudioSink
	logger *zap.Logger

	mu      sync.Mutex
	current *entities.PlaybackHandle
}

var (
	_ repositories.StatusReporter = (*Player)(nil)
	_ repositories.AudioPlayer    = (*Player)(nil)
)

func NewPlayer(sink repositories.AudioSink, logger *zap.Logger) *Player {
	return &Player{sink: sink, logger: logger}
}

// Play loads audio and starts playback, releasing any previous handle first.
func (p *Player) Play(ctx context.Context, audio []byte) (*entities.PlaybackHandle, error) {
	if len(audio) == 0 {
		return nil, &domain.PlaybackError{Reason: "empty audio buffer"}
	}

	uri := EncodeDataURI(audio)
	decoded, err := DecodeDataURI(uri)
	if err != nil {
		return nil, &domain.PlaybackError{Reason: "malformed audio buffer", Err: err}
	}
	if len(decoded) != len(audio) {
		return nil, &domain.PlaybackError{Reason: "audio buffer did not round-trip"}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.releaseLocked(ctx)

	h := entities.NewPlaybackHandle(uuid.NewString())
	if err := p.sink.Load(ctx, h.ID, uri); err != nil {
		h.Transition(entities.PlaybackError, err.Error())
		p.logger.Error("Failed to load audio", zap.String("handleID", h.ID), zap.Error(err))
		return nil, &domain.PlaybackError{Reason: "load failed", Err: err}
	}
	p.current = h

	if err := p.sink.Play(ctx, h.ID); err != nil {
		h.Transition(entities.PlaybackError, err.Error())
		p.current = nil
		p.logger.Error("Failed to start playback", zap.String("handleID", h.ID), zap.Error(err))
		return nil, &domain.PlaybackError{Reason: "play failed", Err: err}
	}
	h.Transition(entities.PlaybackPlaying, "")

	p.logger.Info("Audio playback started", zap.String("handleID", h.ID), zap.Int("bytes", len(audio)))
	return h, nil
}

// Report applies a status sent by the device. Reports for anything but the
// live handle are ignored. A finished or failed handle is released.
func (p *Player) Report(handleID string, status entities.PlaybackStatus, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	h := p.current
	if h == nil || h.ID != handleID {
		p.logger.Debug("Ignoring status for stale handle", zap.String("handleID", handleID), zap.String("status", string(status)))
		return
	}

	// Play already marks the handle playing, so the device's own report
	// repeats it.
	if h.Status() == status {
		p.logger.Debug("Playback status unchanged", zap.String("handleID", handleID), zap.String("status", string(status)))
		return
	}
	if !h.Transition(status, reason) {
		p.logger.Warn("Ignoring invalid playback transition",
			zap.String("handleID", handleID),
			zap.String("from", string(h.Status())),
			zap.String("to", string(status)))
		return
	}
	if status.Terminal() {
		p.current = nil
	}
	if status == entities.PlaybackError {
		p.logger.Warn("Device reported playback error", zap.String("handleID", handleID), zap.String("reason", reason))
	}
}

// Release stops and releases the live handle, if any.
func (p *Player) Release(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.releaseLocked(ctx)
}

func (p *Player) releaseLocked(ctx context.Context) {
	h := p.current
	if h == nil {
		return
	}
	p.current = nil
	if h.Transition(entities.PlaybackReleased, "") {
		if err := p.sink.Stop(ctx, h.ID); err != nil {
			p.logger.Warn("Failed to stop audio", zap.String("handleID", h.ID), zap.Error(err))
		}
	}
}

// Current returns the live handle, or nil.
func (p *Player) Current() *entities.PlaybackHandle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}
