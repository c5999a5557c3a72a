package entities

import (
	"context"
	"sync"

	"github.com/hkguide/server/domain"
)

// PlaybackHandle is one loaded audio buffer. Its status only moves forward:
// loaded, playing, then one of finished, error or released.
type PlaybackHandle struct {
	ID string

	mu     sync.Mutex
	status PlaybackStatus
	reason string
	done   chan struct{}
}

// NewPlaybackHandle returns a handle in the loaded state.
func NewPlaybackHandle(id string) *PlaybackHandle {
	return &PlaybackHandle{
		ID:     id,
		status: PlaybackLoaded,
		done:   make(chan struct{}),
	}
}

func (h *PlaybackHandle) Status() PlaybackStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.status
}

// Transition applies next if it is a legal move and reports whether it did.
func (h *PlaybackHandle) Transition(next PlaybackStatus, reason string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.status.Terminal() {
		return false
	}
	switch next {
	case PlaybackPlaying:
		if h.status != PlaybackLoaded {
			return false
		}
	case PlaybackFinished:
		if h.status != PlaybackPlaying {
			return false
		}
	case PlaybackError, PlaybackReleased:
	default:
		return false
	}

	h.status = next
	h.reason = reason
	if next.Terminal() {
		close(h.done)
	}
	return true
}

// Wait blocks until the handle reaches a terminal status. An error status is
// returned as a *domain.PlaybackError.
func (h *PlaybackHandle) Wait(ctx context.Context) (PlaybackStatus, error) {
	select {
	case <-h.done:
	case <-ctx.Done():
		return h.Status(), ctx.Err()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.status == PlaybackError {
		return h.status, &domain.PlaybackError{Reason: h.reason}
	}
	return h.status, nil
}
