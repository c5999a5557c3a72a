package repositories

import (
	"context"

	"github.com/hkguide/server/domain/entities"
)

// AudioSink is the device side of playback. Implementations deliver the
// encoded audio and control commands to whatever actually produces sound.
type AudioSink interface {
	Load(ctx context.Context, handleID, uri string) error
	Play(ctx context.Context, handleID string) error
	Stop(ctx context.Context, handleID string) error
}

// StatusReporter receives playback status reported by the device.
type StatusReporter interface {
	Report(handleID string, status entities.PlaybackStatus, reason string)
}

// AudioPlayer plays synthesized audio. At most one handle is live; Play
// releases the previous one.
type AudioPlayer interface {
	Play(ctx context.Context, audio []byte) (*entities.PlaybackHandle, error)
	Release(ctx context.Context)
}
