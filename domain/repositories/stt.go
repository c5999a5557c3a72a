package repositories

import "context"

// CaptureEventKind distinguishes capture events.
type CaptureEventKind string

const (
	CapturePartial CaptureEventKind = "partial"
	CaptureFinal   CaptureEventKind = "final"
	CaptureEnded   CaptureEventKind = "ended"
	CaptureError   CaptureEventKind = "error"
)

// CaptureEvent is emitted by a speech capture session. A session yields any
// number of partial events followed by at most one terminal event.
type CaptureEvent struct {
	Kind   CaptureEventKind
	Text   string
	Reason string
}

// Terminal reports whether the event ends the capture session.
func (e CaptureEvent) Terminal() bool {
	return e.Kind != CapturePartial
}

// SpeechCapture abstracts the platform speech recognizer.
type SpeechCapture interface {
	// Start begins recognition for locale. The returned channel is closed
	// after the terminal event or after Stop.
	Start(ctx context.Context, locale string) (<-chan CaptureEvent, error)
	// Stop requests termination. Calling Stop without Start is a no-op.
	Stop() error
	// Feed pushes device audio into the active session.
	Feed(chunk []byte) error
	// Recording reports whether the recording indicator is on.
	Recording() bool
}
