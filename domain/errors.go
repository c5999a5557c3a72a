package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the chat turn pipeline.
var (
	// ErrCaptureUnavailable is returned when no speech engine is available or
	// the recording permission was denied.
	ErrCaptureUnavailable = errors.New("speech capture unavailable")
	// ErrAlreadyRecording is returned when capture is started twice.
	ErrAlreadyRecording = errors.New("already recording")
	// ErrEmptySubmission is returned when the submitted text is blank.
	ErrEmptySubmission = errors.New("empty submission")
	// ErrTurnInFlight is returned when a submission arrives while a turn is
	// still being processed.
	ErrTurnInFlight = errors.New("a chat turn is already in flight")
	// ErrSessionClosed is returned once the chat session has been torn down.
	ErrSessionClosed = errors.New("chat session closed")
	// ErrEmailInUse is returned by the travel backend on a signup conflict.
	ErrEmailInUse = errors.New("email already in use")
	// ErrInvalidCredentials is returned by the travel backend when login is
	// rejected.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// CompletionError is returned by chat completion clients on network failure,
// non-2xx responses or a malformed response body.
type CompletionError struct {
	StatusCode int
	Reason     string
	Err        error
}

func (e *CompletionError) Error() string {
	msg := "completion failed"
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.StatusCode)
	}
	if e.Reason != "" {
		msg = msg + ": " + e.Reason
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *CompletionError) Unwrap() error { return e.Err }

// SynthesisError is returned by speech synthesis clients on network failure,
// timeout, non-2xx responses or an empty audio body.
type SynthesisError struct {
	StatusCode int
	Timeout    bool
	Reason     string
	Err        error
}

func (e *SynthesisError) Error() string {
	msg := "speech synthesis failed"
	if e.Timeout {
		msg += ": timeout"
	}
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.StatusCode)
	}
	if e.Reason != "" {
		msg = msg + ": " + e.Reason
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// PlaybackError is returned when an audio buffer cannot be decoded or played.
type PlaybackError struct {
	Reason string
	Err    error
}

func (e *PlaybackError) Error() string {
	msg := "audio playback failed: " + e.Reason
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *PlaybackError) Unwrap() error { return e.Err }
