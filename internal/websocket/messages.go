package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hkguide/server/domain/entities"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Inbound message types
const (
	MessageTypeTextSubmit     MessageType = "text_submit"
	MessageTypeRecordStart    MessageType = "record_start"
	MessageTypeRecordStop     MessageType = "record_stop"
	MessageTypePlaybackStatus MessageType = "playback_status"
	MessageTypeSetVoice       MessageType = "set_voice"
	MessageTypePing           MessageType = "ping"
)

// Outbound message types
const (
	MessageTypeConversation MessageType = "conversation"
	MessageTypeState        MessageType = "state"
	MessageTypeTranscript   MessageType = "transcript"
	MessageTypeAlert        MessageType = "alert"
	MessageTypeAudioLoad    MessageType = "audio_load"
	MessageTypeAudioPlay    MessageType = "audio_play"
	MessageTypeAudioStop    MessageType = "audio_stop"
	MessageTypePong         MessageType = "pong"
	MessageTypeError        MessageType = "error"
)

// Error codes sent in error messages
const (
	ErrorCodeInvalidMessage   = "invalid_message"
	ErrorCodeEmptySubmission  = "empty_submission"
	ErrorCodeTurnInFlight     = "turn_in_flight"
	ErrorCodeAlreadyRecording = "already_recording"
	ErrorCodeSessionClosed    = "session_closed"
	ErrorCodeInternal         = "internal_error"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp,omitempty"`
	MessageID string      `json:"message_id,omitempty"`
}

// TextSubmitMessage submits typed text as a chat turn
type TextSubmitMessage struct {
	BaseMessage
	Text string `json:"text"`
}

// RecordStartMessage is sent when the record button is pressed
type RecordStartMessage struct {
	BaseMessage
	Locale string `json:"locale,omitempty"`
}

// RecordStopMessage is sent when the record button is released
type RecordStopMessage struct {
	BaseMessage
}

// PlaybackStatusMessage reports the device's playback state for a handle
type PlaybackStatusMessage struct {
	BaseMessage
	HandleID string                  `json:"handle_id"`
	Status   entities.PlaybackStatus `json:"status"`
	Error    string                  `json:"error,omitempty"`
}

// SetVoiceMessage picks the synthesis voice by name or id
type SetVoiceMessage struct {
	BaseMessage
	Voice string `json:"voice"`
}

// PingMessage represents a ping message for connection health check
type PingMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// PongMessage represents a pong response
type PongMessage struct {
	BaseMessage
	Data string `json:"data,omitempty"`
}

// ConversationMessage carries the whole conversation log
type ConversationMessage struct {
	BaseMessage
	Turns []entities.ConversationTurn `json:"turns"`
}

// StateMessage carries the pipeline and voice states
type StateMessage struct {
	BaseMessage
	Pipeline entities.PipelineState `json:"pipeline"`
	Voice    entities.VoiceState    `json:"voice"`
}

// TranscriptMessage carries the live transcript
type TranscriptMessage struct {
	BaseMessage
	entities.TranscriptState
}

// AlertMessage carries a user-facing alert
type AlertMessage struct {
	BaseMessage
	entities.Alert
}

// AudioLoadMessage asks the device to load audio under a handle
type AudioLoadMessage struct {
	BaseMessage
	HandleID string `json:"handle_id"`
	URI      string `json:"uri"`
}

// AudioControlMessage asks the device to play or stop a handle
type AudioControlMessage struct {
	BaseMessage
	HandleID string `json:"handle_id"`
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// MessageValidator provides validation for WebSocket messages
type MessageValidator struct{}

// NewMessageValidator creates a new message validator
func NewMessageValidator() *MessageValidator {
	return &MessageValidator{}
}

// ValidateMessage parses an inbound message and checks its fields
func (v *MessageValidator) ValidateMessage(messageBytes []byte) (interface{}, error) {
	var base BaseMessage
	if err := json.Unmarshal(messageBytes, &base); err != nil {
		return nil, fmt.Errorf("invalid JSON format: %w", err)
	}

	switch base.Type {
	case MessageTypeTextSubmit:
		var msg TextSubmitMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid text submit message: %w", err)
		}
		return &msg, nil

	case MessageTypeRecordStart:
		var msg RecordStartMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid record start message: %w", err)
		}
		if len(msg.Locale) > 35 {
			return nil, fmt.Errorf("locale is too long")
		}
		return &msg, nil

	case MessageTypeRecordStop:
		return &RecordStopMessage{BaseMessage: base}, nil

	case MessageTypePlaybackStatus:
		var msg PlaybackStatusMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid playback status message: %w", err)
		}
		if err := v.validatePlaybackStatus(&msg); err != nil {
			return nil, err
		}
		return &msg, nil

	case MessageTypeSetVoice:
		var msg SetVoiceMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid set voice message: %w", err)
		}
		if msg.Voice == "" {
			return nil, fmt.Errorf("voice is required")
		}
		return &msg, nil

	case MessageTypePing:
		var msg PingMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			return nil, fmt.Errorf("invalid ping message: %w", err)
		}
		return &msg, nil

	case "":
		return nil, fmt.Errorf("message type is required")

	default:
		return nil, fmt.Errorf("unsupported message type: %s", base.Type)
	}
}

// validatePlaybackStatus validates playback status message fields
func (v *MessageValidator) validatePlaybackStatus(msg *PlaybackStatusMessage) error {
	if msg.HandleID == "" {
		return fmt.Errorf("handle_id is required")
	}

	switch msg.Status {
	case entities.PlaybackPlaying, entities.PlaybackFinished, entities.PlaybackError:
		return nil
	case "":
		return fmt.Errorf("status is required")
	default:
		return fmt.Errorf("status must be one of: playing, finished, error")
	}
}

func newBase(t MessageType) BaseMessage {
	return BaseMessage{Type: t, Timestamp: time.Now().Format(time.RFC3339)}
}

// CreateErrorMessage creates a standardized error message
func CreateErrorMessage(code, message, details string) *ErrorMessage {
	return &ErrorMessage{
		BaseMessage: newBase(MessageTypeError),
		Code:        code,
		Message:     message,
		Details:     details,
	}
}

// CreatePongMessage creates a pong response message
func CreatePongMessage(data string) *PongMessage {
	return &PongMessage{
		BaseMessage: newBase(MessageTypePong),
		Data:        data,
	}
}
