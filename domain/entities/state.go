package entities

// PipelineState is the stage of the chat turn currently in flight.
type PipelineState string

const (
	PipelineIdle               PipelineState = "idle"
	PipelineAwaitingCompletion PipelineState = "awaiting_completion"
	PipelineAwaitingSynthesis  PipelineState = "awaiting_synthesis"
	PipelinePlaying            PipelineState = "playing"
)

// Busy reports whether a turn is in flight.
func (s PipelineState) Busy() bool {
	return s != PipelineIdle && s != ""
}

// VoiceState is the press-and-hold recording state.
type VoiceState string

const (
	VoiceIdle      VoiceState = "idle"
	VoiceRecording VoiceState = "recording"
	VoiceSettling  VoiceState = "settling"
)

// PlaybackStatus is the lifecycle of an audio playback handle.
type PlaybackStatus string

const (
	PlaybackLoaded   PlaybackStatus = "loaded"
	PlaybackPlaying  PlaybackStatus = "playing"
	PlaybackFinished PlaybackStatus = "finished"
	PlaybackError    PlaybackStatus = "error"
	PlaybackReleased PlaybackStatus = "released"
)

// Terminal reports whether no further transitions are possible.
func (s PlaybackStatus) Terminal() bool {
	switch s {
	case PlaybackFinished, PlaybackError, PlaybackReleased:
		return true
	}
	return false
}

// Alert is a user-facing notification raised by the pipeline.
type Alert struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

const (
	AlertTitleAudio = "Audio Error"
	AlertTitleVoice = "Voice Error"
)
