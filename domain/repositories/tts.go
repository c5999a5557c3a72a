package repositories

import "context"

// SpeechSynthesizer turns reply text into audio.
type SpeechSynthesizer interface {
	// Synthesize returns the encoded audio for text spoken by voice. Failures
	// are *domain.SynthesisError.
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
	ListVoices(ctx context.Context) ([]Voice, error)
}

// Voice is a selectable synthesis voice.
type Voice struct {
	ID   string `json:"voice_id"`
	Name string `json:"name"`
}
