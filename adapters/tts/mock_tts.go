package tts

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hkguide/server/domain"
	"github.com/hkguide/server/domain/repositories"
)

// MockTTS returns a fixed audio payload. It keeps the gateway usable without
// Eleven Labs credentials.
type MockTTS struct {
	logger *zap.Logger
}

var _ repositories.SpeechSynthesizer = (*MockTTS)(nil)

func NewMockTTS(logger *zap.Logger) *MockTTS {
	return &MockTTS{logger: logger}
}

// Synthesize implements repositories.SpeechSynthesizer
func (m *MockTTS) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &domain.SynthesisError{Reason: "text cannot be empty"}
	}
	if err := ctx.Err(); err != nil {
		return nil, &domain.SynthesisError{Err: err}
	}

	text = TruncateText(text)
	m.logger.Debug("Mock synthesis", zap.String("voiceID", ResolveVoiceID(voice)), zap.Int("textLength", len(text)))

	// An MPEG frame header followed by the text keeps the payload non-empty
	// and recognisable in logs.
	return append([]byte{0xFF, 0xFB, 0x90, 0x64}, []byte(fmt.Sprintf("mock:%s", text))...), nil
}

// ListVoices implements repositories.SpeechSynthesizer
func (m *MockTTS) ListVoices(ctx context.Context) ([]repositories.Voice, error) {
	return BuiltinVoices(), nil
}
