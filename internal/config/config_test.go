package config

import (
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "LOG_LEVEL", "LLM_PROVIDER", "STT_PROVIDER", "SETTLE_DELAY_MS", "PLAYBACK_TIMEOUT_MS", "JWT_SECRET"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected default log level info, got %q", cfg.LogLevel)
	}
	if cfg.LLMProvider != ProviderOpenRouter {
		t.Errorf("expected default provider %q, got %q", ProviderOpenRouter, cfg.LLMProvider)
	}
	if cfg.STTProvider != ProviderGoogle {
		t.Errorf("expected default stt provider %q, got %q", ProviderGoogle, cfg.STTProvider)
	}
	if cfg.SettleDelay != 0 {
		t.Errorf("expected zero settle delay, got %v", cfg.SettleDelay)
	}
	if cfg.PlaybackTimeout != 0 {
		t.Errorf("expected zero playback timeout, got %v", cfg.PlaybackTimeout)
	}
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LLM_PROVIDER", "Gemini")
	t.Setenv("STT_PROVIDER", "scripted")
	t.Setenv("SETTLE_DELAY_MS", "250")
	t.Setenv("PLAYBACK_TIMEOUT_MS", "5000")
	t.Setenv("GEMINI_API_KEY", "gem-key")
	t.Setenv("OPENROUTER_MODEL", "openai/gpt-4o-mini")
	t.Setenv("ELEVEN_LABS_VOICE", "Josh")
	t.Setenv("BACKEND_BASE_URL", "http://backend.local")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %q", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level debug, got %q", cfg.LogLevel)
	}
	if cfg.LLMProvider != ProviderGemini || cfg.STTProvider != ProviderScripted {
		t.Errorf("unexpected providers: %q %q", cfg.LLMProvider, cfg.STTProvider)
	}
	if cfg.SettleDelay != 250*time.Millisecond {
		t.Errorf("expected 250ms settle delay, got %v", cfg.SettleDelay)
	}
	if cfg.PlaybackTimeout != 5*time.Second {
		t.Errorf("expected 5s playback timeout, got %v", cfg.PlaybackTimeout)
	}
	if cfg.Gemini.APIKey != "gem-key" {
		t.Errorf("expected gemini key from env, got %q", cfg.Gemini.APIKey)
	}
	if cfg.OpenRouter.Model != "openai/gpt-4o-mini" {
		t.Errorf("expected openrouter model from env, got %q", cfg.OpenRouter.Model)
	}
	if cfg.ElevenLabs.Voice != "Josh" {
		t.Errorf("expected voice from env, got %q", cfg.ElevenLabs.Voice)
	}
	if cfg.Backend.BaseURL != "http://backend.local" {
		t.Errorf("expected backend url from env, got %q", cfg.Backend.BaseURL)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown llm provider", "LLM_PROVIDER", "claude"},
		{"unknown stt provider", "STT_PROVIDER", "whisper"},
		{"bad settle delay", "SETTLE_DELAY_MS", "soon"},
		{"negative settle delay", "SETTLE_DELAY_MS", "-5"},
		{"zero playback timeout", "PLAYBACK_TIMEOUT_MS", "0"},
		{"bad playback timeout", "PLAYBACK_TIMEOUT_MS", "later"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("LLM_PROVIDER", "")
			t.Setenv("STT_PROVIDER", "")
			t.Setenv("SETTLE_DELAY_MS", "")
			t.Setenv("PLAYBACK_TIMEOUT_MS", "")
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestWarn_MissingProviderKey(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"openrouter", Config{LLMProvider: ProviderOpenRouter}, "OPENROUTER_API_KEY not set, startup will fail"},
		{"gemini", Config{LLMProvider: ProviderGemini}, "GEMINI_API_KEY not set, startup will fail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			tt.cfg.Warn(zap.New(core))

			if logs.FilterMessage(tt.want).Len() != 1 {
				var got []string
				for _, entry := range logs.All() {
					got = append(got, entry.Message)
				}
				t.Errorf("expected warning %q, got %v", tt.want, got)
			}
		})
	}
}
