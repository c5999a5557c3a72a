package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hkguide/server/adapters/backend"
	"github.com/hkguide/server/adapters/llm"
	"github.com/hkguide/server/adapters/stt"
	"github.com/hkguide/server/adapters/tts"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"

	ProviderGoogle   = "google"
	ProviderScripted = "scripted"
)

// Config holds gateway configuration.
type Config struct {
	Port        string
	LogLevel    string
	JWTSecret   string
	LLMProvider string
	STTProvider string
	SettleDelay time.Duration

	// PlaybackTimeout of zero keeps the chat service default.
	PlaybackTimeout time.Duration

	OpenRouter llm.OpenRouterConfig
	Gemini     llm.GeminiConfig
	ElevenLabs tts.ElevenLabsConfig
	Speech     stt.GoogleCaptureConfig
	Backend    backend.Config
}

// Load reads a .env file if present, then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    strings.ToLower(getEnv("LOG_LEVEL", "info")),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		LLMProvider: strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenRouter)),
		STTProvider: strings.ToLower(getEnv("STT_PROVIDER", ProviderGoogle)),
		OpenRouter:  llm.NewOpenRouterConfigFromEnv(),
		Gemini:      llm.NewGeminiConfigFromEnv(),
		ElevenLabs:  tts.NewElevenLabsConfigFromEnv(),
		Speech:      stt.NewGoogleCaptureConfigFromEnv(),
		Backend:     backend.NewConfigFromEnv(),
	}

	switch cfg.LLMProvider {
	case ProviderOpenRouter, ProviderGemini:
	default:
		return Config{}, fmt.Errorf("unsupported LLM_PROVIDER %q", cfg.LLMProvider)
	}
	switch cfg.STTProvider {
	case ProviderGoogle, ProviderScripted:
	default:
		return Config{}, fmt.Errorf("unsupported STT_PROVIDER %q", cfg.STTProvider)
	}

	if v := os.Getenv("SETTLE_DELAY_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms < 0 {
			return Config{}, fmt.Errorf("invalid SETTLE_DELAY_MS %q", v)
		}
		cfg.SettleDelay = time.Duration(ms) * time.Millisecond
	}
	if v := os.Getenv("PLAYBACK_TIMEOUT_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return Config{}, fmt.Errorf("invalid PLAYBACK_TIMEOUT_MS %q", v)
		}
		cfg.PlaybackTimeout = time.Duration(ms) * time.Millisecond
	}

	return cfg, nil
}

// Warn logs settings that leave a feature disabled.
func (c Config) Warn(logger *zap.Logger) {
	if c.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, using an insecure development secret")
	}
	switch c.LLMProvider {
	case ProviderOpenRouter:
		if c.OpenRouter.APIKey == "" {
			logger.Warn("OPENROUTER_API_KEY not set, startup will fail")
		}
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			logger.Warn("GEMINI_API_KEY not set, startup will fail")
		}
	}
	if c.ElevenLabs.APIKey == "" {
		logger.Warn("ELEVEN_LABS_API_KEY not set, using mock speech synthesis")
	}
	if c.Backend.BaseURL == "" {
		logger.Warn("BACKEND_BASE_URL not set, session login is disabled")
	}
}

// NewLogger builds the process logger for the configured level.
func (c Config) NewLogger() (*zap.Logger, error) {
	if c.LogLevel == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
