package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/hkguide/server/domain"
	"github.com/hkguide/server/domain/repositories"
)

const (
	defaultGeminiModel       = "gemini-2.0-flash"
	defaultGeminiTemperature = 0.7
	defaultGeminiMaxTokens   = 1024
)

// GeminiConfig holds configuration for the Gemini client
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int
	HistoryWindow   int
	// BaseURL overrides the Gemini API endpoint.
	BaseURL string
	Timeout time.Duration
}

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("Google AI API key is required")
	}

	if config.Temperature != 0 && (config.Temperature < 0 || config.Temperature > 1) {
		return fmt.Errorf("temperature must be between 0 and 1, got %f", config.Temperature)
	}

	if config.MaxOutputTokens < 0 {
		return fmt.Errorf("maxOutputTokens must be positive, got %d", config.MaxOutputTokens)
	}

	if config.HistoryWindow < 0 {
		return fmt.Errorf("history window must not be negative, got %d", config.HistoryWindow)
	}

	return nil
}

// GeminiClient implements ChatCompleter using Google's Gemini API
type GeminiClient struct {
	client          *genai.Client
	logger          *zap.Logger
	model           string
	temperature     float32
	maxOutputTokens int
	window          int
	timeout         time.Duration
}

// NewGeminiClient creates a new Gemini client instance
func NewGeminiClient(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiClient, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := config.Model
	if model == "" {
		model = defaultGeminiModel
		logger.Info("Using default model", zap.String("model", model))
	}

	temperature := config.Temperature
	if temperature == 0 {
		temperature = float32(defaultGeminiTemperature)
		logger.Info("Using default temperature", zap.Float32("temperature", temperature))
	}

	maxOutputTokens := config.MaxOutputTokens
	if maxOutputTokens == 0 {
		maxOutputTokens = defaultGeminiMaxTokens
		logger.Info("Using default maxOutputTokens", zap.Int("maxOutputTokens", maxOutputTokens))
	}

	return &GeminiClient{
		client:          client,
		logger:          logger,
		model:           model,
		temperature:     temperature,
		maxOutputTokens: maxOutputTokens,
		window:          config.HistoryWindow,
		timeout:         config.Timeout,
	}, nil
}

// NewGeminiConfigFromEnv creates a configuration from environment variables
func NewGeminiConfigFromEnv() GeminiConfig {
	config := GeminiConfig{
		APIKey:        os.Getenv("GEMINI_API_KEY"),
		Model:         os.Getenv("GEMINI_MODEL"),
		HistoryWindow: defaultHistoryWindow,
	}
	if v := os.Getenv("CHAT_HISTORY_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.HistoryWindow = n
		}
	}
	return config
}

// Complete implements repositories.ChatCompleter
func (g *GeminiClient) Complete(ctx context.Context, history []repositories.ChatMessage, utterance string) (string, error) {
	messages := BuildMessages(history, utterance, g.window)

	// The instruction travels as SystemInstruction; the rest become contents.
	var contents []*genai.Content
	for _, m := range messages[1:] {
		contents = append(contents, genai.NewContentFromText(m.Content, geminiRole(m.Role)))
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(messages[0].Content, genai.RoleUser),
		Temperature:       genai.Ptr(g.temperature),
		MaxOutputTokens:   int32(g.maxOutputTokens),
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	response, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		g.logger.Error("Failed to generate content", zap.String("model", g.model), zap.Error(err))
		return "", geminiCompletionError(err)
	}

	if len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return "", &domain.CompletionError{Reason: "no candidates generated"}
	}

	var reply strings.Builder
	for _, part := range response.Candidates[0].Content.Parts {
		if part.Text != "" {
			reply.WriteString(part.Text)
		}
	}

	text := strings.TrimSpace(reply.String())
	if text == "" {
		return "", &domain.CompletionError{Reason: "empty response"}
	}

	g.logger.Info("Gemini completion received",
		zap.String("model", g.model),
		zap.Int("contents", len(contents)),
		zap.String("response_preview", text[:min(50, len(text))]))

	return text, nil
}

func geminiRole(r repositories.Role) genai.Role {
	if r == repositories.AssistantRole {
		return genai.RoleModel
	}
	return genai.RoleUser
}

func geminiCompletionError(err error) *domain.CompletionError {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &domain.CompletionError{StatusCode: apiErr.Code, Reason: apiErr.Message, Err: err}
	}
	return &domain.CompletionError{Reason: "request failed", Err: err}
}
