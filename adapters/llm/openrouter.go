package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hkguide/server/domain"
	"github.com/hkguide/server/domain/repositories"
)

const (
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel   = "mistralai/mistral-7b-instruct"
	defaultOpenRouterReferer = "http://localhost"
	defaultHistoryWindow     = 10
)

// OpenRouterConfig holds configuration for the OpenRouter client
type OpenRouterConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	Referer       string
	HistoryWindow int
	// Timeout of zero leaves the transport defaults in place.
	Timeout time.Duration
}

// ValidateOpenRouterConfig validates the OpenRouterConfig
func ValidateOpenRouterConfig(config OpenRouterConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("OpenRouter API key is required")
	}
	if config.HistoryWindow < 0 {
		return fmt.Errorf("history window must not be negative, got %d", config.HistoryWindow)
	}
	if config.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", config.Timeout)
	}
	return nil
}

// OpenRouterClient implements ChatCompleter against an OpenAI-compatible
// chat completions endpoint.
type OpenRouterClient struct {
	client *openai.Client
	logger *zap.Logger
	model  string
	window int
}

// NewOpenRouterClient creates a new OpenRouter client with the given configuration
func NewOpenRouterClient(config OpenRouterConfig, logger *zap.Logger) (*OpenRouterClient, error) {
	if err := ValidateOpenRouterConfig(config); err != nil {
		return nil, err
	}

	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
		logger.Info("Using default OpenRouter base URL", zap.String("baseURL", baseURL))
	}

	model := config.Model
	if model == "" {
		model = defaultOpenRouterModel
		logger.Info("Using default model", zap.String("model", model))
	}

	referer := config.Referer
	if referer == "" {
		referer = defaultOpenRouterReferer
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.BaseURL = strings.TrimRight(baseURL, "/")
	clientConfig.HTTPClient = &http.Client{
		Timeout: config.Timeout,
		Transport: &headerTransport{
			base:    http.DefaultTransport,
			headers: map[string]string{"HTTP-Referer": referer},
		},
	}

	return &OpenRouterClient{
		client: openai.NewClientWithConfig(clientConfig),
		logger: logger,
		model:  model,
		window: config.HistoryWindow,
	}, nil
}

// NewOpenRouterConfigFromEnv creates a configuration from environment variables
func NewOpenRouterConfigFromEnv() OpenRouterConfig {
	config := OpenRouterConfig{
		APIKey:        os.Getenv("OPENROUTER_API_KEY"),
		BaseURL:       os.Getenv("OPENROUTER_BASE_URL"),
		Model:         os.Getenv("OPENROUTER_MODEL"),
		Referer:       os.Getenv("OPENROUTER_REFERER"),
		HistoryWindow: defaultHistoryWindow,
	}
	if v := os.Getenv("CHAT_HISTORY_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.HistoryWindow = n
		}
	}
	return config
}

// Complete implements repositories.ChatCompleter. There is no retry; the
// caller turns the failure into an apology.
func (c *OpenRouterClient) Complete(ctx context.Context, history []repositories.ChatMessage, utterance string) (string, error) {
	messages := BuildMessages(history, utterance, c.window)

	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    openAIRole(m.Role),
			Content: m.Content,
		})
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		c.logger.Error("Chat completion request failed", zap.String("model", c.model), zap.Error(err))
		return "", toCompletionError(err)
	}

	if len(resp.Choices) == 0 {
		return "", &domain.CompletionError{Reason: "response has no choices"}
	}
	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", &domain.CompletionError{Reason: "response has no reply content"}
	}

	c.logger.Info("Chat completion received",
		zap.String("model", c.model),
		zap.Int("messages", len(req.Messages)),
		zap.Duration("latency", time.Since(start)))

	return reply, nil
}

func openAIRole(r repositories.Role) string {
	switch r {
	case repositories.SystemRole:
		return openai.ChatMessageRoleSystem
	case repositories.AssistantRole:
		return openai.ChatMessageRoleAssistant
	default:
		return openai.ChatMessageRoleUser
	}
}

func toCompletionError(err error) *domain.CompletionError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &domain.CompletionError{StatusCode: apiErr.HTTPStatusCode, Reason: apiErr.Message, Err: err}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &domain.CompletionError{StatusCode: reqErr.HTTPStatusCode, Err: err}
	}
	return &domain.CompletionError{Reason: "request failed", Err: err}
}

type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}
