package repositories

import "context"

// ChatCompleter abstracts the remote chat completion provider.
type ChatCompleter interface {
	// Complete sends the prior exchanges plus the utterance and returns the
	// model's reply. Failures are *domain.CompletionError.
	Complete(ctx context.Context, history []ChatMessage, utterance string) (string, error)
}

// ChatMessage represents a single message in a conversation
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Role defines the type of message sender
type Role string

const (
	UserRole      Role = "user"
	AssistantRole Role = "assistant"
	SystemRole    Role = "system"
)
