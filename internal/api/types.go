package api

import (
	"time"

	"github.com/hkguide/server/domain/entities"
	"github.com/hkguide/server/domain/repositories"
)

// LoginRequest represents the request payload for session login
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse represents the response payload for session login
type LoginResponse struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	User      *entities.User `json:"user"`
}

// VoicesResponse lists the synthesis voices a client may select
type VoicesResponse struct {
	Voices []repositories.Voice `json:"voices"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
