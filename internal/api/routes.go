package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/hkguide/server/adapters/tts"
	"github.com/hkguide/server/domain"
	"github.com/hkguide/server/domain/entities"
	"github.com/hkguide/server/domain/repositories"
	"github.com/hkguide/server/internal/auth"
	"github.com/hkguide/server/internal/websocket"
)

// Authenticator checks travel backend credentials.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*entities.User, error)
}

// Handlers holds what the HTTP routes need.
type Handlers struct {
	Hub         *websocket.Hub
	Issuer      *auth.Issuer
	Accounts    Authenticator
	Synthesizer repositories.SpeechSynthesizer
	Logger      *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, h *Handlers) {
	// Health check
	e.GET("/health", h.health)

	// API v1 routes
	v1 := e.Group("/api/v1")
	v1.GET("/voices", h.listVoices)
	v1.POST("/session/login", h.login)

	// WebSocket endpoint with JWT validation
	e.GET("/ws", h.websocketWithAuth)
}

func (h *Handlers) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"service":  "hkguide-server",
		"sessions": h.Hub.ClientCount(),
	})
}

// listVoices returns the provider's voices, or the built-in names when the
// provider cannot be reached.
func (h *Handlers) listVoices(c echo.Context) error {
	voices, err := h.Synthesizer.ListVoices(c.Request().Context())
	if err != nil {
		h.Logger.Warn("Failed to list provider voices, using built-in voices", zap.Error(err))
		voices = tts.BuiltinVoices()
	}
	return c.JSON(http.StatusOK, VoicesResponse{Voices: voices})
}

func (h *Handlers) login(c echo.Context) error {
	var req LoginRequest

	// Bind and validate request
	if err := c.Bind(&req); err != nil {
		h.Logger.Error("Failed to bind login request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_fields",
			Message: "Email and password are required",
		})
	}

	if h.Accounts == nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "backend_unavailable",
			Message: "Travel backend is not configured",
		})
	}

	user, err := h.Accounts.Login(c.Request().Context(), req.Email, req.Password)
	if errors.Is(err, domain.ErrInvalidCredentials) {
		h.Logger.Warn("Login rejected", zap.String("email", req.Email))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "authentication_failed",
			Message: "Invalid email or password",
		})
	}
	if err != nil {
		h.Logger.Error("Login failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "backend_error",
			Message: "Travel backend request failed",
		})
	}

	token, expiresAt, err := h.Issuer.GenerateUserToken(user.ID, user.Email)
	if err != nil {
		h.Logger.Error("Failed to generate session token", zap.String("userID", user.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "token_generation_failed",
			Message: "Failed to generate authentication token",
		})
	}

	h.Logger.Info("User authenticated", zap.String("userID", user.ID))

	return c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user,
	})
}

// websocketWithAuth handles WebSocket connections with JWT authentication
func (h *Handlers) websocketWithAuth(c echo.Context) error {
	// Extract JWT token from Authorization header only
	token := bearerToken(c.Request().Header.Get("Authorization"))
	if token == "" {
		h.Logger.Warn("WebSocket connection rejected: missing token")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "JWT token is required in Authorization header",
		})
	}

	claims, err := h.Issuer.ValidateToken(token)
	if err != nil {
		h.Logger.Warn("WebSocket connection rejected: invalid token", zap.Error(err))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired JWT token",
		})
	}

	h.Logger.Info("WebSocket connection authenticated", zap.String("userID", claims.UserID))

	return websocket.HandleWebSocketWithAuth(h.Hub, c, claims.UserID, h.Logger)
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}
