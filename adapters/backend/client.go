package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hkguide/server/domain"
	"github.com/hkguide/server/domain/entities"
	"github.com/hkguide/server/domain/repositories"
)

const (
	defaultBaseURL = "http://localhost:8080"
	defaultTimeout = 10 * time.Second
)

// ErrInvalidCredentials is returned when login is rejected.
var ErrInvalidCredentials = domain.ErrInvalidCredentials

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Body)
}

// Config holds configuration for the travel backend client
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// NewConfigFromEnv reads BACKEND_BASE_URL.
func NewConfigFromEnv() Config {
	return Config{BaseURL: os.Getenv("BACKEND_BASE_URL")}
}

// Client is the REST client for the travel backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ repositories.TravelBackend = (*Client)(nil)

func NewClient(config Config, logger *zap.Logger) (*Client, error) {
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
		logger.Info("Using default backend base URL", zap.String("baseURL", baseURL))
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid backend base URL %q: %w", baseURL, err)
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("Backend returned error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("statusCode", resp.StatusCode))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(errorBody))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Login exchanges credentials for the user record.
func (c *Client) Login(ctx context.Context, email, password string) (*entities.User, error) {
	var user entities.User
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &user)

	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	user.Password = ""
	return &user, nil
}

// Signup registers a new account.
func (c *Client) Signup(ctx context.Context, user entities.User) (*entities.User, error) {
	var created entities.User
	err := c.do(ctx, http.MethodPost, "/api/auth/signup", user, &created)

	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusConflict {
		return nil, domain.ErrEmailInUse
	}
	if err != nil {
		return nil, err
	}
	created.Password = ""
	return &created, nil
}

func (c *Client) CreateExpense(ctx context.Context, e entities.Expense) (*entities.Expense, error) {
	var created entities.Expense
	if err := c.do(ctx, http.MethodPost, "/api/expenses/create", e, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) ListExpenses(ctx context.Context, userID string) ([]entities.Expense, error) {
	var out []entities.Expense
	if err := c.do(ctx, http.MethodGet, "/api/expenses/user/"+url.PathEscape(userID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListExpensesByDate lists expenses for one day; date is YYYY-MM-DD.
func (c *Client) ListExpensesByDate(ctx context.Context, userID, date string) ([]entities.Expense, error) {
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", date, err)
	}
	var out []entities.Expense
	path := fmt.Sprintf("/api/expenses/user/%s/date/%s", url.PathEscape(userID), date)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteExpense(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/expenses/"+url.PathEscape(id), nil, nil)
}

func (c *Client) CreateItineraryItem(ctx context.Context, item entities.ItineraryItem) (*entities.ItineraryItem, error) {
	var created entities.ItineraryItem
	if err := c.do(ctx, http.MethodPost, "/api/itineraries/create", item, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) ListItinerary(ctx context.Context, userID string) ([]entities.ItineraryItem, error) {
	var out []entities.ItineraryItem
	if err := c.do(ctx, http.MethodGet, "/api/itineraries/user/"+url.PathEscape(userID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteItineraryItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/itineraries/"+url.PathEscape(id), nil, nil)
}

func (c *Client) SaveDestination(ctx context.Context, d entities.SavedDestination) (*entities.SavedDestination, error) {
	var saved entities.SavedDestination
	if err := c.do(ctx, http.MethodPost, "/api/savedDestinations/save", d, &saved); err != nil {
		return nil, err
	}
	return &saved, nil
}

func (c *Client) ListSavedDestinations(ctx context.Context, userID string) ([]entities.SavedDestination, error) {
	var out []entities.SavedDestination
	if err := c.do(ctx, http.MethodGet, "/api/savedDestinations/user/"+url.PathEscape(userID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteSavedDestination(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/savedDestinations/"+url.PathEscape(id), nil, nil)
}
