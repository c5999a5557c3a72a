package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hkguide/server/internal/api"
)

var httpClient = &http.Client{Timeout: 15 * time.Second}

// gatewayLogin exchanges backend credentials for a gateway session token.
func gatewayLogin(ctx context.Context, email, password string) (*api.LoginResponse, error) {
	body, err := json.Marshal(api.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	var resp api.LoginResponse
	if err := gatewayDo(ctx, http.MethodPost, "/api/v1/session/login", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func gatewayVoices(ctx context.Context) (*api.VoicesResponse, error) {
	var resp api.VoicesResponse
	if err := gatewayDo(ctx, http.MethodGet, "/api/v1/voices", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func gatewayDo(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(gatewayURL, "/")+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 300 {
		var apiErr api.ErrorResponse
		if err := json.NewDecoder(res.Body).Decode(&apiErr); err == nil && apiErr.Message != "" {
			return fmt.Errorf("gateway returned %d: %s", res.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("gateway returned %d", res.StatusCode)
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// websocketURL turns the gateway base URL into the chat endpoint.
func websocketURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid gateway URL %q: %w", base, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported gateway scheme %q", u.Scheme)
	}
	u.Path += "/ws"
	return u.String(), nil
}
