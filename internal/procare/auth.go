package procare

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const DefaultAuthBaseURL = "https://online-auth.procareconnect.com"

// ErrTokenMissing means the login call succeeded but no auth token could be
// extracted from the response body.
var ErrTokenMissing = errors.New("procare authentication succeeded but no auth token was returned")

// AuthError is a rejected login (bad credentials or otherwise non-2xx).
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("procare authentication failed (%d): %s", e.StatusCode, e.Body)
}

type AuthOptions struct {
	Email    string
	Password string
	// BaseURL overrides DefaultAuthBaseURL, mainly for tests.
	BaseURL    string
	HTTPClient *http.Client
}

type AuthResult struct {
	AuthToken string
	Raw       json.RawMessage
}

// authPayload covers every response shape the auth endpoint has been
// observed to return; the token can sit at any of four depths.
type authPayload struct {
	AuthToken string `json:"auth_token"`
	User      struct {
		AuthToken string `json:"auth_token"`
	} `json:"user"`
	Data struct {
		AuthToken string `json:"auth_token"`
		User      struct {
			AuthToken string `json:"auth_token"`
		} `json:"user"`
	} `json:"data"`
}

func (p authPayload) token() string {
	for _, t := range []string{p.AuthToken, p.User.AuthToken, p.Data.AuthToken, p.Data.User.AuthToken} {
		if t != "" {
			return t
		}
	}
	return ""
}

// Authenticate exchanges credentials for an opaque bearer token.
func Authenticate(ctx context.Context, opts AuthOptions) (*AuthResult, error) {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultAuthBaseURL
	}

	body, err := json.Marshal(map[string]string{
		"email":    opts.Email,
		"password": opts.Password,
		"role":     "carer",
		"platform": "web",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/sessions/", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Referer", "https://schools.procareconnect.com/")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read login response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &AuthError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var payload authPayload
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode login response: %w", err)
	}

	token := payload.token()
	if token == "" {
		return nil, ErrTokenMissing
	}

	return &AuthResult{AuthToken: token, Raw: respBody}, nil
}
