// Package auth checks the token a websocket client presents in hello and
// resolves it to the chat user it may act as.
package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

var (
	// ErrInvalidToken indicates the token is definitively invalid.
	ErrInvalidToken = errors.New("auth: invalid token")

	// ErrUnavailable indicates the auth service is unreachable or unavailable.
	ErrUnavailable = errors.New("auth: unavailable")
)

const validateTimeout = 500 * time.Millisecond

// Identity is the chat user a token belongs to.
type Identity struct {
	UserID    int64  `json:"user_id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

// Validator validates authentication tokens.
type Validator interface {
	// Validate returns the identity behind token. A nil identity with a nil
	// error means authentication is disabled and the client's claim stands.
	Validate(ctx context.Context, token string) (*Identity, error)
}

// HTTPValidator validates tokens via HTTP callback to external service.
type HTTPValidator struct {
	url    string
	secret string
	client *http.Client
}

// NewHTTPValidator creates a validator that POSTs {"token": ...} to url.
// A non-empty secret is sent in the X-Guessbot-Secret header.
func NewHTTPValidator(url, secret string) *HTTPValidator {
	return &HTTPValidator{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: validateTimeout},
	}
}

type validateRequest struct {
	Token string `json:"token"`
}

type validateResponse struct {
	Valid bool `json:"valid"`
	Identity
}

func (v *HTTPValidator) Validate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	ctx, cancel := context.WithTimeout(ctx, validateTimeout)
	defer cancel()

	body, err := json.Marshal(validateRequest{Token: token})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if v.secret != "" {
		req.Header.Set("X-Guessbot-Secret", v.secret)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrInvalidToken
	default:
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var out validateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if !out.Valid || out.UserID == 0 {
		return nil, ErrInvalidToken
	}

	id := out.Identity
	return &id, nil
}

// NoopValidator accepts every client as who it claims to be.
type NoopValidator struct{}

func (NoopValidator) Validate(context.Context, string) (*Identity, error) {
	return nil, nil
}
