package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPValidatorValidToken(t *testing.T) {
	srv := authServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req validateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "s3cret", r.Header.Get("X-Guessbot-Secret"))

		if req.Token != "good" {
			_ = json.NewEncoder(w).Encode(validateResponse{Valid: false})
			return
		}
		_ = json.NewEncoder(w).Encode(validateResponse{
			Valid:    true,
			Identity: Identity{UserID: 42, Username: "alice"},
		})
	})

	v := NewHTTPValidator(srv.URL, "s3cret")

	id, err := v.Validate(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, &Identity{UserID: 42, Username: "alice"}, id)

	_, err = v.Validate(context.Background(), "bad")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHTTPValidatorEmptyToken(t *testing.T) {
	called := false
	srv := authServer(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := NewHTTPValidator(srv.URL, "").Validate(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.False(t, called)
}

func TestHTTPValidatorStatusCodes(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrInvalidToken},
		{http.StatusForbidden, ErrInvalidToken},
		{http.StatusTooManyRequests, ErrUnavailable},
		{http.StatusInternalServerError, ErrUnavailable},
		{http.StatusTeapot, ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := authServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})
			_, err := NewHTTPValidator(srv.URL, "").Validate(context.Background(), "tok")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHTTPValidatorMissingUserID(t *testing.T) {
	srv := authServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"valid": true}`))
	})
	_, err := NewHTTPValidator(srv.URL, "").Validate(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHTTPValidatorMalformedJSON(t *testing.T) {
	srv := authServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	})
	_, err := NewHTTPValidator(srv.URL, "").Validate(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPValidatorTimeout(t *testing.T) {
	srv := authServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * validateTimeout):
		case <-r.Context().Done():
		}
	})
	_, err := NewHTTPValidator(srv.URL, "").Validate(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPValidatorNetworkError(t *testing.T) {
	_, err := NewHTTPValidator("http://127.0.0.1:1", "").Validate(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestNoopValidator(t *testing.T) {
	id, err := NoopValidator{}.Validate(context.Background(), "")
	assert.NoError(t, err)
	assert.Nil(t, id)
}
