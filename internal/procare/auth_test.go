package procare

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The auth endpoint has returned the token at several depths over time; all
// of them must work.
func TestAuthenticate_TokenShapes(t *testing.T) {
	shapes := map[string]string{
		"top level":  `{"auth_token":"tok-1"}`,
		"under user": `{"user":{"auth_token":"tok-1"}}`,
		"under data": `{"data":{"auth_token":"tok-1"}}`,
		"data.user":  `{"data":{"user":{"auth_token":"tok-1"}}}`,
	}

	for name, body := range shapes {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/sessions/", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				assert.NotEmpty(t, r.Header.Get("Referer"))

				var payload map[string]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
				assert.Equal(t, "a@example.com", payload["email"])
				assert.Equal(t, "secret", payload["password"])
				assert.Equal(t, "carer", payload["role"])
				assert.Equal(t, "web", payload["platform"])

				w.Write([]byte(body))
			}))
			defer server.Close()

			result, err := Authenticate(context.Background(), AuthOptions{
				Email:    "a@example.com",
				Password: "secret",
				BaseURL:  server.URL,
			})

			require.NoError(t, err)
			assert.Equal(t, "tok-1", result.AuthToken)
			assert.JSONEq(t, body, string(result.Raw))
		})
	}
}

func TestAuthenticate_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid credentials"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := Authenticate(context.Background(), AuthOptions{
		Email:    "a@example.com",
		Password: "wrong",
		BaseURL:  server.URL,
	})

	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
}

func TestAuthenticate_MissingToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"user":{"id":"u-1"}}`))
	}))
	defer server.Close()

	_, err := Authenticate(context.Background(), AuthOptions{
		Email:    "a@example.com",
		Password: "secret",
		BaseURL:  server.URL,
	})

	assert.ErrorIs(t, err, ErrTokenMissing)
}
