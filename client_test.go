package session_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	session "github.com/goliatone/go-session"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) (*session.HTTPIdentityClient, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := session.NewHTTPIdentityClient(session.SimpleConfig{
		BaseURL:        server.URL,
		RequestTimeout: 5 * time.Second,
		UserAgent:      "go-session-test",
	})
	require.NoError(t, err)
	return client, server
}

func TestNewHTTPIdentityClientRequiresBaseURL(t *testing.T) {
	_, err := session.NewHTTPIdentityClient(session.SimpleConfig{})
	assert.Error(t, err)
}

func TestClientLogin(t *testing.T) {
	userID := uuid.New()

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/session/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"), "login must not carry a bearer token")
		assert.Equal(t, "go-session-test", r.Header.Get("User-Agent"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "agent@example.com", payload["email"])
		assert.Equal(t, "hunter2", payload["password"])

		json.NewEncoder(w).Encode(map[string]any{
			"accessToken": "granted",
			"user":        map[string]any{"id": userID.String(), "email": "agent@example.com", "role": "agent"},
		})
	}))

	res, err := client.Login(context.Background(), "agent@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "granted", res.AccessToken)
	require.NotNil(t, res.User)
	assert.Equal(t, userID, res.User.ID)
	assert.Equal(t, session.RoleAgent, res.User.Role)
}

func TestClientLoginValidationShortCircuits(t *testing.T) {
	var hits atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))

	_, err := client.Login(context.Background(), "not-an-email", "hunter2")
	assert.Error(t, err)
	_, err = client.Login(context.Background(), "agent@example.com", "")
	assert.Error(t, err)

	assert.Zero(t, hits.Load(), "invalid payloads must not reach the network")
}

func TestClientMeSendsBearer(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/session/me", r.URL.Path)
		assert.Equal(t, "Bearer the-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]any{"id": uuid.New().String(), "email": "agent@example.com", "role": "agent"},
		})
	}))

	res, err := client.Me(context.Background(), "the-token")
	require.NoError(t, err)
	require.NotNil(t, res.User)
}

func TestClientMeWithoutTokenOmitsHeader(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.Me(context.Background(), "")
	var apiErr *session.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestClientErrorBodies(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"message field", `{"message":"Account locked"}`, "Account locked"},
		{"error field", `{"error":"Bad invite"}`, "Bad invite"},
		{"both prefers message", `{"message":"One","error":"Two"}`, "One"},
		{"empty body", ``, ""},
		{"non-json body", `<html>nope</html>`, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				w.Write([]byte(tc.body))
			}))

			err := client.RequestInviteOTP(context.Background(), "invite-token")
			var apiErr *session.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusUnprocessableEntity, apiErr.StatusCode)
			assert.Equal(t, tc.expected, apiErr.Message)
		})
	}
}

func TestClientNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close() // refuse everything from here on

	client, err := session.NewHTTPIdentityClient(session.SimpleConfig{BaseURL: baseURL})
	require.NoError(t, err)

	_, err = client.Me(context.Background(), "token")
	var transportErr *session.TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.Equal(t, "Network error. Please check your connection and try again.", session.ClassifyMessage(err))
}

func TestClientTimeoutClassifiesAsTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(server.Close)

	client, err := session.NewHTTPIdentityClient(session.SimpleConfig{
		BaseURL:        server.URL,
		RequestTimeout: 50 * time.Millisecond,
	})
	require.NoError(t, err)

	_, err = client.Me(context.Background(), "token")
	require.Error(t, err)
	assert.Equal(t, "Request timed out. Please try again.", session.ClassifyMessage(err))
}

func TestClientRefreshUsesCookieNotBearer(t *testing.T) {
	var sawLogin, sawRefresh bool

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/session/login":
			sawLogin = true
			http.SetCookie(w, &http.Cookie{Name: "refresh_token", Value: "cookie-credential", Path: "/"})
			json.NewEncoder(w).Encode(map[string]any{
				"accessToken": "granted",
				"user":        map[string]any{"id": uuid.New().String(), "email": "agent@example.com", "role": "agent"},
			})
		case "/session/refresh":
			sawRefresh = true
			assert.Empty(t, r.Header.Get("Authorization"), "refresh must not use the bearer token")
			cookie, err := r.Cookie("refresh_token")
			require.NoError(t, err, "refresh relies on the out-of-band cookie")
			assert.Equal(t, "cookie-credential", cookie.Value)
			json.NewEncoder(w).Encode(map[string]any{"accessToken": "refreshed"})
		default:
			http.NotFound(w, r)
		}
	}))

	ctx := context.Background()
	_, err := client.Login(ctx, "agent@example.com", "hunter2")
	require.NoError(t, err)

	res, err := client.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "refreshed", res.AccessToken)
	assert.True(t, sawLogin)
	assert.True(t, sawRefresh)
}

func TestClientUpdateProfile(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/session/profile", r.URL.Path)
		assert.Equal(t, "Bearer the-token", r.Header.Get("Authorization"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Samuel", payload["firstName"])
		_, hasLast := payload["lastName"]
		assert.False(t, hasLast, "unset fields must be omitted")

		w.WriteHeader(http.StatusNoContent)
	}))

	first := "Samuel"
	err := client.UpdateProfile(context.Background(), "the-token", session.ProfileUpdate{FirstName: &first})
	require.NoError(t, err)
}

func TestClientUpdateProfileRejectsEmptyUpdate(t *testing.T) {
	var hits atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))

	err := client.UpdateProfile(context.Background(), "t", session.ProfileUpdate{})
	assert.Error(t, err)
	assert.Zero(t, hits.Load())
}

func TestAPIErrorMessage(t *testing.T) {
	assert.Equal(t, "identity service: HTTP 401: nope",
		(&session.APIError{StatusCode: 401, Message: "nope"}).Error())
	assert.Equal(t, "identity service: HTTP 500",
		(&session.APIError{StatusCode: 500}).Error())

	cause := errors.New("connection reset")
	assert.Equal(t, "identity service: GET /session/me: connection reset",
		(&session.TransportError{Op: "GET /session/me", Err: cause}).Error())
}
