package session_test

import (
	"context"
	"sync"
	"testing"

	session "github.com/goliatone/go-session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSnapshotAuthenticated(t *testing.T) {
	assert.False(t, session.Snapshot{}.Authenticated())
	assert.False(t, session.Snapshot{AccessToken: "t"}.Authenticated())
	assert.False(t, session.Snapshot{User: testUser()}.Authenticated())
	assert.True(t, session.Snapshot{User: testUser(), AccessToken: "t"}.Authenticated())
}

func TestListenersObserveEveryMutation(t *testing.T) {
	ctx := context.Background()
	user := testUser()

	api := &MockIdentityAPI{}
	api.On("Login", mock.Anything, user.Email, "hunter2").
		Return(&session.LoginResponse{AccessToken: "token", User: user}, nil)

	m := session.New(api, session.NewMemoryTokenStore())

	var mu sync.Mutex
	var snaps []session.Snapshot
	unsubscribe := m.OnChange(func(s session.Snapshot) {
		mu.Lock()
		snaps = append(snaps, s)
		mu.Unlock()
	})

	_, err := m.Login(ctx, user.Email, "hunter2")
	require.NoError(t, err)

	mu.Lock()
	require.NotEmpty(t, snaps)
	final := snaps[len(snaps)-1]
	mu.Unlock()

	assert.Equal(t, user, final.User)
	assert.Equal(t, "token", final.AccessToken)

	unsubscribe()
	count := len(snaps)
	m.ClearError()

	mu.Lock()
	assert.Len(t, snaps, count, "unsubscribed listener must not fire")
	mu.Unlock()
}

func TestGetAccessTokenTracksEveryChange(t *testing.T) {
	ctx := context.Background()
	user := testUser()

	api := &MockIdentityAPI{}
	api.On("Login", mock.Anything, user.Email, "hunter2").
		Return(&session.LoginResponse{AccessToken: "login-token", User: user}, nil)
	api.On("Refresh", mock.Anything).
		Return(&session.RefreshResponse{AccessToken: "refresh-token"}, nil)
	api.On("Logout", mock.Anything, "refresh-token").Return(nil)

	m := session.New(api, session.NewMemoryTokenStore())
	assert.Equal(t, "", m.GetAccessToken())

	_, err := m.Login(ctx, user.Email, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "login-token", m.GetAccessToken())

	_, ok := m.Refresh(ctx)
	require.True(t, ok)
	assert.Equal(t, "refresh-token", m.GetAccessToken())

	m.Logout(ctx)
	assert.Equal(t, "", m.GetAccessToken())
}

// GetAccessToken is called by the outbound HTTP layer on every request; it
// must stay readable while operations mutate state.
func TestGetAccessTokenConcurrentReads(t *testing.T) {
	ctx := context.Background()

	api := &MockIdentityAPI{}
	api.On("Refresh", mock.Anything).
		Return(&session.RefreshResponse{AccessToken: "fresh"}, nil)

	m := session.New(api, session.NewMemoryTokenStore())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = m.GetAccessToken()
			}
		}()
	}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = m.Refresh(ctx)
		}()
	}
	wg.Wait()

	assert.Equal(t, "fresh", m.GetAccessToken())
}
