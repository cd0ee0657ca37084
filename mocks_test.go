package session_test

import (
	"context"
	"sync"

	session "github.com/goliatone/go-session"
	"github.com/stretchr/testify/mock"
)

// MockIdentityAPI implements session.IdentityAPI
type MockIdentityAPI struct {
	mock.Mock
}

func (m *MockIdentityAPI) Me(ctx context.Context, token string) (*session.MeResponse, error) {
	args := m.Called(ctx, token)
	var res *session.MeResponse
	if v := args.Get(0); v != nil {
		res = v.(*session.MeResponse)
	}
	return res, args.Error(1)
}

func (m *MockIdentityAPI) Login(ctx context.Context, email, password string) (*session.LoginResponse, error) {
	args := m.Called(ctx, email, password)
	var res *session.LoginResponse
	if v := args.Get(0); v != nil {
		res = v.(*session.LoginResponse)
	}
	return res, args.Error(1)
}

func (m *MockIdentityAPI) VerifyLoginOTP(ctx context.Context, email, otp string, remember bool) (*session.CredentialResponse, error) {
	args := m.Called(ctx, email, otp, remember)
	var res *session.CredentialResponse
	if v := args.Get(0); v != nil {
		res = v.(*session.CredentialResponse)
	}
	return res, args.Error(1)
}

func (m *MockIdentityAPI) RequestInviteOTP(ctx context.Context, invitationToken string) error {
	args := m.Called(ctx, invitationToken)
	return args.Error(0)
}

func (m *MockIdentityAPI) SetPassword(ctx context.Context, invitationToken, password, otp string) (*session.CredentialResponse, error) {
	args := m.Called(ctx, invitationToken, password, otp)
	var res *session.CredentialResponse
	if v := args.Get(0); v != nil {
		res = v.(*session.CredentialResponse)
	}
	return res, args.Error(1)
}

func (m *MockIdentityAPI) Refresh(ctx context.Context) (*session.RefreshResponse, error) {
	args := m.Called(ctx)
	var res *session.RefreshResponse
	if v := args.Get(0); v != nil {
		res = v.(*session.RefreshResponse)
	}
	return res, args.Error(1)
}

func (m *MockIdentityAPI) Logout(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockIdentityAPI) UpdateProfile(ctx context.Context, token string, update session.ProfileUpdate) error {
	args := m.Called(ctx, token, update)
	return args.Error(0)
}

// brokenTokenStore simulates a corrupted or disabled persistence layer:
// reads report no token, writes go nowhere. Per contract nothing raises.
type brokenTokenStore struct{}

func (brokenTokenStore) Get(context.Context) (string, bool) { return "", false }
func (brokenTokenStore) Set(context.Context, string)        {}
func (brokenTokenStore) Clear(context.Context)              {}

// recordingSink collects activity events for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []session.ActivityEvent
}

func (r *recordingSink) Record(_ context.Context, event session.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) types() []session.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]session.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}
