package session

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// TokenStore is the durable persistence contract for the access token.
// Implementations must survive process restarts and must never surface
// failures: a failed read reports no token, a failed write is a no-op.
// Only the Manager writes to the store.
type TokenStore interface {
	Get(ctx context.Context) (string, bool)
	Set(ctx context.Context, token string)
	Clear(ctx context.Context)
}

// IdentityAPI is the remote identity service as seen by the Manager.
// The token argument on authenticated calls is the current bearer token;
// empty means "no credential". Refresh relies on an out-of-band credential
// (a cookie held by the HTTP client), not the bearer token.
type IdentityAPI interface {
	Me(ctx context.Context, token string) (*MeResponse, error)
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	VerifyLoginOTP(ctx context.Context, email, otp string, remember bool) (*CredentialResponse, error)
	RequestInviteOTP(ctx context.Context, invitationToken string) error
	SetPassword(ctx context.Context, invitationToken, password, otp string) (*CredentialResponse, error)
	Refresh(ctx context.Context) (*RefreshResponse, error)
	Logout(ctx context.Context, token string) error
	UpdateProfile(ctx context.Context, token string, update ProfileUpdate) error
}

// Config holds identity client options
type Config interface {
	GetBaseURL() string
	GetRequestTimeout() time.Duration
	GetUserAgent() string
}

// SimpleConfig is a plain-struct Config for callers that do not carry their
// own configuration layer.
type SimpleConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
	UserAgent      string
}

func (c SimpleConfig) GetBaseURL() string { return c.BaseURL }

func (c SimpleConfig) GetRequestTimeout() time.Duration { return c.RequestTimeout }

func (c SimpleConfig) GetUserAgent() string { return c.UserAgent }

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
