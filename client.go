package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

// Identity service routes. Paths are a collaborator detail; override the
// whole client (IdentityAPI) if a deployment routes differently.
const (
	routeMe               = "/session/me"
	routeLogin            = "/session/login"
	routeVerifyLoginOTP   = "/session/verify-login-otp"
	routeRequestInviteOTP = "/session/request-invite-otp"
	routeSetPassword      = "/session/set-password"
	routeRefresh          = "/session/refresh"
	routeLogout           = "/session/logout"
	routeProfile          = "/session/profile"
)

const defaultRequestTimeout = 15 * time.Second

// responses are small JSON documents; anything bigger is not ours
const maxResponseBytes = 1 << 20

// APIError is an HTTP response the identity service answered with a non-2xx
// status. Message carries the server-provided structured message when the
// body had one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("identity service: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("identity service: HTTP %d", e.StatusCode)
}

// TransportError is a request that never produced an HTTP response: DNS
// failure, refused connection, timeout, interrupted body read. The wrapped
// error keeps its net.Error semantics so the classifier can tell timeouts
// apart from other network failures.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("identity service: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// HTTPIdentityClient is the typed HTTP client for the identity service. It
// mirrors the service's wire format with its own response types. The refresh
// endpoint authenticates through a cookie, so the client always carries a
// cookie jar.
type HTTPIdentityClient struct {
	baseURL   string
	userAgent string
	client    *http.Client
	logger    Logger
}

var _ IdentityAPI = (*HTTPIdentityClient)(nil)

// NewHTTPIdentityClient returns a client rooted at cfg.GetBaseURL().
func NewHTTPIdentityClient(cfg Config) (*HTTPIdentityClient, error) {
	baseURL := strings.TrimRight(cfg.GetBaseURL(), "/")
	if baseURL == "" {
		return nil, goerrors.New("identity client requires a base URL", goerrors.CategoryValidation)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "unable to create cookie jar")
	}

	timeout := cfg.GetRequestTimeout()
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}

	return &HTTPIdentityClient{
		baseURL:   baseURL,
		userAgent: cfg.GetUserAgent(),
		client: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		logger: defLogger{},
	}, nil
}

func (c *HTTPIdentityClient) WithLogger(l Logger) *HTTPIdentityClient {
	if l != nil {
		c.logger = l
	}
	return c
}

// WithHTTPClient swaps the underlying http.Client. The replacement should
// carry a cookie jar or Refresh will have no credential to send.
func (c *HTTPIdentityClient) WithHTTPClient(client *http.Client) *HTTPIdentityClient {
	if client != nil {
		c.client = client
	}
	return c
}

func (c *HTTPIdentityClient) Me(ctx context.Context, token string) (*MeResponse, error) {
	out := new(MeResponse)
	if err := c.do(ctx, http.MethodGet, routeMe, token, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r loginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (c *HTTPIdentityClient) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	payload := loginRequest{Email: email, Password: password}
	if err := payload.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid login request")
	}

	out := new(LoginResponse)
	if err := c.do(ctx, http.MethodPost, routeLogin, "", payload, out); err != nil {
		return nil, err
	}
	return out, nil
}

type verifyLoginOTPRequest struct {
	Email    string `json:"email"`
	OTP      string `json:"otp"`
	Remember bool   `json:"remember,omitempty"`
}

func (r verifyLoginOTPRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.OTP, validation.Required),
	)
}

func (c *HTTPIdentityClient) VerifyLoginOTP(ctx context.Context, email, otp string, remember bool) (*CredentialResponse, error) {
	payload := verifyLoginOTPRequest{Email: email, OTP: otp, Remember: remember}
	if err := payload.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid OTP verification request")
	}

	out := new(CredentialResponse)
	if err := c.do(ctx, http.MethodPost, routeVerifyLoginOTP, "", payload, out); err != nil {
		return nil, err
	}
	return out, nil
}

type inviteOTPRequest struct {
	InvitationToken string `json:"invitationToken"`
}

func (r inviteOTPRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.InvitationToken, validation.Required),
	)
}

func (c *HTTPIdentityClient) RequestInviteOTP(ctx context.Context, invitationToken string) error {
	payload := inviteOTPRequest{InvitationToken: invitationToken}
	if err := payload.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid invite OTP request")
	}
	return c.do(ctx, http.MethodPost, routeRequestInviteOTP, "", payload, nil)
}

type setPasswordRequest struct {
	InvitationToken string `json:"invitationToken"`
	Password        string `json:"password"`
	OTP             string `json:"otp"`
}

func (r setPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.InvitationToken, validation.Required),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.OTP, validation.Required),
	)
}

func (c *HTTPIdentityClient) SetPassword(ctx context.Context, invitationToken, password, otp string) (*CredentialResponse, error) {
	payload := setPasswordRequest{InvitationToken: invitationToken, Password: password, OTP: otp}
	if err := payload.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid set-password request")
	}

	out := new(CredentialResponse)
	if err := c.do(ctx, http.MethodPost, routeSetPassword, "", payload, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Refresh authenticates through the cookie jar, never the bearer token.
func (c *HTTPIdentityClient) Refresh(ctx context.Context) (*RefreshResponse, error) {
	out := new(RefreshResponse)
	if err := c.do(ctx, http.MethodPost, routeRefresh, "", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPIdentityClient) Logout(ctx context.Context, token string) error {
	return c.do(ctx, http.MethodPost, routeLogout, token, nil, nil)
}

func (c *HTTPIdentityClient) UpdateProfile(ctx context.Context, token string, update ProfileUpdate) error {
	if update.IsEmpty() {
		return goerrors.New("profile update carries no fields", goerrors.CategoryValidation)
	}
	return c.do(ctx, http.MethodPatch, routeProfile, token, update, nil)
}

func (c *HTTPIdentityClient) do(ctx context.Context, method, path, token string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to encode request body")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to build request")
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	res, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("identity request %s %s failed before a response: %v", method, path, err)
		return &TransportError{Op: method + " " + path, Err: err}
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return &TransportError{Op: method + " " + path, Err: err}
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		apiErr := &APIError{StatusCode: res.StatusCode, Message: serverMessage(data)}
		c.logger.Debug("identity request %s %s rejected with status %d", method, path, res.StatusCode)
		return apiErr
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to decode response body")
		}
	}
	return nil
}

// serverMessage extracts the structured message from an error body. The
// service answers either {"message": "..."} or {"error": "..."}.
func serverMessage(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	if body.Message != "" {
		return body.Message
	}
	return body.Error
}
