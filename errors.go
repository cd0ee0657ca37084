package session

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

// User-facing messages produced by the classifier. Operations store these on
// the session for passive display; forms render them verbatim.
const (
	MsgNetworkError       = "Network error. Please check your connection and try again."
	MsgRequestTimeout     = "Request timed out. Please try again."
	MsgInvalidCredentials = "Invalid email or password"
	MsgTooManyAttempts    = "Too many attempts. Please try again later."
	MsgNotFound           = "Resource not found"
	MsgTooManyRequests    = "Too many requests. Please try again later."
	MsgServerError        = "Server error. Please try again later."
	MsgRequestFailed      = "An error occurred. Please try again."
	MsgUnexpectedError    = "An unexpected error occurred. Please try again."
	MsgLoginFailed        = "Login failed"
	MsgSetPasswordFailed  = "Failed to set password. Please try again."
)

const (
	textCodeLoginIncomplete       = "LOGIN_RESPONSE_INCOMPLETE"
	textCodeSetPasswordIncomplete = "SET_PASSWORD_RESPONSE_INCOMPLETE"
	textCodeSessionInactive       = "SESSION_INSTANCE_INACTIVE"
)

// ErrLoginIncomplete is returned when an OTP verification response is missing
// the token or the user payload; the OTP form stays open.
var ErrLoginIncomplete = goerrors.New(MsgLoginFailed, goerrors.CategoryAuth).
	WithTextCode(textCodeLoginIncomplete)

// ErrSetPasswordIncomplete is returned when invite activation succeeds at the
// HTTP level but the response is missing the token or the user payload.
var ErrSetPasswordIncomplete = goerrors.New(MsgSetPasswordFailed, goerrors.CategoryValidation).
	WithTextCode(textCodeSetPasswordIncomplete)

// ErrManagerInactive is returned by context helpers when no Manager was
// injected into the context.
var ErrManagerInactive = goerrors.New("no session manager in context", goerrors.CategoryOperation).
	WithTextCode(textCodeSessionInactive)

// IsUnauthorizedError reports whether the failure was an HTTP 401.
func IsUnauthorizedError(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == 401
}
