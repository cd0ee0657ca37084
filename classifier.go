package session

import (
	"context"
	"errors"
	"net"

	goerrors "github.com/goliatone/go-errors"
)

// ClassifyMessage maps any failure into a single user-presentable string.
// It is pure and total: it never panics and always returns a non-empty
// message, since it runs inside failure-handling paths.
//
// Precedence: an HTTP response wins over everything, then the timeout
// marker, then "no response reached the client" (any other transport
// failure), then the error's own message. Timeouts are checked before the
// generic transport case because a timed-out request never carries a
// response.
func ClassifyMessage(err error) string {
	if err == nil {
		return MsgUnexpectedError
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return messageForStatus(apiErr.StatusCode, apiErr.Message)
	}

	if isTimeoutError(err) {
		return MsgRequestTimeout
	}

	if isTransportError(err) {
		return MsgNetworkError
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return MsgUnexpectedError
}

// Classify wraps a failure into a categorized rich error whose message is the
// user-facing string from ClassifyMessage. Operations store that message on
// the session and return the rich error to their caller.
func Classify(err error) *goerrors.Error {
	msg := ClassifyMessage(err)
	category := categoryFor(err)
	if err == nil {
		return goerrors.New(msg, category)
	}
	return goerrors.Wrap(err, category, msg)
}

func messageForStatus(status int, serverMessage string) string {
	switch status {
	case 401:
		return orDefault(serverMessage, MsgInvalidCredentials)
	case 403:
		return orDefault(serverMessage, MsgTooManyAttempts)
	case 404:
		return orDefault(serverMessage, MsgNotFound)
	case 429:
		// rate-limit messages are deliberately generic
		return MsgTooManyRequests
	case 500, 502, 503, 504:
		return MsgServerError
	default:
		return orDefault(serverMessage, MsgRequestFailed)
	}
}

func categoryFor(err error) goerrors.Category {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 401:
			return goerrors.CategoryAuth
		case apiErr.StatusCode == 403 || apiErr.StatusCode == 429:
			return goerrors.CategoryRateLimit
		case apiErr.StatusCode == 404:
			return goerrors.CategoryNotFound
		case apiErr.StatusCode >= 500:
			return goerrors.CategoryInternal
		default:
			return goerrors.CategoryBadInput
		}
	}
	if isTimeoutError(err) || isTransportError(err) {
		return goerrors.CategoryOperation
	}
	return goerrors.CategoryBadInput
}

func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isTransportError(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

func orDefault(s, def string) string {
	if s != "" {
		return s
	}
	return def
}
