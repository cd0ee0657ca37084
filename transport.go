package session

import (
	"net/http"
	"sync"
)

// BearerTransport is the outbound HTTP layer's hook into the session: an
// http.RoundTripper that attaches "Authorization: Bearer <token>" from the
// Manager's synchronous accessor on every request, and on a 401 performs one
// refresh and retries once with the new token.
//
// Concurrent 401s coalesce into a single refresh so racing requests do not
// each trigger their own refresh call.
type BearerTransport struct {
	// Base handles the actual request; http.DefaultTransport when nil.
	Base http.RoundTripper
	// Manager supplies tokens and performs the refresh.
	Manager *Manager
	// DisableRefresh turns off the 401-refresh-retry behavior.
	DisableRefresh bool

	refreshMu sync.Mutex
}

// NewBearerTransport wraps base (or http.DefaultTransport) with session
// token handling.
func NewBearerTransport(m *Manager, base http.RoundTripper) *BearerTransport {
	return &BearerTransport{Base: base, Manager: m}
}

// Client returns an http.Client mounted on the transport.
func (t *BearerTransport) Client() *http.Client {
	return &http.Client{Transport: t}
}

func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	if t.Manager == nil {
		return base.RoundTrip(req)
	}

	token := t.Manager.GetAccessToken()
	res, err := base.RoundTrip(t.withBearer(req, token))
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusUnauthorized || t.DisableRefresh {
		return res, nil
	}
	if !replayable(req) {
		return res, nil
	}

	fresh, ok := t.refreshToken(req, token)
	if !ok || fresh == token {
		return res, nil
	}

	retry, err := cloneForRetry(req)
	if err != nil {
		return res, nil
	}
	res.Body.Close()

	return base.RoundTrip(t.withBearer(retry, fresh))
}

// refreshToken coalesces concurrent refresh attempts: the first caller in
// performs the network refresh, everyone queued behind it reuses whatever
// token the refresh produced.
func (t *BearerTransport) refreshToken(req *http.Request, stale string) (string, bool) {
	t.refreshMu.Lock()
	defer t.refreshMu.Unlock()

	if current := t.Manager.GetAccessToken(); current != "" && current != stale {
		return current, true
	}
	return t.Manager.Refresh(req.Context())
}

func (t *BearerTransport) withBearer(req *http.Request, token string) *http.Request {
	if token == "" {
		return req
	}
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+token)
	return out
}

// replayable reports whether the request body can be replayed for a retry.
func replayable(req *http.Request) bool {
	return req.Body == nil || req.Body == http.NoBody || req.GetBody != nil
}

func cloneForRetry(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return out, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	out.Body = body
	return out, nil
}
