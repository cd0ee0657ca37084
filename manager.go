package session

import (
	"context"
	"sync"
	"sync/atomic"
)

// Manager owns the session: it is the only writer of the session state and
// the token store, and it implements every lifecycle transition as an
// independent operation. Construct exactly one per process and hand it to
// whatever needs the session (see ctx.go for context injection).
//
// Operations do not serialize against each other; two racing operations
// interleave and the last state write wins, matching the single-threaded
// event-loop model of the reference behavior. Individual field writes are
// atomic under the state lock, so readers never observe torn state.
type Manager struct {
	api          IdentityAPI
	store        TokenStore
	logger       Logger
	activitySink ActivitySink

	mu           sync.Mutex
	state        sessionState
	gen          int64
	listeners    map[int64]Listener
	nextListener int64

	tokenCell atomic.Pointer[string]
}

// New returns a Manager seeded with whatever token the store still holds and
// loading set, ready for Restore.
func New(api IdentityAPI, store TokenStore) *Manager {
	if store == nil {
		store = NewMemoryTokenStore()
	}
	m := &Manager{
		api:          api,
		store:        store,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		listeners:    map[int64]Listener{},
	}

	token, _ := store.Get(context.Background())
	m.state = sessionState{token: token, loading: true}
	m.tokenCell.Store(&token)
	return m
}

func (m *Manager) WithLogger(l Logger) *Manager {
	if l != nil {
		m.logger = l
	}
	return m
}

// WithActivitySink configures an ActivitySink for emitting lifecycle events.
func (m *Manager) WithActivitySink(sink ActivitySink) *Manager {
	m.activitySink = normalizeActivitySink(sink)
	return m
}

// Restore attempts silent restoration once, at startup: "who am I" with
// whatever token is currently known. On success the user is populated and a
// rotated token adopted; on any failure the session is cleared. Absence of a
// session is a normal state, so Restore never surfaces an error message.
// Either way loading flips to false.
func (m *Manager) Restore(ctx context.Context) {
	gen := m.generation()

	res, err := m.api.Me(ctx, m.GetAccessToken())
	if err != nil || res == nil || res.User == nil {
		if err != nil {
			m.logger.Debug("silent restore found no session: %v", err)
		}
		m.mutateIfCurrent(gen, func(s *sessionState) {
			s.user = nil
			m.writeToken(ctx, s, "")
			s.loading = false
		})
		return
	}

	applied := m.mutateIfCurrent(gen, func(s *sessionState) {
		s.user = res.User
		if res.AccessToken != "" {
			m.writeToken(ctx, s, res.AccessToken)
		}
		s.loading = false
	})
	if applied {
		m.emitEvent(ctx, ActivityEventSessionRestored, res.User.ID.String(), res.User.Email, nil)
	}
}

// Deactivate marks the current instance inactive so a Restore result that
// arrives afterwards is discarded. This is the one deliberate exception to
// "operations are not cancellable": Restore runs without user initiation, so
// its late result must not resurrect a torn-down surface.
func (m *Manager) Deactivate() {
	m.mu.Lock()
	m.gen++
	m.mu.Unlock()
}

// Login authenticates with email and password. It returns true when the
// service demands an OTP step-up; the session then carries a PendingLogin
// marker until VerifyLoginOTP succeeds or a fresh login starts. On failure
// the classified message is stored on the session AND returned, so the
// invoking form can manage its own pending state.
func (m *Manager) Login(ctx context.Context, email, password string) (bool, error) {
	m.mutate(func(s *sessionState) {
		s.err = ""
		s.pending = nil
	})

	res, err := m.api.Login(ctx, email, password)
	if err != nil {
		rich := Classify(err)
		m.mutate(func(s *sessionState) { s.err = rich.Message })
		m.emitEvent(ctx, ActivityEventLoginFailure, "", email, map[string]any{"error": rich.Message})
		return false, rich
	}

	if res != nil && res.RequiresOTP {
		m.mutate(func(s *sessionState) { s.pending = &PendingLogin{Email: email} })
		m.emitEvent(ctx, ActivityEventOTPRequired, "", email, nil)
		return true, nil
	}

	if res == nil || res.AccessToken == "" || res.User == nil {
		m.mutate(func(s *sessionState) { s.err = MsgLoginFailed })
		m.emitEvent(ctx, ActivityEventLoginFailure, "", email, map[string]any{"error": MsgLoginFailed})
		return false, ErrLoginIncomplete
	}

	user := res.User
	m.mutate(func(s *sessionState) {
		m.writeToken(ctx, s, res.AccessToken)
		s.user = user
		s.pending = nil
	})
	m.emitEvent(ctx, ActivityEventLoginSuccess, user.ID.String(), email, nil)
	return false, nil
}

// VerifyLoginOTP completes an OTP step-up. The OTP response payload is
// intentionally minimal, so a successful verification is followed by a
// RefetchMe to pull the full profile (onboarding status included). On any
// failure the OTP form is expected to stay open: the error is stored and
// returned.
func (m *Manager) VerifyLoginOTP(ctx context.Context, email, otp string, remember bool) error {
	m.mutate(func(s *sessionState) { s.err = "" })

	res, err := m.api.VerifyLoginOTP(ctx, email, otp, remember)
	if err != nil {
		rich := Classify(err)
		m.mutate(func(s *sessionState) { s.err = rich.Message })
		return rich
	}

	if !res.Complete() {
		m.mutate(func(s *sessionState) { s.err = MsgLoginFailed })
		return ErrLoginIncomplete
	}

	user := res.User
	m.mutate(func(s *sessionState) {
		m.writeToken(ctx, s, res.AccessToken)
		s.user = user
		s.pending = nil
		s.err = ""
	})
	m.emitEvent(ctx, ActivityEventOTPVerified, user.ID.String(), email, nil)

	m.RefetchMe(ctx)
	return nil
}

// RequestInviteOTP asks the service to send an OTP for an invited account
// that has no password yet.
func (m *Manager) RequestInviteOTP(ctx context.Context, invitationToken string) error {
	m.mutate(func(s *sessionState) { s.err = "" })

	if err := m.api.RequestInviteOTP(ctx, invitationToken); err != nil {
		rich := Classify(err)
		m.mutate(func(s *sessionState) { s.err = rich.Message })
		return rich
	}
	return nil
}

// SetPassword completes invite activation: the invited user sets a password,
// proves the OTP, and becomes a full session holder.
func (m *Manager) SetPassword(ctx context.Context, invitationToken, password, otp string) error {
	m.mutate(func(s *sessionState) { s.err = "" })

	res, err := m.api.SetPassword(ctx, invitationToken, password, otp)
	if err != nil {
		rich := Classify(err)
		m.mutate(func(s *sessionState) { s.err = rich.Message })
		return rich
	}

	if !res.Complete() {
		m.mutate(func(s *sessionState) { s.err = MsgSetPasswordFailed })
		return ErrSetPasswordIncomplete
	}

	user := res.User
	m.mutate(func(s *sessionState) {
		m.writeToken(ctx, s, res.AccessToken)
		s.user = user
		s.err = ""
	})
	m.emitEvent(ctx, ActivityEventInviteActivated, user.ID.String(), user.Email, nil)
	return nil
}

// Refresh asks for a new access token using the out-of-band credential (the
// refresh cookie), not the current bearer token. It never fails outward: on
// any failure or missing token the session is cleared (user and token
// together, never one without the other) and ok is false, meaning the
// caller must re-authenticate.
func (m *Manager) Refresh(ctx context.Context) (string, bool) {
	res, err := m.api.Refresh(ctx)
	if err != nil || res == nil || res.AccessToken == "" {
		if err != nil {
			m.logger.Debug("session refresh failed: %v", err)
		}
		m.mutate(func(s *sessionState) {
			s.user = nil
			m.writeToken(ctx, s, "")
		})
		m.emitEvent(ctx, ActivityEventRefreshFailure, "", "", nil)
		return "", false
	}

	m.mutate(func(s *sessionState) {
		m.writeToken(ctx, s, res.AccessToken)
	})
	return res.AccessToken, true
}

// RefetchMe re-runs "who am I" to refresh the user (and adopt a rotated
// token). Best-effort: a transient failure here must not log the user out,
// so failures are swallowed and the previous user is kept.
func (m *Manager) RefetchMe(ctx context.Context) {
	res, err := m.api.Me(ctx, m.GetAccessToken())
	if err != nil || res == nil || res.User == nil {
		if err != nil {
			m.logger.Debug("profile refetch failed, keeping previous user: %v", err)
		}
		return
	}

	m.mutate(func(s *sessionState) {
		s.user = res.User
		if res.AccessToken != "" {
			m.writeToken(ctx, s, res.AccessToken)
		}
	})
}

// Logout notifies the service (best-effort, a network failure is ignored),
// then unconditionally clears the token store and resets the session to its
// empty initial shape.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.api.Logout(ctx, m.GetAccessToken()); err != nil {
		m.logger.Debug("logout call failed, clearing session anyway: %v", err)
	}

	var userID string
	m.mu.Lock()
	if m.state.user != nil {
		userID = m.state.user.ID.String()
	}
	// discard any in-flight restore result
	m.gen++
	m.mu.Unlock()

	m.mutate(func(s *sessionState) {
		s.reset()
		m.store.Clear(ctx)
	})
	m.emitEvent(ctx, ActivityEventLogout, userID, "", nil)
}

// UpdateProfile sends the partial profile fields, then refetches the user so
// the session reflects server-side normalization.
func (m *Manager) UpdateProfile(ctx context.Context, update ProfileUpdate) error {
	m.mutate(func(s *sessionState) { s.err = "" })

	if err := m.api.UpdateProfile(ctx, m.GetAccessToken(), update); err != nil {
		rich := Classify(err)
		m.mutate(func(s *sessionState) { s.err = rich.Message })
		return rich
	}

	m.RefetchMe(ctx)

	var userID string
	if u := m.User(); u != nil {
		userID = u.ID.String()
	}
	m.emitEvent(ctx, ActivityEventProfileUpdated, userID, "", nil)
	return nil
}

// ClearError drops the stored user-facing error message. Pure state
// mutation, no I/O.
func (m *Manager) ClearError() {
	m.mutate(func(s *sessionState) { s.err = "" })
}

func (m *Manager) generation() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

// writeToken is the single place the token changes: state field, durable
// store, and (via the caller's mutate) the synchronous cell move together so
// they never diverge past one synchronous update.
func (m *Manager) writeToken(ctx context.Context, s *sessionState, token string) {
	s.token = token
	if token == "" {
		m.store.Clear(ctx)
		return
	}
	m.store.Set(ctx, token)
}
