package session

// Snapshot is a point-in-time copy of the session state. It is safe to hold
// across operations; it never mutates after being handed out.
type Snapshot struct {
	User         *User
	AccessToken  string
	Loading      bool
	Error        string
	PendingLogin *PendingLogin
}

// Authenticated reports whether the snapshot carries a live session.
func (s Snapshot) Authenticated() bool {
	return s.User != nil && s.AccessToken != ""
}

// Listener observes session state changes. Listeners run synchronously after
// each mutation, outside the state lock, in registration order.
type Listener func(Snapshot)

// sessionState is the single source of truth for the rest of the application.
// It is created once, mutated only by Manager operations, and reset (never
// destroyed) on logout. All access goes through the Manager's lock.
type sessionState struct {
	user    *User
	token   string
	loading bool
	err     string
	pending *PendingLogin
}

func (s *sessionState) snapshot() Snapshot {
	return Snapshot{
		User:         s.user,
		AccessToken:  s.token,
		Loading:      s.loading,
		Error:        s.err,
		PendingLogin: s.pending,
	}
}

// reset returns the state to its empty initial shape.
func (s *sessionState) reset() {
	s.user = nil
	s.token = ""
	s.loading = false
	s.err = ""
	s.pending = nil
}

// Snapshot returns a copy of the current session state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.snapshot()
}

// User returns the current authenticated user, nil when logged out.
func (m *Manager) User() *User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.user
}

// Loading reports whether the initial silent restore is still running.
func (m *Manager) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.loading
}

// Err returns the last user-facing error message, empty when none.
func (m *Manager) Err() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.err
}

// PendingLogin returns the pending OTP step-up marker, nil when none.
func (m *Manager) PendingLogin() *PendingLogin {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.pending
}

// GetAccessToken returns the current access token without locking. It is
// backed by an atomic cell written in the same critical section as every
// token change, so the outbound HTTP layer can read it on every request
// without awaiting state propagation.
func (m *Manager) GetAccessToken() string {
	if p := m.tokenCell.Load(); p != nil {
		return *p
	}
	return ""
}

// OnChange registers a listener for session state changes and returns an
// unsubscribe func.
func (m *Manager) OnChange(fn Listener) func() {
	if fn == nil {
		return func() {}
	}
	m.mu.Lock()
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// mutate applies fn under the state lock, refreshes the synchronous token
// cell, and notifies listeners with the resulting snapshot.
func (m *Manager) mutate(fn func(s *sessionState)) {
	m.mu.Lock()
	fn(&m.state)
	m.publishTokenLocked()
	snap := m.state.snapshot()
	listeners := m.listenersLocked()
	m.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

// mutateIfCurrent applies fn only when the session generation still matches
// gen. A stale result (restore finishing after Deactivate or Logout) is
// discarded.
func (m *Manager) mutateIfCurrent(gen int64, fn func(s *sessionState)) bool {
	m.mu.Lock()
	if m.gen != gen {
		m.mu.Unlock()
		return false
	}
	fn(&m.state)
	m.publishTokenLocked()
	snap := m.state.snapshot()
	listeners := m.listenersLocked()
	m.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
	return true
}

func (m *Manager) publishTokenLocked() {
	token := m.state.token
	m.tokenCell.Store(&token)
}

func (m *Manager) listenersLocked() []Listener {
	if len(m.listeners) == 0 {
		return nil
	}
	out := make([]Listener, 0, len(m.listeners))
	for id := int64(0); id < m.nextListener; id++ {
		if l, ok := m.listeners[id]; ok {
			out = append(out, l)
		}
	}
	return out
}
