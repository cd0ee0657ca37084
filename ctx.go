package session

import (
	"context"
)

var managerCtxKey = &contextKey{"manager"}

type contextKey struct {
	name string
}

// WithContext sets the Manager in the given context. The Manager is an
// explicitly constructed, single-instance-per-process object; the context is
// how it travels to whatever needs the session instead of ambient globals.
func WithContext(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, managerCtxKey, m)
}

// FromContext finds the Manager in the context.
func FromContext(ctx context.Context) (*Manager, bool) {
	raw, ok := ctx.Value(managerCtxKey).(*Manager)
	return raw, ok
}

// MustFromContext finds the Manager or panics; for wiring paths where a
// missing manager is a programming error.
func MustFromContext(ctx context.Context) *Manager {
	m, ok := FromContext(ctx)
	if !ok {
		panic(ErrManagerInactive)
	}
	return m
}

// CurrentUser is a convenience accessor for the authenticated user carried
// by the context's Manager. Returns nil when no manager or no session.
func CurrentUser(ctx context.Context) *User {
	m, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	return m.User()
}
