package session

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported lifecycle event categories.
type ActivityEventType string

const (
	ActivityEventSessionRestored ActivityEventType = "session.restored"
	ActivityEventLoginSuccess    ActivityEventType = "session.login.success"
	ActivityEventLoginFailure    ActivityEventType = "session.login.failure"
	ActivityEventOTPRequired     ActivityEventType = "session.login.otp_required"
	ActivityEventOTPVerified     ActivityEventType = "session.otp.verified"
	ActivityEventInviteActivated ActivityEventType = "session.invite.activated"
	ActivityEventRefreshFailure  ActivityEventType = "session.refresh.failure"
	ActivityEventLogout          ActivityEventType = "session.logout"
	ActivityEventProfileUpdated  ActivityEventType = "session.profile.updated"
)

// ActivityEvent captures audit-friendly information about a lifecycle action.
type ActivityEvent struct {
	EventType  ActivityEventType
	UserID     string
	Email      string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes lifecycle events for auditing/telemetry purposes.
// Sinks run best-effort: errors are logged, never propagated, so a slow or
// broken sink cannot block authentication.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

func (m *Manager) emitEvent(ctx context.Context, eventType ActivityEventType, userID, email string, metadata map[string]any) {
	event := ActivityEvent{
		EventType:  eventType,
		UserID:     userID,
		Email:      email,
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}
	if err := m.activitySink.Record(ctx, event); err != nil {
		m.logger.Warn("activity sink rejected event %s: %v", eventType, err)
	}
}
