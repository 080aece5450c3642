package auth

import (
	"context"
	"time"
)

// EventType names an authentication outcome.
type EventType string

const (
	EventSignup      EventType = "signup"
	EventLogin       EventType = "login"
	EventLoginFailed EventType = "login_failed"
	EventLogout      EventType = "logout"
	EventTokenDenied EventType = "token_denied"
	EventAdminSeeded EventType = "admin_seeded"
)

// Event describes one authentication outcome. UserID and Role are empty when
// the subject is unknown, e.g. a login for an unregistered email.
type Event struct {
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id,omitempty"`
	Role      Role      `json:"role,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EventSink receives authentication events. Implementations must not block
// the caller for long and must not fail the request that produced the event.
type EventSink interface {
	Record(ctx context.Context, e Event)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, e Event)

// Record calls f(ctx, e).
func (f EventSinkFunc) Record(ctx context.Context, e Event) { f(ctx, e) }

// MultiSink fans an event out to every sink in order.
type MultiSink []EventSink

// Record delivers e to each non-nil sink.
func (m MultiSink) Record(ctx context.Context, e Event) {
	for _, s := range m {
		if s != nil {
			s.Record(ctx, e)
		}
	}
}

type nopSink struct{}

func (nopSink) Record(context.Context, Event) {}
