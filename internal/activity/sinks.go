package activity

import (
	"context"
	"log/slog"
	"time"

	"github.com/itz-ankit01/inbotiq-core/internal/audit"
	"github.com/itz-ankit01/inbotiq-core/internal/auth"
	"github.com/itz-ankit01/inbotiq-core/internal/infrastructure/mqtt"
)

// Outcome values written alongside each event.
const (
	OutcomeSuccess = "success"
	OutcomeDenied  = "denied"
)

// Counter is satisfied by *metrics.Metrics.
type Counter interface {
	RecordAuthEvent(eventType, reason string)
}

// Publisher is satisfied by *mqtt.Client.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// PointWriter is satisfied by *influxdb.Client.
type PointWriter interface {
	WriteAuthEvent(eventType, outcome, role, userID string, ts time.Time)
}

// AuditWriter is satisfied by the audit repositories.
type AuditWriter interface {
	Create(ctx context.Context, e *audit.Entry) error
}

// auditWriteTimeout bounds a single audit insert.
const auditWriteTimeout = 5 * time.Second

// Outcome classifies an event type as a success or a denial.
func Outcome(t auth.EventType) string {
	switch t {
	case auth.EventLoginFailed, auth.EventTokenDenied:
		return OutcomeDenied
	default:
		return OutcomeSuccess
	}
}

// MetricsSink counts events by type and reason.
func MetricsSink(c Counter) auth.EventSink {
	return auth.EventSinkFunc(func(_ context.Context, e auth.Event) {
		c.RecordAuthEvent(string(e.Type), e.Reason)
	})
}

// MQTTSink publishes each event as JSON on inbotiq/auth/<type>.
// Publish failures are logged and dropped.
func MQTTSink(p Publisher, logger *slog.Logger) auth.EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	topics := mqtt.Topics{}
	return auth.EventSinkFunc(func(_ context.Context, e auth.Event) {
		if err := p.PublishJSON(topics.AuthEvent(string(e.Type)), e, false); err != nil {
			logger.Warn("publishing auth event failed", "type", e.Type, "error", err)
		}
	})
}

// InfluxSink writes an auth_events point per event.
func InfluxSink(w PointWriter) auth.EventSink {
	return auth.EventSinkFunc(func(_ context.Context, e auth.Event) {
		w.WriteAuthEvent(string(e.Type), Outcome(e.Type), string(e.Role), e.UserID, e.Timestamp)
	})
}

// AuditSink stores each event in the audit trail. Write failures are logged
// and dropped.
func AuditSink(w AuditWriter, logger *slog.Logger) auth.EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return auth.EventSinkFunc(func(ctx context.Context, e auth.Event) {
		entry := &audit.Entry{
			Action:    string(e.Type),
			Outcome:   Outcome(e.Type),
			UserID:    e.UserID,
			Role:      string(e.Role),
			Reason:    e.Reason,
			Source:    audit.SourceAPI,
			CreatedAt: e.Timestamp,
		}
		if e.Type == auth.EventAdminSeeded {
			entry.Source = audit.SourceSystem
		}

		writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditWriteTimeout)
		defer cancel()
		if err := w.Create(writeCtx, entry); err != nil {
			logger.Error("audit log write failed", "action", entry.Action, "error", err)
		}
	})
}
