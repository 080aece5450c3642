package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementAuthEvents = "auth_events"
)

// WriteAuthEvent records one authentication outcome.
//
// Tags are kept low-cardinality: event type, outcome and role. User IDs go in
// a field so they do not explode series count.
//
//	client.WriteAuthEvent("login_failed", "denied", "", "", time.Now())
func (c *Client) WriteAuthEvent(eventType, outcome, role, userID string, ts time.Time) {
	tags := map[string]string{
		"type":    eventType,
		"outcome": outcome,
	}
	if role != "" {
		tags["role"] = role
	}

	fields := map[string]interface{}{
		"count": 1,
	}
	if userID != "" {
		fields["user_id"] = userID
	}

	c.WritePointWithTime(MeasurementAuthEvents, tags, fields, ts)
}

// WritePoint writes a custom point stamped with the current time.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with a specific timestamp.
// Writes are dropped while disconnected.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
