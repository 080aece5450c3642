package mqtt

import "errors"

// Sentinel errors; match with errors.Is.
var (
	ErrNotConnected     = errors.New("mqtt: client not connected")
	ErrConnectionFailed = errors.New("mqtt: connection failed")
	ErrPublishFailed    = errors.New("mqtt: publish failed")

	// Publish argument errors. Nothing is sent to the broker.
	ErrInvalidQoS      = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")
	ErrInvalidTopic    = errors.New("mqtt: topic must be non-empty and free of wildcards")
	ErrPayloadTooLarge = errors.New("mqtt: payload too large")
)
