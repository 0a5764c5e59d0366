package mqtt

import "errors"

// Sentinel errors, checked with errors.Is.
var (
	// ErrNotConnected is returned while the broker connection is down.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed wraps a failed initial connection.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed wraps a rejected, oversized or unacknowledged publish.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrInvalidQoS is returned for a QoS other than 0, 1 or 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned for an empty topic or one with wildcards.
	ErrInvalidTopic = errors.New("mqtt: topic is empty or contains wildcards")
)
