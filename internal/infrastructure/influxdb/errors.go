package influxdb

import "errors"

// Sentinel errors, checked with errors.Is.
var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrConnectionFailed wraps a failed initial ping.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrNotConnected is returned after Close or before Connect.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrWriteFailed wraps a rejected or timed out point write.
	ErrWriteFailed = errors.New("influxdb: write failed")
)
