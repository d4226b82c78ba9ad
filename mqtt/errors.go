package mqtt

import "errors"

// Use errors.Is() to check for these errors in calling code.
var (
	// ErrNotConnected is returned when publishing while the broker connection is down.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed is returned when the initial connection attempt fails.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed is returned when a publish operation fails or times out.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrInvalidConfig is returned by [Config.Validate].
	ErrInvalidConfig = errors.New("mqtt: invalid config")
)
