package model

import "errors"

var (
	// ErrNotConnected is returned when a read or write is attempted while the
	// serial link is not in the connected state.
	ErrNotConnected = errors.New("uart link is not connected")

	// ErrOpenFailed is returned when the serial device could not be opened.
	ErrOpenFailed = errors.New("failed to open uart device")

	// ErrWriteTimeout is returned when a write does not complete within the
	// configured write timeout.
	ErrWriteTimeout = errors.New("uart write timed out")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("invalid configuration")
)
