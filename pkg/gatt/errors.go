package gatt

import "errors"

// Transport-level errors. Implementations wrap the underlying stack's error
// with one of these sentinels so callers can match with errors.Is regardless
// of which stack is in use.
var (
	// ErrDeviceUnreachable indicates a connect attempt failed.
	ErrDeviceUnreachable = errors.New("device unreachable")

	// ErrNotConnected indicates an operation was attempted on a device that
	// has no active link.
	ErrNotConnected = errors.New("device not connected")

	// ErrReadFailed indicates a characteristic read failed.
	ErrReadFailed = errors.New("characteristic read failed")

	// ErrWriteFailed indicates a characteristic write failed.
	ErrWriteFailed = errors.New("characteristic write failed")

	// ErrSubscribeFailed indicates a notification subscription failed.
	ErrSubscribeFailed = errors.New("characteristic subscribe failed")
)
