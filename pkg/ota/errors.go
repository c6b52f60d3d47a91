package ota

import "errors"

var (
	// ErrDeviceNotReady indicates a transfer was requested without an active
	// verified connection, or with an empty firmware image.
	ErrDeviceNotReady = errors.New("device not ready")

	// ErrInvalidMTU indicates the negotiated MTU leaves no room for payload
	// after transport framing.
	ErrInvalidMTU = errors.New("negotiated MTU too small")

	// ErrFlashUnverified indicates the transfer completed but the peripheral
	// could not be reached again after its reboot window. The image may well
	// have been applied; callers should rescan rather than re-flash blindly.
	ErrFlashUnverified = errors.New("flash completed but device did not reconnect")
)
