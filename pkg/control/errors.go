package control

import (
	"github.com/FeelRobotics/KiirooControlSDK/pkg/gatt"
	"github.com/FeelRobotics/KiirooControlSDK/pkg/ota"
	"github.com/FeelRobotics/KiirooControlSDK/pkg/sensor"
)

// The facade surfaces the same error kinds as the packages beneath it, so
// callers can match with errors.Is without importing every subpackage.
var (
	// ErrDeviceNotReady is returned by every operation that requires an
	// active verified connection when there is none.
	ErrDeviceNotReady = ota.ErrDeviceNotReady

	// ErrDeviceUnreachable is returned by Connect when the peripheral cannot
	// be reached.
	ErrDeviceUnreachable = gatt.ErrDeviceUnreachable

	// ErrInvalidAxis indicates an axis notification carried an unknown tag.
	ErrInvalidAxis = sensor.ErrInvalidAxis

	// ErrInvalidMTU indicates MTU negotiation produced a value too small to
	// carry any OTA payload.
	ErrInvalidMTU = ota.ErrInvalidMTU

	// ErrFlashUnverified indicates a firmware transfer completed but the
	// device did not come back after its reboot window.
	ErrFlashUnverified = ota.ErrFlashUnverified
)
