package goble

import (
	"fmt"
	"strings"

	"github.com/FeelRobotics/KiirooControlSDK/pkg/gatt"
)

// NormalizeError maps known go-ble error strings to the SDK's transport
// sentinels. It ensures consistent handling even if the upstream library
// changes messages slightly. Returns wrapped errors to preserve context.
func NormalizeError(err error) error {
	if err == nil {
		return nil
	}

	msg := err.Error()
	switch {
	case containsIgnoreCase(msg, "is Bluetooth turned on?"):
		return fmt.Errorf("%w: Bluetooth is turned off: %v", gatt.ErrDeviceUnreachable, err)
	case containsIgnoreCase(msg, "bluetooth is turned off"):
		return fmt.Errorf("%w: %v", gatt.ErrDeviceUnreachable, err)
	case containsIgnoreCase(msg, "device not connected"):
		return fmt.Errorf("%w: %v", gatt.ErrNotConnected, err)
	case containsIgnoreCase(msg, "disconnected"):
		return fmt.Errorf("%w: %v", gatt.ErrNotConnected, err)
	case containsIgnoreCase(msg, "connection canceled"):
		return fmt.Errorf("%w: %v", gatt.ErrNotConnected, err)
	default:
		return err
	}
}

// containsIgnoreCase checks the substring case-insensitively
func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
