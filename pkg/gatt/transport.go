// Package gatt defines the transport contract the SDK consumes.
//
// The SDK never talks to a radio directly. Everything above this package
// addresses an already-paired peripheral through the Transport interface by
// (service UUID, characteristic UUID) pairs; the production implementation
// lives in internal/goble, and tests substitute a scripted fake.
package gatt

import (
	"context"
	"strings"
)

// NotificationHandler receives the raw payload of one characteristic
// notification. The slice is only valid for the duration of the call;
// handlers must copy it if they retain it.
type NotificationHandler func(data []byte)

// Transport is the capability contract for a connected BLE peripheral.
//
// All UUIDs are accepted in either dashed or compact form; implementations
// normalize them (see NormalizeUUID). Implementations must be safe for
// concurrent use: notification delivery may overlap with reads and writes.
type Transport interface {
	// Connect establishes a link to the peripheral identified by deviceID.
	// Fails with ErrDeviceUnreachable if the peripheral cannot be reached.
	Connect(ctx context.Context, deviceID string) error

	// Disconnect tears down the link. Disconnecting an unknown device is a no-op.
	Disconnect(deviceID string) error

	// IsConnected reports whether the link to deviceID is currently up.
	IsConnected(deviceID string) bool

	// Read performs a single characteristic read.
	Read(ctx context.Context, deviceID, serviceUUID, charUUID string) ([]byte, error)

	// Write performs a characteristic write with response. sizeHint carries the
	// intended payload length for transports that need it (variable-length
	// final OTA chunks); implementations may ignore it.
	Write(ctx context.Context, deviceID, serviceUUID, charUUID string, data []byte, sizeHint int) error

	// WriteNoResponse performs a fire-and-forget characteristic write.
	WriteNoResponse(ctx context.Context, deviceID, serviceUUID, charUUID string, data []byte) error

	// Subscribe registers for notifications on a characteristic. At most one
	// handler per (device, service, characteristic) triple.
	Subscribe(deviceID, serviceUUID, charUUID string, handler NotificationHandler) error

	// Unsubscribe removes a notification registration. Unsubscribing a
	// characteristic that was never subscribed is a no-op.
	Unsubscribe(deviceID, serviceUUID, charUUID string) error

	// NegotiateMTU requests an ATT MTU of desired bytes and returns the value
	// the peripheral granted. Transports that cannot negotiate return their
	// fixed MTU and ignore desired.
	NegotiateMTU(ctx context.Context, deviceID string, desired int) (int, error)
}

// NormalizeUUID converts a UUID string to the canonical lookup form
// (lowercase, no dashes). Handles both dashed and already-compact input.
func NormalizeUUID(uuid string) string {
	return strings.ToLower(strings.ReplaceAll(uuid, "-", ""))
}
