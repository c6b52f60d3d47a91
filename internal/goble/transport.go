// Package goble implements the SDK's gatt.Transport contract on top of
// github.com/go-ble/ble.
package goble

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/FeelRobotics/KiirooControlSDK/pkg/gatt"
)

// conn is the live state for one connected peripheral.
type conn struct {
	client  ble.Client
	profile *ble.Profile
	// subscribed characteristics, keyed by compact characteristic UUID
	subs map[string]*ble.Characteristic
}

// Transport is a gatt.Transport backed by go-ble. It owns the host BLE
// device (created lazily on first Connect) and one link per peripheral.
type Transport struct {
	logger *logrus.Logger

	initOnce sync.Once
	initErr  error

	mu    sync.Mutex
	conns map[string]*conn

	// writeMu serializes writes per transport; go-ble clients do not tolerate
	// interleaved writes on the same link.
	writeMu sync.Mutex
}

// NewTransport creates an unconnected transport.
func NewTransport(logger *logrus.Logger) *Transport {
	if logger == nil {
		logger = logrus.New()
	}
	return &Transport{
		logger: logger,
		conns:  make(map[string]*conn),
	}
}

func (t *Transport) init() error {
	t.initOnce.Do(func() {
		dev, err := DeviceFactory()
		if err != nil {
			t.initErr = NormalizeError(err)
			return
		}
		ble.SetDefaultDevice(dev)
	})
	return t.initErr
}

// Connect dials the peripheral and discovers its full profile.
func (t *Transport) Connect(ctx context.Context, deviceID string) error {
	if err := t.init(); err != nil {
		return fmt.Errorf("%w: %v", gatt.ErrDeviceUnreachable, err)
	}

	t.mu.Lock()
	if _, ok := t.conns[deviceID]; ok {
		t.mu.Unlock()
		return nil // already connected
	}
	t.mu.Unlock()

	t.logger.WithField("device", deviceID).Info("Connecting to BLE device")
	client, err := ble.Dial(ctx, ble.NewAddr(deviceID))
	if err != nil {
		return fmt.Errorf("%w: %v", gatt.ErrDeviceUnreachable, NormalizeError(err))
	}

	profile, err := client.DiscoverProfile(true)
	if err != nil {
		_ = client.CancelConnection()
		return fmt.Errorf("%w: profile discovery: %v", gatt.ErrDeviceUnreachable, NormalizeError(err))
	}

	t.mu.Lock()
	t.conns[deviceID] = &conn{
		client:  client,
		profile: profile,
		subs:    make(map[string]*ble.Characteristic),
	}
	t.mu.Unlock()

	t.logger.WithFields(logrus.Fields{
		"device":   deviceID,
		"services": len(profile.Services),
	}).Debug("Profile discovered")
	return nil
}

// Disconnect closes the link. Unknown devices are a no-op.
func (t *Transport) Disconnect(deviceID string) error {
	t.mu.Lock()
	c, ok := t.conns[deviceID]
	delete(t.conns, deviceID)
	t.mu.Unlock()
	if !ok {
		return nil
	}
	if err := c.client.CancelConnection(); err != nil {
		t.logger.WithError(err).WithField("device", deviceID).Warn("Error disconnecting from device")
	}
	return nil
}

// IsConnected reports whether a link to deviceID is currently held.
func (t *Transport) IsConnected(deviceID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.conns[deviceID]
	return ok
}

func (t *Transport) lookup(deviceID, serviceUUID, charUUID string) (*conn, *ble.Characteristic, error) {
	t.mu.Lock()
	c, ok := t.conns[deviceID]
	t.mu.Unlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", gatt.ErrNotConnected, deviceID)
	}

	wantSvc := gatt.NormalizeUUID(serviceUUID)
	wantChar := gatt.NormalizeUUID(charUUID)
	for _, svc := range c.profile.Services {
		if gatt.NormalizeUUID(svc.UUID.String()) != wantSvc {
			continue
		}
		for _, char := range svc.Characteristics {
			if gatt.NormalizeUUID(char.UUID.String()) == wantChar {
				return c, char, nil
			}
		}
	}
	return nil, nil, fmt.Errorf("characteristic %s/%s not found on %s", serviceUUID, charUUID, deviceID)
}

func (t *Transport) Read(_ context.Context, deviceID, serviceUUID, charUUID string) ([]byte, error) {
	c, char, err := t.lookup(deviceID, serviceUUID, charUUID)
	if err != nil {
		return nil, err
	}
	data, err := c.client.ReadCharacteristic(char)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gatt.ErrReadFailed, NormalizeError(err))
	}
	return data, nil
}

func (t *Transport) Write(_ context.Context, deviceID, serviceUUID, charUUID string, data []byte, _ int) error {
	return t.write(deviceID, serviceUUID, charUUID, data, false)
}

func (t *Transport) WriteNoResponse(_ context.Context, deviceID, serviceUUID, charUUID string, data []byte) error {
	return t.write(deviceID, serviceUUID, charUUID, data, true)
}

func (t *Transport) write(deviceID, serviceUUID, charUUID string, data []byte, noRsp bool) error {
	c, char, err := t.lookup(deviceID, serviceUUID, charUUID)
	if err != nil {
		return err
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := c.client.WriteCharacteristic(char, data, noRsp); err != nil {
		return fmt.Errorf("%w: %v", gatt.ErrWriteFailed, NormalizeError(err))
	}
	t.logger.WithFields(logrus.Fields{
		"device": deviceID,
		"char":   charUUID,
		"bytes":  len(data),
	}).Debug("Wrote characteristic")
	return nil
}

func (t *Transport) Subscribe(deviceID, serviceUUID, charUUID string, handler gatt.NotificationHandler) error {
	c, char, err := t.lookup(deviceID, serviceUUID, charUUID)
	if err != nil {
		return err
	}
	if err := c.client.Subscribe(char, false, func(data []byte) {
		handler(data)
	}); err != nil {
		return fmt.Errorf("%w: %v", gatt.ErrSubscribeFailed, NormalizeError(err))
	}
	t.mu.Lock()
	c.subs[gatt.NormalizeUUID(charUUID)] = char
	t.mu.Unlock()
	return nil
}

func (t *Transport) Unsubscribe(deviceID, serviceUUID, charUUID string) error {
	t.mu.Lock()
	c, ok := t.conns[deviceID]
	var char *ble.Characteristic
	if ok {
		char = c.subs[gatt.NormalizeUUID(charUUID)]
		delete(c.subs, gatt.NormalizeUUID(charUUID))
	}
	t.mu.Unlock()
	if !ok || char == nil {
		return nil
	}
	if err := c.client.Unsubscribe(char, false); err != nil {
		return fmt.Errorf("%w: unsubscribe: %v", gatt.ErrSubscribeFailed, NormalizeError(err))
	}
	return nil
}

// NegotiateMTU exchanges the ATT MTU with the peripheral.
func (t *Transport) NegotiateMTU(_ context.Context, deviceID string, desired int) (int, error) {
	t.mu.Lock()
	c, ok := t.conns[deviceID]
	t.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("%w: %s", gatt.ErrNotConnected, deviceID)
	}
	mtu, err := c.client.ExchangeMTU(desired)
	if err != nil {
		return 0, fmt.Errorf("exchanging MTU: %w", NormalizeError(err))
	}
	return mtu, nil
}

var _ gatt.Transport = (*Transport)(nil)
