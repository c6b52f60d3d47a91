// Package control is the public facade of the SDK: one Device per Control
// peripheral, composing the GATT transport, the axis decoder, the sensor
// event bus, and the OTA engine behind connect/info/stream/flash operations.
//
// A Device is not internally serialized. Operations may suspend on I/O but
// must not be invoked concurrently against the same device; that contract
// belongs to the caller. Sensor notifications are the one exception — they
// arrive on the transport's delivery goroutine at any time, including during
// a firmware transfer, and are routed through the bus without blocking the
// operation in flight.
package control

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/FeelRobotics/KiirooControlSDK/pkg/gatt"
	"github.com/FeelRobotics/KiirooControlSDK/pkg/ota"
	"github.com/FeelRobotics/KiirooControlSDK/pkg/sensor"
)

// Options configures a Device. The zero value is usable: PlatformIOS
// profile, a fresh logger, a private event bus, and default OTA timings.
type Options struct {
	// Profile selects the per-platform protocol variant (MTU handling, final
	// OTA write mode, disconnect intent).
	Profile ota.PlatformProfile

	// Logger receives structured logs; nil creates a default logger.
	Logger *logrus.Logger

	// Bus is the sensor event bus. Nil creates a bus private to this device;
	// supply a shared one to observe several devices through a single bus.
	Bus *sensor.Bus

	// OTA timing overrides; zero values use the ota package defaults.
	DesiredMTU  int
	SettleDelay time.Duration
	RebootDelay time.Duration
}

// Device is the facade for one Control peripheral.
type Device struct {
	id        string
	transport gatt.Transport
	profile   ota.PlatformProfile
	bus       *sensor.Bus
	engine    *ota.Engine
	logger    *logrus.Logger

	// sampleMu guards sample against concurrent axis notifications; the
	// transport may deliver different axes from different goroutines.
	sampleMu sync.Mutex
	sample   sensor.Sample
}

// NewDevice creates a facade for the peripheral identified by deviceID over
// the given transport. The transport link is not established until Connect.
func NewDevice(deviceID string, transport gatt.Transport, opts Options) *Device {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}
	bus := opts.Bus
	if bus == nil {
		bus = sensor.NewBus(logger)
	}
	engine := ota.NewEngine(transport, ota.Config{
		Profile:         opts.Profile,
		ServiceUUID:     ServiceUUID,
		DataCharUUID:    CharOTAData,
		ControlCharUUID: CharOTAControl,
		DesiredMTU:      opts.DesiredMTU,
		SettleDelay:     opts.SettleDelay,
		RebootDelay:     opts.RebootDelay,
	}, logger)

	return &Device{
		id:        deviceID,
		transport: transport,
		profile:   opts.Profile,
		bus:       bus,
		engine:    engine,
		logger:    logger,
	}
}

// ID returns the peripheral identifier this facade was created with.
func (d *Device) ID() string {
	return d.id
}

// Bus returns the sensor event bus delivering this device's percent signal.
func (d *Device) Bus() *sensor.Bus {
	return d.bus
}

// axisChars maps each axis to its notification characteristic.
var axisChars = []struct {
	axis sensor.Axis
	uuid string
}{
	{sensor.AxisX, CharAxisX},
	{sensor.AxisY, CharAxisY},
	{sensor.AxisZ, CharAxisZ},
}

// Connect establishes the link, resets the axis sample, and installs the
// three persistent axis subscriptions. A subscription failure tears the link
// back down so the facade never ends up half-connected.
func (d *Device) Connect(ctx context.Context) error {
	if err := d.transport.Connect(ctx, d.id); err != nil {
		return fmt.Errorf("connecting to %s: %w", d.id, err)
	}

	d.sampleMu.Lock()
	d.sample.Reset()
	d.sampleMu.Unlock()

	for _, ac := range axisChars {
		axis := ac.axis
		if err := d.transport.Subscribe(d.id, ServiceUUID, ac.uuid, func(data []byte) {
			d.handleAxisNotification(axis, data)
		}); err != nil {
			d.teardown()
			return fmt.Errorf("subscribing to axis %s: %w", axis, err)
		}
	}

	d.logger.WithField("device", d.id).Info("Device connected")
	return nil
}

// handleAxisNotification decodes one axis byte and publishes the resulting
// magnitude. Runs on the transport's notification goroutine.
func (d *Device) handleAxisNotification(axis sensor.Axis, data []byte) {
	if len(data) == 0 {
		return
	}
	d.sampleMu.Lock()
	magnitude, err := d.sample.Apply(axis, data[0])
	d.sampleMu.Unlock()
	if err != nil {
		d.logger.WithError(err).WithField("device", d.id).Warn("Dropping notification with unknown axis")
		return
	}
	d.bus.Publish(d.id, magnitude)
}

// Disconnect tears down the axis subscriptions, drops the device's bus
// state, and closes the link. On the iOS profile the peripheral is told
// first, so it can park its sensor loop instead of waiting out a timeout.
func (d *Device) Disconnect(ctx context.Context) error {
	if d.profile.SendsDisconnectIntent() && d.transport.IsConnected(d.id) {
		if err := d.transport.Write(ctx, d.id, ServiceUUID, CharDisconnect, []byte{cmdDisconnectIntent}, 1); err != nil {
			d.logger.WithError(err).WithField("device", d.id).Warn("Disconnect intent write failed")
		}
	}
	d.teardown()
	d.logger.WithField("device", d.id).Info("Device disconnected")
	return nil
}

func (d *Device) teardown() {
	for _, ac := range axisChars {
		if err := d.transport.Unsubscribe(d.id, ServiceUUID, ac.uuid); err != nil {
			d.logger.WithError(err).WithField("device", d.id).Debug("Axis unsubscribe failed")
		}
	}
	d.bus.Drop(d.id)
	if err := d.transport.Disconnect(d.id); err != nil {
		d.logger.WithError(err).WithField("device", d.id).Warn("Transport disconnect failed")
	}
}

// IsConnected reports whether the transport link is currently up. The state
// is polled from the transport, not cached.
func (d *Device) IsConnected() bool {
	return d.transport.IsConnected(d.id)
}

// Sample returns a copy of the most recent axis sample.
func (d *Device) Sample() sensor.Sample {
	d.sampleMu.Lock()
	defer d.sampleMu.Unlock()
	return d.sample
}

// readInfo is the shared path of every info getter: verify the connection,
// issue one characteristic read.
func (d *Device) readInfo(ctx context.Context, charUUID string) ([]byte, error) {
	if !d.transport.IsConnected(d.id) {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotReady, d.id)
	}
	data, err := d.transport.Read(ctx, d.id, ServiceUUID, charUUID)
	if err != nil {
		return nil, fmt.Errorf("reading characteristic %s: %w", charUUID, err)
	}
	return data, nil
}

// readString reads a characteristic and decodes each byte as one character
// code, concatenated in order. The peripheral stores its strings as raw
// character codes, not UTF-8.
func (d *Device) readString(ctx context.Context, charUUID string) (string, error) {
	data, err := d.readInfo(ctx, charUUID)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, c := range data {
		b.WriteRune(rune(c))
	}
	return b.String(), nil
}

// Battery returns the current battery level as reported by the peripheral.
func (d *Device) Battery(ctx context.Context) (int, error) {
	data, err := d.readInfo(ctx, CharBattery)
	if err != nil {
		return 0, err
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("%w: empty battery payload", gatt.ErrReadFailed)
	}
	return int(data[0]), nil
}

// FirmwareVersion returns the peripheral's firmware version string.
func (d *Device) FirmwareVersion(ctx context.Context) (string, error) {
	return d.readString(ctx, CharFirmwareVersion)
}

// HardwareVersion returns the peripheral's hardware revision string.
func (d *Device) HardwareVersion(ctx context.Context) (string, error) {
	return d.readString(ctx, CharHardwareVersion)
}

// SerialNumber returns the peripheral's serial number string.
func (d *Device) SerialNumber(ctx context.Context) (string, error) {
	return d.readString(ctx, CharSerialNumber)
}

// ModelNumber returns the peripheral's model number string.
func (d *Device) ModelNumber(ctx context.Context) (string, error) {
	return d.readString(ctx, CharModelNumber)
}

// ManufacturerName returns the peripheral's manufacturer name string.
func (d *Device) ManufacturerName(ctx context.Context) (string, error) {
	return d.readString(ctx, CharManufacturerName)
}

// DeviceName returns the peripheral's advertised device name string.
func (d *Device) DeviceName(ctx context.Context) (string, error) {
	return d.readString(ctx, CharDeviceName)
}

// TestDevice writes payload to the peripheral's test characteristic.
func (d *Device) TestDevice(ctx context.Context, payload []byte) error {
	if !d.transport.IsConnected(d.id) {
		return fmt.Errorf("%w: %s", ErrDeviceNotReady, d.id)
	}
	if err := d.transport.Write(ctx, d.id, ServiceUUID, CharTest, payload, len(payload)); err != nil {
		return fmt.Errorf("writing test characteristic: %w", err)
	}
	return nil
}

// FlashFirmware transfers image to the peripheral and waits for it to apply
// the update. Progress may be nil; see ota.ProgressFunc for the reporting
// contract. Sensor notifications keep flowing during the transfer.
func (d *Device) FlashFirmware(ctx context.Context, image []byte, progress ota.ProgressFunc) error {
	return d.engine.Flash(ctx, d.id, image, progress)
}

// FlashState returns the OTA engine's current protocol state.
func (d *Device) FlashState() ota.State {
	return d.engine.State()
}
