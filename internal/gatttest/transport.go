// Package gatttest provides a scripted in-memory gatt.Transport for tests:
// per-characteristic read values, an ordered write journal, notification
// injection, and fault injection points for every operation.
package gatttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/FeelRobotics/KiirooControlSDK/pkg/gatt"
)

type key struct {
	device  string
	service string
	char    string
}

func newKey(device, service, char string) key {
	return key{
		device:  device,
		service: gatt.NormalizeUUID(service),
		char:    gatt.NormalizeUUID(char),
	}
}

// Write is one journaled write operation.
type Write struct {
	DeviceID   string
	Service    string
	Char       string
	Data       []byte
	SizeHint   int
	NoResponse bool
}

// Transport is a scripted gatt.Transport. The zero value is not usable; use
// New. All methods are safe for concurrent use.
type Transport struct {
	mu        sync.Mutex
	connected map[string]bool
	reads     map[key][]byte
	handlers  map[key]gatt.NotificationHandler
	writes    []Write

	// MTU is returned by NegotiateMTU regardless of the desired value.
	MTU int

	// Fault injection. Nil means the operation succeeds.
	ConnectErr   error
	ReadErr      map[string]error // keyed by characteristic UUID (compact form)
	WriteErr     map[string]error
	SubscribeErr error
	NegotiateErr error

	// AfterWrite, when set, runs after each successful journaled write. Tests
	// use it to flip connection state mid-protocol (e.g. reboot after the OTA
	// done command).
	AfterWrite func(w Write)

	// ConnectCalls counts Connect invocations, including reconnects.
	ConnectCalls int
}

// New returns a disconnected transport with a 258-byte MTU.
func New() *Transport {
	return &Transport{
		connected: make(map[string]bool),
		reads:     make(map[key][]byte),
		handlers:  make(map[key]gatt.NotificationHandler),
		MTU:       258,
	}
}

// SetRead scripts the value returned by Read for one characteristic.
func (t *Transport) SetRead(deviceID, service, char string, value []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reads[newKey(deviceID, service, char)] = value
}

// SetConnected forces the connection state without going through Connect.
func (t *Transport) SetConnected(deviceID string, up bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected[deviceID] = up
}

// Writes returns a snapshot of the write journal in emission order.
func (t *Transport) Writes() []Write {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Write, len(t.writes))
	copy(out, t.writes)
	return out
}

// Notify injects a notification as if the peripheral had sent one.
// Returns false if nothing is subscribed to the characteristic.
func (t *Transport) Notify(deviceID, service, char string, data []byte) bool {
	t.mu.Lock()
	h, ok := t.handlers[newKey(deviceID, service, char)]
	t.mu.Unlock()
	if !ok || h == nil {
		return false
	}
	h(data)
	return true
}

// Subscribed reports whether a handler is installed for the characteristic.
func (t *Transport) Subscribed(deviceID, service, char string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.handlers[newKey(deviceID, service, char)]
	return ok
}

func (t *Transport) Connect(_ context.Context, deviceID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ConnectCalls++
	if t.ConnectErr != nil {
		return fmt.Errorf("%w: %v", gatt.ErrDeviceUnreachable, t.ConnectErr)
	}
	t.connected[deviceID] = true
	return nil
}

func (t *Transport) Disconnect(deviceID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connected[deviceID] = false
	return nil
}

func (t *Transport) IsConnected(deviceID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected[deviceID]
}

func (t *Transport) Read(_ context.Context, deviceID, service, char string) ([]byte, error) {
	t.mu.Lock()
	k := newKey(deviceID, service, char)
	if err, ok := t.ReadErr[k.char]; ok && err != nil {
		t.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", gatt.ErrReadFailed, err)
	}
	value := t.reads[k]
	t.mu.Unlock()
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (t *Transport) Write(_ context.Context, deviceID, service, char string, data []byte, sizeHint int) error {
	return t.journal(deviceID, service, char, data, sizeHint, false)
}

func (t *Transport) WriteNoResponse(_ context.Context, deviceID, service, char string, data []byte) error {
	return t.journal(deviceID, service, char, data, len(data), true)
}

func (t *Transport) journal(deviceID, service, char string, data []byte, sizeHint int, noResponse bool) error {
	k := newKey(deviceID, service, char)
	t.mu.Lock()
	if err, ok := t.WriteErr[k.char]; ok && err != nil {
		t.mu.Unlock()
		return fmt.Errorf("%w: %v", gatt.ErrWriteFailed, err)
	}
	w := Write{
		DeviceID:   deviceID,
		Service:    k.service,
		Char:       k.char,
		Data:       append([]byte(nil), data...),
		SizeHint:   sizeHint,
		NoResponse: noResponse,
	}
	t.writes = append(t.writes, w)
	after := t.AfterWrite
	t.mu.Unlock()
	if after != nil {
		after(w)
	}
	return nil
}

func (t *Transport) Subscribe(deviceID, service, char string, handler gatt.NotificationHandler) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.SubscribeErr != nil {
		return fmt.Errorf("%w: %v", gatt.ErrSubscribeFailed, t.SubscribeErr)
	}
	t.handlers[newKey(deviceID, service, char)] = handler
	return nil
}

func (t *Transport) Unsubscribe(deviceID, service, char string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.handlers, newKey(deviceID, service, char))
	return nil
}

func (t *Transport) NegotiateMTU(_ context.Context, _ string, _ int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.NegotiateErr != nil {
		return 0, t.NegotiateErr
	}
	return t.MTU, nil
}

var _ gatt.Transport = (*Transport)(nil)
