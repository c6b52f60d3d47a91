package sensor

import (
	"sync"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
)

// Event is one debounced sensor reading delivered to bus subscribers.
type Event struct {
	DeviceID string
	Percent  int
}

// Listener receives bus events. Listeners are invoked synchronously from
// Publish and must not block.
type Listener func(Event)

// Percent converts a magnitude into the 0-100 signal exposed to listeners.
func Percent(magnitude int) int {
	p := magnitude * 20
	if p > 100 {
		p = 100
	}
	return p
}

// Subscription is a handle returned by Bus.Subscribe, used to unsubscribe.
type Subscription struct {
	deviceID string
	fn       Listener
}

// deviceState tracks the listeners and dedup state for one device. The
// last published percent lives here, not per listener: deduplication
// happens at the publish boundary, so every listener observes the same
// edge-triggered sequence.
type deviceState struct {
	mu        sync.Mutex
	listeners map[*Subscription]struct{}
	last      int
	published bool
}

// Bus routes magnitude changes to per-device listeners. It replaces the
// ambient callback table of earlier SDK generations with an explicit map
// owned by the bus; device entries are created lazily and removed by Drop
// when the owning facade disconnects.
//
// The device table is a lock-free concurrent map; per-device ordering is
// serialized by a device-level mutex.
type Bus struct {
	devices *hashmap.HashMap[string, *deviceState]
	logger  *logrus.Logger
}

// NewBus creates an empty event bus.
func NewBus(logger *logrus.Logger) *Bus {
	if logger == nil {
		logger = logrus.New()
	}
	return &Bus{
		devices: hashmap.New[string, *deviceState](),
		logger:  logger,
	}
}

func (b *Bus) state(deviceID string) *deviceState {
	if st, ok := b.devices.Get(deviceID); ok {
		return st
	}
	st := &deviceState{listeners: make(map[*Subscription]struct{})}
	if actual, loaded := b.devices.GetOrInsert(deviceID, st); loaded {
		return actual
	}
	return st
}

// Subscribe registers fn for events from deviceID and returns a handle for
// Unsubscribe. Multiple listeners per device are allowed. An empty deviceID
// returns nil (such events can never be published).
func (b *Bus) Subscribe(deviceID string, fn Listener) *Subscription {
	if deviceID == "" || fn == nil {
		return nil
	}
	sub := &Subscription{deviceID: deviceID, fn: fn}
	st := b.state(deviceID)
	st.mu.Lock()
	st.listeners[sub] = struct{}{}
	st.mu.Unlock()
	return sub
}

// Unsubscribe removes a previously registered listener. Unsubscribing nil or
// an already-removed subscription is a no-op; other listeners of the same
// device are unaffected.
func (b *Bus) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	st, ok := b.devices.Get(sub.deviceID)
	if !ok {
		return
	}
	st.mu.Lock()
	delete(st.listeners, sub)
	st.mu.Unlock()
}

// Publish converts magnitude to a percent and delivers it to every listener
// of deviceID, suppressing consecutive duplicates. The first publish for a
// device always fires. Publishing with an empty deviceID is a no-op.
func (b *Bus) Publish(deviceID string, magnitude int) {
	if deviceID == "" {
		return
	}
	percent := Percent(magnitude)
	st := b.state(deviceID)

	st.mu.Lock()
	if st.published && st.last == percent {
		st.mu.Unlock()
		return
	}
	st.last = percent
	st.published = true
	targets := make([]Listener, 0, len(st.listeners))
	for sub := range st.listeners {
		targets = append(targets, sub.fn)
	}
	st.mu.Unlock()

	b.logger.WithFields(logrus.Fields{
		"device":  deviceID,
		"percent": percent,
	}).Debug("Publishing sensor event")

	ev := Event{DeviceID: deviceID, Percent: percent}
	for _, fn := range targets {
		fn(ev)
	}
}

// Drop removes all listeners and dedup state for deviceID. The next publish
// after a Drop fires unconditionally, matching a fresh connection.
func (b *Bus) Drop(deviceID string) {
	b.devices.Del(deviceID)
}
