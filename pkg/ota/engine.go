// Package ota drives the Control peripheral's firmware-update protocol:
// MTU negotiation, image chunking, the start/stream/finalize control
// sequence, and post-reboot verification.
package ota

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/FeelRobotics/KiirooControlSDK/pkg/gatt"
)

// OTA control channel command bytes. Fixed by the peripheral firmware.
const (
	cmdStart byte = 0x01
	cmdDone  byte = 0x04
)

// attHeaderOverhead is reserved out of every negotiated MTU for ATT framing.
const attHeaderOverhead = 3

// State is the engine's position in the transfer protocol.
type State int32

const (
	StateIdle State = iota
	StateNegotiatingMTU
	StateSendingHeader
	StateAwaitingStartAck
	StateStreaming
	StateFinalizing
	StateAwaitingReboot
	StateVerifying
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateNegotiatingMTU:
		return "negotiating-mtu"
	case StateSendingHeader:
		return "sending-header"
	case StateAwaitingStartAck:
		return "awaiting-start-ack"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateAwaitingReboot:
		return "awaiting-reboot"
	case StateVerifying:
		return "verifying"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ProgressFunc receives the transfer percentage after each completed chunk.
// The reported value is round(i/total*100) for the 0-based chunk index i, so
// the final callback arrives before the last chunk completes and never
// reaches 100. Callers wanting a completion signal should use Flash's return.
type ProgressFunc func(percent int)

// Config carries the addressing and timing the engine needs. Addressing is
// injected by the facade so this package stays independent of the Control
// service layout.
type Config struct {
	Profile PlatformProfile

	// OTA channel addressing.
	ServiceUUID     string
	DataCharUUID    string
	ControlCharUUID string

	// DesiredMTU is requested from negotiating transports. It is capped so
	// the resulting packet size always fits the one-byte header field.
	DesiredMTU int

	// SettleDelay is the grace period after the header and start writes; the
	// peripheral needs it to prepare its flash buffer. Not a workaround.
	SettleDelay time.Duration

	// RebootDelay is how long to wait for the peripheral to apply the image
	// and reboot before verification.
	RebootDelay time.Duration
}

// Default engine timings. Overridable per Config.
const (
	// DefaultDesiredMTU keeps packetSize = MTU-3 within one byte.
	DefaultDesiredMTU  = 258
	DefaultSettleDelay = 2 * time.Second
	DefaultRebootDelay = 10 * time.Second
)

// session is the ephemeral state of one Flash call. It is created fresh each
// call and never survives it; a failed transfer is not resumable.
type session struct {
	mtu        int
	packetSize int
	chunks     [][]byte
}

// Engine executes firmware transfers over an injected transport.
//
// An Engine runs one transfer at a time; callers must not invoke Flash
// concurrently for the same device. State is exposed for observability only.
type Engine struct {
	transport gatt.Transport
	cfg       Config
	logger    *logrus.Logger
	state     atomic.Int32
}

// NewEngine creates an engine over transport. Zero timing fields in cfg are
// replaced with the package defaults.
func NewEngine(transport gatt.Transport, cfg Config, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.DesiredMTU == 0 {
		cfg.DesiredMTU = DefaultDesiredMTU
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	if cfg.RebootDelay == 0 {
		cfg.RebootDelay = DefaultRebootDelay
	}
	return &Engine{
		transport: transport,
		cfg:       cfg,
		logger:    logger,
	}
}

// State returns the engine's current protocol state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
}

// Flash transfers image to deviceID and waits for the peripheral to apply it.
//
// The image is treated as immutable; progress may be nil. Any transport
// failure aborts the whole transfer — partial progress is not resumable and a
// retry restarts from MTU negotiation. A return of ErrFlashUnverified means
// the transfer itself completed but the peripheral did not come back within
// the reboot window.
func (e *Engine) Flash(ctx context.Context, deviceID string, image []byte, progress ProgressFunc) error {
	if !e.transport.IsConnected(deviceID) {
		return fmt.Errorf("%w: no active connection for %s", ErrDeviceNotReady, deviceID)
	}
	if len(image) == 0 {
		return fmt.Errorf("%w: empty firmware image", ErrDeviceNotReady)
	}

	log := e.logger.WithFields(logrus.Fields{
		"device":  deviceID,
		"size":    len(image),
		"profile": e.cfg.Profile.String(),
	})
	log.Info("Starting firmware transfer")

	sess, err := e.negotiate(ctx, deviceID, image)
	if err != nil {
		return e.abort(err)
	}
	log.WithFields(logrus.Fields{
		"mtu":        sess.mtu,
		"packetSize": sess.packetSize,
		"chunks":     len(sess.chunks),
	}).Debug("Transfer session prepared")

	if err := e.sendHeader(ctx, deviceID, sess); err != nil {
		return e.abort(err)
	}
	if err := e.requestStart(ctx, deviceID); err != nil {
		return e.abort(err)
	}
	if err := e.stream(ctx, deviceID, sess, progress); err != nil {
		return e.abort(err)
	}
	if err := e.finalize(ctx, deviceID); err != nil {
		return e.abort(err)
	}

	e.setState(StateAwaitingReboot)
	log.WithField("delay", e.cfg.RebootDelay).Debug("Waiting for device reboot")
	if err := sleep(ctx, e.cfg.RebootDelay); err != nil {
		return e.abort(err)
	}

	if err := e.verify(ctx, deviceID); err != nil {
		e.setState(StateIdle)
		return err
	}

	e.setState(StateIdle)
	log.Info("Firmware transfer complete")
	return nil
}

// negotiate resolves the MTU per the platform profile and chunks the image.
// The packet size is fixed here and never renegotiated mid-transfer.
func (e *Engine) negotiate(ctx context.Context, deviceID string, image []byte) (*session, error) {
	e.setState(StateNegotiatingMTU)

	mtu := FixedMTUiOS
	if e.cfg.Profile.NegotiatesMTU() {
		negotiated, err := e.transport.NegotiateMTU(ctx, deviceID, e.cfg.DesiredMTU)
		if err != nil {
			return nil, fmt.Errorf("negotiating MTU: %w", err)
		}
		mtu = negotiated
	}

	packetSize := mtu - attHeaderOverhead
	if packetSize < 1 {
		return nil, fmt.Errorf("%w: mtu=%d", ErrInvalidMTU, mtu)
	}
	// The header announces the packet size in a single byte.
	if packetSize > 255 {
		packetSize = 255
	}

	return &session{
		mtu:        mtu,
		packetSize: packetSize,
		chunks:     ChunkImage(image, packetSize),
	}, nil
}

// sendHeader writes [packetSize, transferModeFlag] to the data channel and
// gives the peripheral time to prepare its flash buffer.
func (e *Engine) sendHeader(ctx context.Context, deviceID string, sess *session) error {
	e.setState(StateSendingHeader)
	if !e.transport.IsConnected(deviceID) {
		return fmt.Errorf("%w: connection lost before header", ErrDeviceNotReady)
	}

	header := []byte{byte(sess.packetSize), e.cfg.Profile.TransferModeFlag()}
	if err := e.transport.Write(ctx, deviceID, e.cfg.ServiceUUID, e.cfg.DataCharUUID, header, len(header)); err != nil {
		return fmt.Errorf("writing OTA header: %w", err)
	}
	return sleep(ctx, e.cfg.SettleDelay)
}

// requestStart issues the start command and reads the control channel back.
// The peripheral firmware defines no acknowledgment payload, so the read's
// value is discarded; a readable control channel is the go signal, a failed
// read is fatal.
func (e *Engine) requestStart(ctx context.Context, deviceID string) error {
	e.setState(StateAwaitingStartAck)
	if !e.transport.IsConnected(deviceID) {
		return fmt.Errorf("%w: connection lost before start", ErrDeviceNotReady)
	}

	if err := e.transport.Write(ctx, deviceID, e.cfg.ServiceUUID, e.cfg.ControlCharUUID, []byte{cmdStart}, 1); err != nil {
		return fmt.Errorf("writing start command: %w", err)
	}
	if err := sleep(ctx, e.cfg.SettleDelay); err != nil {
		return err
	}
	if _, err := e.transport.Read(ctx, deviceID, e.cfg.ServiceUUID, e.cfg.ControlCharUUID); err != nil {
		return fmt.Errorf("reading start acknowledgment: %w", err)
	}
	return nil
}

// stream writes every chunk in order, reporting progress after each one.
func (e *Engine) stream(ctx context.Context, deviceID string, sess *session, progress ProgressFunc) error {
	e.setState(StateStreaming)
	if !e.transport.IsConnected(deviceID) {
		return fmt.Errorf("%w: connection lost before streaming", ErrDeviceNotReady)
	}

	total := len(sess.chunks)
	for i, chunk := range sess.chunks {
		if err := e.transport.Write(ctx, deviceID, e.cfg.ServiceUUID, e.cfg.DataCharUUID, chunk, len(chunk)); err != nil {
			return fmt.Errorf("writing chunk %d/%d: %w", i+1, total, err)
		}
		if progress != nil {
			progress(int(math.Round(float64(i) / float64(total) * 100)))
		}
	}
	return nil
}

// finalize sends the completion command. iOS targets use a fire-and-forget
// write: the peripheral starts rebooting immediately and an acknowledged
// write would race the link teardown.
func (e *Engine) finalize(ctx context.Context, deviceID string) error {
	e.setState(StateFinalizing)

	done := []byte{cmdDone}
	if e.cfg.Profile.FinalWriteNoResponse() {
		if err := e.transport.WriteNoResponse(ctx, deviceID, e.cfg.ServiceUUID, e.cfg.ControlCharUUID, done); err != nil {
			return fmt.Errorf("writing done command: %w", err)
		}
		return nil
	}
	if err := e.transport.Write(ctx, deviceID, e.cfg.ServiceUUID, e.cfg.ControlCharUUID, done, 1); err != nil {
		return fmt.Errorf("writing done command: %w", err)
	}
	return nil
}

// verify re-checks the link after the reboot window, attempting exactly one
// reconnect. The transfer is not retried: if the reconnect fails we cannot
// tell an applied-then-dropped link from a failed apply, so the distinct
// ErrFlashUnverified is surfaced instead of a transfer error.
func (e *Engine) verify(ctx context.Context, deviceID string) error {
	e.setState(StateVerifying)

	if e.transport.IsConnected(deviceID) {
		return nil
	}
	e.logger.WithField("device", deviceID).Debug("Device disconnected after reboot, attempting reconnect")
	if err := e.transport.Connect(ctx, deviceID); err != nil {
		return fmt.Errorf("%w: %v", ErrFlashUnverified, err)
	}
	return nil
}

func (e *Engine) abort(err error) error {
	e.setState(StateAborted)
	e.logger.WithError(err).Error("Firmware transfer aborted")
	return err
}

// sleep is a context-cancellable delay. The protocol's settling periods are
// mandatory, but a caller tearing down the context should not be held
// hostage by them.
func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
