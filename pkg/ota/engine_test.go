package ota

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FeelRobotics/KiirooControlSDK/internal/gatttest"
	"github.com/FeelRobotics/KiirooControlSDK/pkg/gatt"
)

const (
	testDevice  = "AA:BB:CC:DD:EE:FF"
	testService = "aa00"
	testData    = "aa0a"
	testControl = "aa0b"
)

func testConfig(profile PlatformProfile) Config {
	return Config{
		Profile:         profile,
		ServiceUUID:     testService,
		DataCharUUID:    testData,
		ControlCharUUID: testControl,
		SettleDelay:     time.Millisecond,
		RebootDelay:     time.Millisecond,
	}
}

func connectedTransport(t *testing.T) *gatttest.Transport {
	t.Helper()
	tr := gatttest.New()
	tr.SetConnected(testDevice, true)
	return tr
}

func TestFlashHappyPathAndroid(t *testing.T) {
	tr := connectedTransport(t)
	tr.MTU = 253 // packetSize 250
	engine := NewEngine(tr, testConfig(PlatformAndroid), nil)

	image := make([]byte, 500)
	for i := range image {
		image[i] = byte(i)
	}

	var progress []int
	err := engine.Flash(context.Background(), testDevice, image, func(p int) {
		progress = append(progress, p)
	})
	require.NoError(t, err)
	assert.Equal(t, StateIdle, engine.State())

	// 500 bytes at packet size 250: progress fires at 0 and 50, never 100.
	assert.Equal(t, []int{0, 50}, progress)

	writes := tr.Writes()
	require.Len(t, writes, 5)

	// Header: [packetSize, transferModeFlag] on the data channel.
	assert.Equal(t, testData, writes[0].Char)
	assert.Equal(t, []byte{250, 0}, writes[0].Data)

	// Start command on the control channel.
	assert.Equal(t, testControl, writes[1].Char)
	assert.Equal(t, []byte{0x01}, writes[1].Data)

	// Two full chunks on the data channel, size hints matching chunk length.
	assert.Equal(t, testData, writes[2].Char)
	assert.Equal(t, image[:250], writes[2].Data)
	assert.Equal(t, 250, writes[2].SizeHint)
	assert.Equal(t, image[250:], writes[3].Data)
	assert.Equal(t, 250, writes[3].SizeHint)

	// Done command, acknowledged on Android.
	assert.Equal(t, testControl, writes[4].Char)
	assert.Equal(t, []byte{0x04}, writes[4].Data)
	assert.False(t, writes[4].NoResponse)

	// Device stayed connected, no reconnect was needed.
	assert.Equal(t, 0, tr.ConnectCalls)
}

func TestFlashIOSUsesFixedMTUAndNoResponseFinal(t *testing.T) {
	tr := connectedTransport(t)
	// A negotiation attempt would fail; iOS must never negotiate.
	tr.NegotiateErr = errors.New("negotiation not available")
	engine := NewEngine(tr, testConfig(PlatformIOS), nil)

	image := make([]byte, 10)
	var progress []int
	err := engine.Flash(context.Background(), testDevice, image, func(p int) {
		progress = append(progress, p)
	})
	require.NoError(t, err)

	// Single short chunk: only progress value is 0.
	assert.Equal(t, []int{0}, progress)

	writes := tr.Writes()
	require.Len(t, writes, 4)
	// Fixed MTU 23 gives packet size 20.
	assert.Equal(t, []byte{20, 0}, writes[0].Data)
	assert.Len(t, writes[2].Data, 10)

	done := writes[3]
	assert.Equal(t, []byte{0x04}, done.Data)
	assert.True(t, done.NoResponse)
}

func TestFlashAndroidModernSetsTransferModeFlag(t *testing.T) {
	tr := connectedTransport(t)
	tr.MTU = 253
	engine := NewEngine(tr, testConfig(PlatformAndroidModern), nil)

	require.NoError(t, engine.Flash(context.Background(), testDevice, []byte{1, 2, 3}, nil))
	writes := tr.Writes()
	require.NotEmpty(t, writes)
	assert.Equal(t, []byte{250, 1}, writes[0].Data)
}

func TestFlashNotConnectedFailsBeforeAnyWrite(t *testing.T) {
	tr := gatttest.New() // never connected
	engine := NewEngine(tr, testConfig(PlatformAndroid), nil)

	err := engine.Flash(context.Background(), testDevice, []byte{1}, nil)
	require.ErrorIs(t, err, ErrDeviceNotReady)
	assert.Empty(t, tr.Writes())
}

func TestFlashEmptyImageFailsBeforeAnyWrite(t *testing.T) {
	tr := connectedTransport(t)
	engine := NewEngine(tr, testConfig(PlatformAndroid), nil)

	err := engine.Flash(context.Background(), testDevice, nil, nil)
	require.ErrorIs(t, err, ErrDeviceNotReady)
	assert.Empty(t, tr.Writes())
}

func TestFlashRejectsTooSmallMTU(t *testing.T) {
	tr := connectedTransport(t)
	tr.MTU = 3 // packetSize 0
	engine := NewEngine(tr, testConfig(PlatformAndroid), nil)

	err := engine.Flash(context.Background(), testDevice, []byte{1, 2}, nil)
	require.ErrorIs(t, err, ErrInvalidMTU)
	assert.Equal(t, StateAborted, engine.State())
	assert.Empty(t, tr.Writes())
}

func TestFlashAbortsOnChunkWriteFailure(t *testing.T) {
	tr := connectedTransport(t)
	tr.MTU = 253
	tr.WriteErr = map[string]error{testData: errors.New("link dropped")}
	engine := NewEngine(tr, testConfig(PlatformAndroid), nil)

	err := engine.Flash(context.Background(), testDevice, make([]byte, 100), nil)
	require.ErrorIs(t, err, gatt.ErrWriteFailed)
	assert.Equal(t, StateAborted, engine.State())
}

func TestFlashAbortsOnStartAckReadFailure(t *testing.T) {
	tr := connectedTransport(t)
	tr.MTU = 253
	tr.ReadErr = map[string]error{testControl: errors.New("read timeout")}
	engine := NewEngine(tr, testConfig(PlatformAndroid), nil)

	err := engine.Flash(context.Background(), testDevice, make([]byte, 100), nil)
	require.ErrorIs(t, err, gatt.ErrReadFailed)
	assert.Equal(t, StateAborted, engine.State())
}

func TestFlashReconnectsOnceAfterReboot(t *testing.T) {
	tr := connectedTransport(t)
	tr.MTU = 253
	// The peripheral drops the link when it receives the done command.
	tr.AfterWrite = func(w gatttest.Write) {
		if w.Char == testControl && len(w.Data) == 1 && w.Data[0] == 0x04 {
			tr.SetConnected(testDevice, false)
		}
	}
	engine := NewEngine(tr, testConfig(PlatformAndroid), nil)

	err := engine.Flash(context.Background(), testDevice, make([]byte, 100), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, tr.ConnectCalls)
	assert.True(t, tr.IsConnected(testDevice))
}

func TestFlashUnverifiedWhenReconnectFails(t *testing.T) {
	tr := connectedTransport(t)
	tr.MTU = 253
	tr.AfterWrite = func(w gatttest.Write) {
		if w.Char == testControl && len(w.Data) == 1 && w.Data[0] == 0x04 {
			tr.SetConnected(testDevice, false)
			tr.ConnectErr = errors.New("device gone")
		}
	}
	engine := NewEngine(tr, testConfig(PlatformAndroid), nil)

	err := engine.Flash(context.Background(), testDevice, make([]byte, 100), nil)
	require.ErrorIs(t, err, ErrFlashUnverified)
	assert.Equal(t, 1, tr.ConnectCalls)
}

func TestFlashCancelledDuringSettleDelay(t *testing.T) {
	tr := connectedTransport(t)
	tr.MTU = 253
	cfg := testConfig(PlatformAndroid)
	cfg.SettleDelay = time.Minute
	engine := NewEngine(tr, cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := engine.Flash(ctx, testDevice, make([]byte, 100), nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateAborted, engine.State())
}

// Progress values are non-decreasing and equal round(i/total*100) for the
// 0-based index of each completed chunk.
func TestFlashProgressValues(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 20; i++ {
		tr := connectedTransport(t)
		// Keep MTU-3 under the one-byte cap so the expected packet size below
		// matches what the engine uses.
		tr.MTU = 20 + rng.Intn(230)
		engine := NewEngine(tr, testConfig(PlatformAndroid), nil)
		image := make([]byte, 1+rng.Intn(2000))

		var progress []int
		require.NoError(t, engine.Flash(context.Background(), testDevice, image, func(p int) {
			progress = append(progress, p)
		}))

		packetSize := tr.MTU - 3
		total := (len(image) + packetSize - 1) / packetSize
		require.Len(t, progress, total)
		prev := -1
		for idx, p := range progress {
			want := int(math.Round(float64(idx) / float64(total) * 100))
			assert.Equal(t, want, p)
			assert.GreaterOrEqual(t, p, prev)
			assert.Less(t, p, 100)
			prev = p
		}
	}
}
