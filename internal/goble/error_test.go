package goble

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FeelRobotics/KiirooControlSDK/pkg/gatt"
)

func TestNormalizeError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{
			name: "bluetooth off",
			in:   errors.New("central manager has invalid state: have=4 want=5: is Bluetooth turned on?"),
			want: gatt.ErrDeviceUnreachable,
		},
		{
			name: "disconnected",
			in:   errors.New("peer disconnected"),
			want: gatt.ErrNotConnected,
		},
		{
			name: "not connected",
			in:   errors.New("Device Not Connected"),
			want: gatt.ErrNotConnected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeError(tt.in)
			require.Error(t, got)
			assert.ErrorIs(t, got, tt.want)
		})
	}
}

func TestNormalizeErrorPassThrough(t *testing.T) {
	assert.Nil(t, NormalizeError(nil))

	in := errors.New("some other failure")
	assert.Equal(t, in, NormalizeError(in))
}
