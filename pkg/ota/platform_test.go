package ota

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlatformProfile(t *testing.T) {
	tests := []struct {
		in      string
		want    PlatformProfile
		wantErr bool
	}{
		{"ios", PlatformIOS, false},
		{"android", PlatformAndroid, false},
		{"android-modern", PlatformAndroidModern, false},
		{"windows", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePlatformProfile(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestPlatformProfileVariants(t *testing.T) {
	assert.False(t, PlatformIOS.NegotiatesMTU())
	assert.True(t, PlatformAndroid.NegotiatesMTU())
	assert.True(t, PlatformAndroidModern.NegotiatesMTU())

	assert.Equal(t, byte(0), PlatformIOS.TransferModeFlag())
	assert.Equal(t, byte(0), PlatformAndroid.TransferModeFlag())
	assert.Equal(t, byte(1), PlatformAndroidModern.TransferModeFlag())

	assert.True(t, PlatformIOS.FinalWriteNoResponse())
	assert.False(t, PlatformAndroid.FinalWriteNoResponse())

	assert.True(t, PlatformIOS.SendsDisconnectIntent())
	assert.False(t, PlatformAndroid.SendsDisconnectIntent())
	assert.False(t, PlatformAndroidModern.SendsDisconnectIntent())
}
