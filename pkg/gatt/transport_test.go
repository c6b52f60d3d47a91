package gatt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeUUID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"AA00", "aa00"},
		{"aa00", "aa00"},
		{"6E400001-B5A3-F393-E0A9-E50E24DCCA9E", "6e400001b5a3f393e0a9e50e24dcca9e"},
		{"6e400001b5a3f393e0a9e50e24dcca9e", "6e400001b5a3f393e0a9e50e24dcca9e"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeUUID(tt.in), "input %q", tt.in)
	}
}
