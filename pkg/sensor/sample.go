// Package sensor decodes the Control peripheral's tri-axis notifications into
// a bounded magnitude and fans the result out to subscribers per device.
package sensor

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidAxis indicates a notification carried an axis tag the decoder
// does not recognize. This is surfaced rather than ignored: an unknown tag
// means the peripheral firmware and this SDK disagree about the protocol.
var ErrInvalidAxis = errors.New("invalid axis")

// Axis identifies one of the three accelerometer axes.
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisZ:
		return "z"
	default:
		return fmt.Sprintf("axis(%d)", int(a))
	}
}

// MaxMagnitude caps the derived magnitude. The peripheral's useful dynamic
// range tops out well below the geometric maximum of three full-scale axes.
const MaxMagnitude = 5

// Sample holds the most recently observed value per axis. Each axis arrives
// in its own notification, so fields are updated one at a time; values are
// never reset except when the owning device reconnects.
type Sample struct {
	X, Y, Z uint8
}

// Apply updates the field for axis with value and returns the recomputed
// magnitude. Unknown axes fail with ErrInvalidAxis and leave the sample
// untouched.
func (s *Sample) Apply(axis Axis, value uint8) (int, error) {
	switch axis {
	case AxisX:
		s.X = value
	case AxisY:
		s.Y = value
	case AxisZ:
		s.Z = value
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidAxis, int(axis))
	}
	return s.Magnitude(), nil
}

// Magnitude returns min(round(sqrt(x²+y²+z²)), MaxMagnitude) for the current
// sample. It is always a pure function of the sample, never an average.
func (s *Sample) Magnitude() int {
	x, y, z := float64(s.X), float64(s.Y), float64(s.Z)
	m := int(math.Round(math.Sqrt(x*x + y*y + z*z)))
	if m > MaxMagnitude {
		m = MaxMagnitude
	}
	return m
}

// Reset zeroes all three axes. Called on reconnect; axes are never reset
// individually.
func (s *Sample) Reset() {
	s.X, s.Y, s.Z = 0, 0, 0
}
