package ota

import "fmt"

// PlatformProfile captures the per-platform protocol variations in one value
// resolved before a transfer starts. Earlier SDK generations re-checked the
// host OS at several points mid-protocol; the engine instead consults the
// profile it was constructed with.
type PlatformProfile int

const (
	// PlatformIOS uses a fixed MTU (the host stack does not expose MTU
	// negotiation), finalizes with a write-without-response, and announces
	// disconnect intent before tearing down the link.
	PlatformIOS PlatformProfile = iota

	// PlatformAndroid negotiates the MTU and finalizes with an acknowledged write.
	PlatformAndroid

	// PlatformAndroidModern is PlatformAndroid plus the fast-transfer flag in
	// the OTA header, supported by peripheral firmware paired with Android 14+.
	PlatformAndroidModern
)

// FixedMTUiOS is the ATT MTU assumed on iOS, where the stack gives no
// negotiation hook. 23 is the BLE baseline every peripheral must accept.
const FixedMTUiOS = 23

func (p PlatformProfile) String() string {
	switch p {
	case PlatformIOS:
		return "ios"
	case PlatformAndroid:
		return "android"
	case PlatformAndroidModern:
		return "android-modern"
	default:
		return fmt.Sprintf("platform(%d)", int(p))
	}
}

// ParsePlatformProfile converts a configuration string into a profile.
func ParsePlatformProfile(s string) (PlatformProfile, error) {
	switch s {
	case "ios":
		return PlatformIOS, nil
	case "android":
		return PlatformAndroid, nil
	case "android-modern":
		return PlatformAndroidModern, nil
	default:
		return 0, fmt.Errorf("unknown platform profile: %q (must be ios, android, or android-modern)", s)
	}
}

// NegotiatesMTU reports whether the profile performs MTU negotiation.
// PlatformIOS skips negotiation and uses FixedMTUiOS.
func (p PlatformProfile) NegotiatesMTU() bool {
	return p != PlatformIOS
}

// TransferModeFlag is the second header byte: 1 selects the fast-transfer
// mode on firmware that supports it, 0 everywhere else.
func (p PlatformProfile) TransferModeFlag() byte {
	if p == PlatformAndroidModern {
		return 1
	}
	return 0
}

// FinalWriteNoResponse reports whether the completion command is sent as a
// write-without-response.
func (p PlatformProfile) FinalWriteNoResponse() bool {
	return p == PlatformIOS
}

// SendsDisconnectIntent reports whether the facade should announce disconnect
// intent to the peripheral before closing the link.
func (p PlatformProfile) SendsDisconnectIntent() bool {
	return p == PlatformIOS
}
