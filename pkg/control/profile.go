package control

// Fixed protocol addressing for the Control peripheral. All values are
// 16-bit short UUIDs in compact lowercase form; the peripheral firmware
// defines them and they must not drift.
const (
	// ServiceUUID is the single control service hosting every characteristic
	// the SDK touches.
	ServiceUUID = "aa00"

	CharDeviceName       = "aa01"
	CharManufacturerName = "aa02"
	CharModelNumber      = "aa03"
	CharSerialNumber     = "aa04"
	CharFirmwareVersion  = "aa05"
	CharHardwareVersion  = "aa06"
	CharBattery          = "aa07"
	CharTest             = "aa08"

	// CharDisconnect receives the disconnect-intent byte. Only the iOS
	// profile writes it; other platforms just drop the link.
	CharDisconnect = "aa09"

	CharOTAData    = "aa0a"
	CharOTAControl = "aa0b"

	// Per-axis accelerometer notification channels. Each notification carries
	// a single unsigned byte for its axis.
	CharAxisX = "aa0c"
	CharAxisY = "aa0d"
	CharAxisZ = "aa0e"
)

// cmdDisconnectIntent is written to CharDisconnect ahead of link teardown so
// the peripheral can park its sensor loop instead of timing out.
const cmdDisconnectIntent byte = 0x01
