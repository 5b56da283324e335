package contracts

// LegacyCapture is the degraded-mode input adapter used by the
// sync-checker on backends that cannot create virtual MIDI ports. The
// caller selects a named input device and receives every byte sequence
// the device delivers; it is responsible for recognizing the real-time
// bytes it cares about (see sdk/realtime) and ignoring the rest.
type LegacyCapture interface {
	// ListDevices lists the available input devices.
	ListDevices() ([]DeviceInfo, error)

	// SelectDevice connects to the device at the given index, as
	// returned by ListDevices. Replaces any previous connection.
	SelectDevice(deviceID int) error

	// StartCapture begins delivering received bytes to cb. cb receives
	// a microsecond timestamp for the byte(s) delivered and the raw
	// bytes of one received message. The timestamp should be the
	// backend's own event timestamp when the backend exposes one in a
	// known epoch; when no documented conversion to program time
	// exists, stamping arrival with the current program clock
	// (clock.Now()) is an acceptable substitute.
	StartCapture(cb func(micros int64, data []byte)) error

	// Stop disconnects the device and releases backend resources.
	Stop() error
}
