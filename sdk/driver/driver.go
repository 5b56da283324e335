// Package driver defines the contract any MIDI backend must satisfy to
// serve as the transport for MidiSync/MultiSync and the sync-checker.
// Port enumeration, connection lifecycle, and virtual-port creation are
// all backend concerns; this package only names the shape, it never
// talks to hardware itself. See internal/mididrv for the default
// implementation and internal/midi/{mididarwin,midiwindows} for the
// degraded-mode fallback used when virtual ports are unavailable.
package driver

import "errors"

// ErrUnsupported is returned by adapters for operations their backend
// or platform cannot perform (e.g. virtual ports on a platform whose
// driver requires an installed loopback device).
var ErrUnsupported = errors.New("driver: operation not supported by this backend")

// PortHandle is an opaque, driver-defined identifier for an output
// port. Two PortInfo values are equal iff their handles are equal;
// names are cosmetic and may change across enumerations (ALSA renames
// ports on reconnect).
type PortHandle interface{}

// Connection is a single open output port. Send must not block longer
// than the time it takes the backend to hand the bytes to the OS; it
// is called from the single worker goroutine and must never be called
// concurrently with itself.
type Connection interface {
	Send(data []byte) error
	Close() error
}

// VirtualInput is a driver-created input endpoint that other
// applications can connect to as a source. Closing it tears down the
// endpoint and stops further callback invocations.
type VirtualInput interface {
	Close() error
}

// Driver enumerates and opens MIDI output ports, and creates virtual
// input ports for the sync-checker.
type Driver interface {
	// EnumerateOutputs returns the currently visible output ports.
	// The returned order is not significant; callers diff against
	// their own bookkeeping by handle.
	EnumerateOutputs() ([]PortHandle, error)

	// NameOf returns the backend's current display name for handle.
	NameOf(handle PortHandle) (string, error)

	// OpenOutput opens a sending connection to handle. clientName and
	// portLabel are advisory, passed through to the backend for
	// display in other applications' port lists.
	OpenOutput(handle PortHandle, clientName, portLabel string) (Connection, error)

	// CreateVirtualInput creates a new virtual input port named name.
	// cb is invoked on a backend-owned goroutine once per received
	// message, with micros the backend's callback timestamp (backend
	// epoch, not clock.Now()) and data the raw MIDI bytes. Returns
	// ErrUnsupported if the backend cannot create virtual ports.
	CreateVirtualInput(name string, cb func(micros int64, data []byte)) (VirtualInput, error)
}
