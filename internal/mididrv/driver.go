// Package mididrv is the default driver.Driver implementation, backed
// by gitlab.com/gomidi/midi/v2 and its rtmididrv backend. Port handles
// are the library's own drivers.Out/drivers.In values, used directly
// as the opaque handle type the rest of the system never inspects.
//
// Grounded on the pack's odaacabeef-midi-cable example (port
// enumeration via drivers.Outs/Ins, virtual port creation via
// rtmididrv.Driver.OpenVirtualIn, Listen-based callback registration),
// generalized from that example's one-shot forwarding tool into a
// reusable driver.Driver.
package mididrv

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/polygon/midimaxe/sdk/driver"
)

// Driver is the rtmidi-backed driver.Driver implementation.
type Driver struct{}

// New constructs a Driver. rtmididrv registers itself as the process's
// default driver via its init(), so importing this package is enough
// to make it available through drivers.Get().
func New() *Driver {
	return &Driver{}
}

// EnumerateOutputs lists the currently visible output ports. Handles
// are the library's own drivers.Out values; two enumerations return
// equal handles for the same underlying port.
func (d *Driver) EnumerateOutputs() ([]driver.PortHandle, error) {
	outs, err := drivers.Outs()
	if err != nil {
		return nil, fmt.Errorf("mididrv: enumerate outputs: %w", err)
	}
	handles := make([]driver.PortHandle, len(outs))
	for i, out := range outs {
		handles[i] = out
	}
	return handles, nil
}

// NameOf returns the backend's display name for handle.
func (d *Driver) NameOf(handle driver.PortHandle) (string, error) {
	out, ok := handle.(drivers.Out)
	if !ok {
		return "", fmt.Errorf("mididrv: handle %v is not a drivers.Out", handle)
	}
	return out.String(), nil
}

// OpenOutput opens handle for sending. clientName/portLabel are
// advisory only; the rtmidi backend names connections after the
// port itself.
func (d *Driver) OpenOutput(handle driver.PortHandle, clientName, portLabel string) (driver.Connection, error) {
	out, ok := handle.(drivers.Out)
	if !ok {
		return nil, fmt.Errorf("mididrv: handle %v is not a drivers.Out", handle)
	}
	if err := out.Open(); err != nil {
		return nil, fmt.Errorf("mididrv: open output %q: %w", out.String(), err)
	}
	return &connection{out: out}, nil
}

// CreateVirtualInput creates a virtual input port and registers cb to
// be invoked for every received message. Returns driver.ErrUnsupported
// on backends that do not expose *rtmididrv.Driver (POSIX-only, per
// spec.md §6).
func (d *Driver) CreateVirtualInput(name string, cb func(micros int64, data []byte)) (driver.VirtualInput, error) {
	rt, ok := drivers.Get().(*rtmididrv.Driver)
	if !ok {
		return nil, driver.ErrUnsupported
	}
	in, err := rt.OpenVirtualIn(name)
	if err != nil {
		return nil, fmt.Errorf("mididrv: create virtual input %q: %w", name, err)
	}
	stopFn, err := in.Listen(func(msg []byte, timestampms int32) {
		cb(int64(timestampms)*1000, msg)
	}, drivers.ListenConfig{})
	if err != nil {
		_ = in.Close()
		return nil, fmt.Errorf("mididrv: listen on virtual input %q: %w", name, err)
	}
	return &virtualInput{in: in, stop: stopFn}, nil
}

type connection struct {
	out drivers.Out
}

func (c *connection) Send(data []byte) error { return c.out.Send(data) }
func (c *connection) Close() error           { return c.out.Close() }

type virtualInput struct {
	in   drivers.In
	stop func()
}

func (v *virtualInput) Close() error {
	v.stop()
	return v.in.Close()
}
