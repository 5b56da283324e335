//go:build !darwin
// +build !darwin

package mididarwin

import (
	"fmt"

	"github.com/polygon/midimaxe/sdk/contracts"
)

// Capture is a no-op stand-in on non-Darwin platforms so callers can
// reference mididarwin.New unconditionally and fail at call time
// instead of at build time.
type Capture struct {
	logger contracts.Logger
}

func New(opts ...contracts.LegacyCaptureOption) (contracts.LegacyCapture, error) {
	options := contracts.LegacyCaptureOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger != nil {
		options.Logger.Warn("CoreMIDI legacy capture requested on a non-Darwin build")
	}
	return &Capture{logger: options.Logger}, nil
}

func (m *Capture) ListDevices() ([]contracts.DeviceInfo, error) {
	return nil, fmt.Errorf("mididarwin: CoreMIDI capture is not available on this platform")
}

func (m *Capture) SelectDevice(deviceID int) error {
	return fmt.Errorf("mididarwin: CoreMIDI capture is not available on this platform")
}

func (m *Capture) StartCapture(cb func(micros int64, data []byte)) error {
	return fmt.Errorf("mididarwin: CoreMIDI capture is not available on this platform")
}

func (m *Capture) Stop() error {
	return nil
}
