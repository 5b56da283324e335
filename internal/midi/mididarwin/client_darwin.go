//go:build darwin
// +build darwin

// Package mididarwin is the degraded-mode contracts.LegacyCapture
// adapter for CoreMIDI, used when a platform's driver.Driver cannot
// create virtual input ports (spec.md §6: the sync-checker falls back
// to listening on a named physical/loopback input instead).
package mididarwin

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/polygon/midimaxe/sdk/clock"
	"github.com/polygon/midimaxe/sdk/contracts"
	"github.com/youpy/go-coremidi"
)

var (
	ErrNoMIDIDevices       = errors.New("no MIDI devices found")
	ErrInvalidMIDIDevice   = errors.New("invalid MIDI device")
	ErrMIDIConnectionError = errors.New("error connecting to MIDI device")
	ErrCreateInputPort     = errors.New("error creating input port")
)

// internalPortConnection handles port disconnection.
type internalPortConnection interface {
	Disconnect()
}

// Capture is the CoreMIDI-backed contracts.LegacyCapture.
type Capture struct {
	logger     contracts.Logger
	clientName string
	portLabel  string

	client    coremidi.Client
	inputPort coremidi.InputPort
	portConn  internalPortConnection

	mu        sync.Mutex
	cb        atomic.Value // func(int64, []byte)
	capturing bool
}

// New initializes a CoreMIDI-backed LegacyCapture with the applied
// options.
func New(opts ...contracts.LegacyCaptureOption) (contracts.LegacyCapture, error) {
	options := contracts.LegacyCaptureOptions{ClientName: "midimaxe sync-checker"}
	for _, opt := range opts {
		opt(&options)
	}

	client, err := coremidi.NewClient(options.ClientName)
	if err != nil {
		return nil, fmt.Errorf("mididarwin: create CoreMIDI client: %w", err)
	}
	options.Logger.Info("CoreMIDI legacy capture client created")

	return &Capture{
		logger:     options.Logger,
		clientName: options.ClientName,
		portLabel:  options.DeviceLabel,
		client:     client,
	}, nil
}

// ListDevices lists available MIDI source devices.
func (m *Capture) ListDevices() ([]contracts.DeviceInfo, error) {
	sources, err := coremidi.AllSources()
	if err != nil {
		return nil, fmt.Errorf("mididarwin: list MIDI sources: %w", err)
	}
	if len(sources) == 0 {
		m.logger.Warn(ErrNoMIDIDevices.Error())
		return nil, ErrNoMIDIDevices
	}

	devices := make([]contracts.DeviceInfo, len(sources))
	for i, source := range sources {
		sourceEntity := source.Entity()
		devices[i] = contracts.DeviceInfo{
			Name:         source.Name(),
			EntityName:   sourceEntity.Name(),
			Manufacturer: sourceEntity.Manufacturer(),
		}
	}
	return devices, nil
}

// SelectDevice selects a MIDI device by its ID.
func (m *Capture) SelectDevice(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sources, err := coremidi.AllSources()
	if err != nil {
		return fmt.Errorf("mididarwin: list MIDI sources: %w", err)
	}
	if deviceID < 0 || deviceID >= len(sources) {
		m.logger.Error(ErrInvalidMIDIDevice.Error())
		return ErrInvalidMIDIDevice
	}

	if m.portConn != nil {
		m.portConn.Disconnect()
		m.portConn = nil
	}

	source := sources[deviceID]
	m.logger.Info("MIDI device selected",
		m.logger.Field().Int("deviceID", deviceID),
		m.logger.Field().String("deviceName", source.Name()))

	label := m.portLabel
	if label == "" {
		label = "Sync Checker Input"
	}
	m.inputPort, err = coremidi.NewInputPort(m.client, label, m.handlePacket)
	if err != nil {
		m.logger.Error(ErrCreateInputPort.Error())
		return fmt.Errorf("%w: %v", ErrCreateInputPort, err)
	}

	m.portConn, err = m.inputPort.Connect(source)
	if err != nil {
		m.logger.Error(ErrMIDIConnectionError.Error())
		return fmt.Errorf("%w: %v", ErrMIDIConnectionError, err)
	}

	m.logger.Info("MIDI device connected")
	return nil
}

// handlePacket forwards each byte of a received packet to the
// registered callback as its own one-byte message: System Real-Time
// bytes may appear interleaved anywhere in a running MIDI stream, so
// the capture does not try to parse message boundaries, it just hands
// every byte to the caller (see sdk/realtime.FromMIDI, which expects
// exactly one byte and rejects anything else). CoreMIDI's own packet
// timestamp is in its own host-time base; rather than convert that
// base, the capture stamps arrival with the program clock directly,
// same as a driver.Driver's virtual input would for a freshly-arrived
// message.
func (m *Capture) handlePacket(source coremidi.Source, packet coremidi.Packet) {
	cb, _ := m.cb.Load().(func(int64, []byte))
	if cb == nil {
		return
	}
	now := int64(clock.Now() / 1000)
	for _, b := range packet.Data {
		cb(now, []byte{b})
	}
}

// StartCapture begins delivering received bytes to cb.
func (m *Capture) StartCapture(cb func(micros int64, data []byte)) error {
	if cb == nil {
		return fmt.Errorf("mididarwin: StartCapture called with nil callback")
	}

	if m.capturing {
		m.logger.Warn("capture already started; stopping existing capture")
		if err := m.Stop(); err != nil {
			m.logger.Error("failed to stop existing capture", m.logger.Field().Error("error", err))
		}
	}

	m.logger.Info("starting MIDI capture")
	m.cb.Store(cb)
	m.capturing = true
	return nil
}

// Stop stops MIDI event capturing and disconnects the device.
func (m *Capture) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.portConn != nil {
		m.portConn.Disconnect()
		m.portConn = nil
	}
	m.cb.Store((func(int64, []byte))(nil))
	m.capturing = false

	m.logger.Info("MIDI capture stopped")
	return nil
}
