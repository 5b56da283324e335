//go:build windows
// +build windows

// Package midiwindows is the degraded-mode contracts.LegacyCapture
// adapter for the Win32 winmm API, used when a platform's
// driver.Driver cannot create virtual input ports (spec.md §6).
package midiwindows

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/polygon/midimaxe/sdk/clock"
	"github.com/polygon/midimaxe/sdk/contracts"
	"golang.org/x/sys/windows"
)

type HMIDIIN windows.Handle

const (
	callbackFunction = 0x00030000
	midiIOStatus     = 0x00000020
)

const (
	mimOpen      = 0x3C1
	mimClose     = 0x3C2
	mimData      = 0x3C3
	mimError     = 0x3C5
	mimLongError = 0x3C6
	mimMoreData  = 0x3CC
)

type midiInCaps struct {
	wMid           uint16
	wPid           uint16
	vDriverVersion uint32
	szPname        [32]uint16
	dwSupport      uint32
}

// Capture is the winmm-backed contracts.LegacyCapture.
type Capture struct {
	logger contracts.Logger

	handle   HMIDIIN
	portConn bool
	mu       sync.Mutex
	callback uintptr
	cb       atomic.Value // func(int64, []byte)
}

var (
	winmm                = windows.NewLazySystemDLL("winmm.dll")
	procMidiInGetNumDevs = winmm.NewProc("midiInGetNumDevs")
	procMidiInGetDevCaps = winmm.NewProc("midiInGetDevCapsW")
	procMidiInOpen       = winmm.NewProc("midiInOpen")
	procMidiInStart      = winmm.NewProc("midiInStart")
	procMidiInStop       = winmm.NewProc("midiInStop")
	procMidiInClose      = winmm.NewProc("midiInClose")
)

// New initializes a winmm-backed LegacyCapture with the applied
// options.
func New(opts ...contracts.LegacyCaptureOption) (contracts.LegacyCapture, error) {
	options := contracts.LegacyCaptureOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	options.Logger.Info("winmm legacy capture client created")
	return &Capture{logger: options.Logger}, nil
}

// ListDevices lists the available MIDI input devices.
func (m *Capture) ListDevices() ([]contracts.DeviceInfo, error) {
	r0, _, _ := procMidiInGetNumDevs.Call()
	numDevices := uint32(r0)
	if numDevices == 0 {
		m.logger.Warn("no MIDI devices found")
		return nil, errors.New("no MIDI devices found")
	}

	devices := make([]contracts.DeviceInfo, numDevices)
	for i := uint32(0); i < numDevices; i++ {
		var caps midiInCaps
		r1, _, _ := procMidiInGetDevCaps.Call(
			uintptr(i),
			uintptr(unsafe.Pointer(&caps)),
			unsafe.Sizeof(caps),
		)
		if r1 != 0 {
			m.logger.Warn(fmt.Sprintf("failed to get info for MIDI device %d", i))
			continue
		}
		deviceName := windows.UTF16ToString(caps.szPname[:])
		devices[i] = contracts.DeviceInfo{
			Name:         deviceName,
			EntityName:   deviceName,
			Manufacturer: fmt.Sprintf("MID: %d PID: %d", caps.wMid, caps.wPid),
		}
	}
	return devices, nil
}

// SelectDevice selects a MIDI input device by its index.
func (m *Capture) SelectDevice(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.portConn {
		if err := m.stopCapture(); err != nil {
			return fmt.Errorf("midiwindows: stop previous capture: %w", err)
		}
	}

	m.callback = windows.NewCallback(midiInCallback)
	fdwOpen := callbackFunction | midiIOStatus

	r1, _, err := procMidiInOpen.Call(
		uintptr(unsafe.Pointer(&m.handle)),
		uintptr(deviceID),
		m.callback,
		uintptr(unsafe.Pointer(m)),
		uintptr(fdwOpen),
	)
	if r1 != 0 {
		m.logger.Error(fmt.Sprintf("failed to open MIDI device %d: %v", deviceID, err))
		return fmt.Errorf("midiwindows: open device %d: %v", deviceID, err)
	}

	m.portConn = true
	m.logger.Info(fmt.Sprintf("MIDI device %d connected", deviceID))
	return nil
}

// StartCapture begins delivering received bytes to cb.
func (m *Capture) StartCapture(cb func(micros int64, data []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.portConn {
		return fmt.Errorf("midiwindows: cannot start capture: no device selected")
	}
	if cb == nil {
		return fmt.Errorf("midiwindows: StartCapture called with nil callback")
	}
	m.cb.Store(cb)

	r1, _, err := procMidiInStart.Call(uintptr(m.handle))
	if r1 != 0 {
		m.logger.Error(fmt.Sprintf("failed to start MIDI capture: %v", err))
		return fmt.Errorf("midiwindows: start capture: %v", err)
	}

	m.logger.Info("MIDI capture started")
	return nil
}

// midiInCallback forwards a winmm short message's status byte to the
// registered callback as a one-byte message, stamped with the program
// clock. winmm packs up to 3 bytes per MIM_DATA; a System Real-Time
// byte always arrives alone in dwParam1's low byte, so only that byte
// is forwarded (see sdk/realtime.FromMIDI, which expects exactly one
// byte).
func midiInCallback(hMidiIn uintptr, wMsg uint32, dwInstance uintptr, dwParam1 uintptr, dwParam2 uintptr) uintptr {
	m := (*Capture)(unsafe.Pointer(dwInstance))

	switch wMsg {
	case mimOpen:
		m.logger.Info("MIDI device opened")
	case mimClose:
		m.logger.Info("MIDI device closed")
	case mimData:
		if dwParam2 == 0 {
			return 0
		}
		status := byte(dwParam1 & 0xFF)
		if cb, ok := m.cb.Load().(func(int64, []byte)); ok && cb != nil {
			cb(int64(clock.Now()/1000), []byte{status})
		}
	case mimError, mimLongError:
		m.logger.Error(fmt.Sprintf("MIDI error: msg=0x%X", wMsg))
	case mimMoreData:
		m.logger.Debug("received MIM_MOREDATA; ignored")
	default:
		m.logger.Warn(fmt.Sprintf("unknown MIDI message: 0x%X", wMsg))
	}

	return 0
}

// Stop terminates MIDI event capture and disconnects the device.
func (m *Capture) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.portConn {
		return nil
	}
	if err := m.stopCapture(); err != nil {
		return fmt.Errorf("midiwindows: stop capture: %w", err)
	}
	m.logger.Info("MIDI capture stopped and device closed")
	return nil
}

func (m *Capture) stopCapture() error {
	if m.handle == 0 {
		return fmt.Errorf("invalid MIDI device handle")
	}

	r1, _, err := procMidiInStop.Call(uintptr(m.handle))
	if r1 != 0 {
		m.logger.Error(fmt.Sprintf("failed to stop MIDI capture: %v", err))
		return err
	}

	r1, _, err = procMidiInClose.Call(uintptr(m.handle))
	if r1 != 0 {
		m.logger.Error(fmt.Sprintf("failed to close MIDI device: %v", err))
		return err
	}

	m.portConn = false
	m.handle = 0
	m.cb.Store((func(int64, []byte))(nil))
	return nil
}
