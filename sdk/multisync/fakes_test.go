package multisync

import (
	"errors"
	"time"

	"github.com/polygon/midimaxe/sdk/contracts"
	"github.com/polygon/midimaxe/sdk/driver"
)

type fakeConn struct {
	sent   [][]byte
	closed bool
}

func (f *fakeConn) Send(data []byte) error {
	cp := append([]byte(nil), data...)
	f.sent = append(f.sent, cp)
	return nil
}

func (f *fakeConn) Close() error {
	f.closed = true
	return nil
}

type fakeDriver struct {
	handles map[driver.PortHandle]string
	opened  map[driver.PortHandle]*fakeConn
	openErr error
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		handles: map[driver.PortHandle]string{},
		opened:  map[driver.PortHandle]*fakeConn{},
	}
}

func (f *fakeDriver) addPort(handle driver.PortHandle, name string) {
	f.handles[handle] = name
}

func (f *fakeDriver) removePort(handle driver.PortHandle) {
	delete(f.handles, handle)
}

func (f *fakeDriver) EnumerateOutputs() ([]driver.PortHandle, error) {
	out := make([]driver.PortHandle, 0, len(f.handles))
	for h := range f.handles {
		out = append(out, h)
	}
	return out, nil
}

func (f *fakeDriver) NameOf(handle driver.PortHandle) (string, error) {
	name, ok := f.handles[handle]
	if !ok {
		return "", errors.New("unknown handle")
	}
	return name, nil
}

func (f *fakeDriver) OpenOutput(handle driver.PortHandle, clientName, portLabel string) (driver.Connection, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	c := &fakeConn{}
	f.opened[handle] = c
	return c, nil
}

func (f *fakeDriver) CreateVirtualInput(name string, cb func(micros int64, data []byte)) (driver.VirtualInput, error) {
	return nil, driver.ErrUnsupported
}

// nopLogger discards everything; tests assert on behavior, not logs.
type nopLogger struct{}

func (nopLogger) Info(msg string, fields ...contracts.Field)  {}
func (nopLogger) Error(msg string, fields ...contracts.Field) {}
func (nopLogger) Debug(msg string, fields ...contracts.Field) {}
func (nopLogger) Warn(msg string, fields ...contracts.Field)  {}
func (nopLogger) Fatal(msg string, fields ...contracts.Field) {}
func (nopLogger) Field() contracts.Field                      { return nopField{} }
func (nopLogger) SetLevel(level contracts.LogLevel)           {}
func (nopLogger) SetDestination(dest contracts.LogDestination, filePath ...string) {}

type nopField struct{}

func (nopField) Bool(key string, val bool) contracts.Field          { return nopField{} }
func (nopField) Int(key string, val int) contracts.Field            { return nopField{} }
func (nopField) Float64(key string, val float64) contracts.Field    { return nopField{} }
func (nopField) String(key string, val string) contracts.Field      { return nopField{} }
func (nopField) Time(key string, val time.Time) contracts.Field     { return nopField{} }
func (nopField) Int64(key string, val int64) contracts.Field        { return nopField{} }
func (nopField) Error(key string, val error) contracts.Field        { return nopField{} }
func (nopField) Uint64(key string, val uint64) contracts.Field      { return nopField{} }
func (nopField) Uint8(key string, val uint8) contracts.Field        { return nopField{} }
