package midi

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/polygon/midimaxe/internal/midi/mididarwin"
	"github.com/polygon/midimaxe/internal/midi/midiwindows"
	"github.com/polygon/midimaxe/sdk/contracts"
)

// ErrUnsupportedOS is returned when no degraded-mode capture adapter
// exists for the current operating system. Linux and other POSIX
// systems aren't listed here because internal/mididrv's rtmididrv
// backend can create virtual input ports there, so the sync-checker
// never needs this fallback on those platforms (spec.md §6).
var ErrUnsupportedOS = errors.New("midi: no legacy capture adapter for this operating system")

var captureInitializers = map[string]func(...contracts.LegacyCaptureOption) (contracts.LegacyCapture, error){
	"darwin":  mididarwin.New,
	"windows": midiwindows.New,
}

// newClient selects the legacy capture adapter for the running
// operating system.
func newClient(options contracts.LegacyCaptureOptions) (contracts.LegacyCapture, error) {
	initializer, ok := captureInitializers[runtime.GOOS]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOS, runtime.GOOS)
	}
	return initializer(
		contracts.WithLogger(options.Logger),
		contracts.WithLogLevel(options.LogLevel),
		contracts.WithClientName(options.ClientName),
		contracts.WithDeviceLabel(options.DeviceLabel),
	)
}
