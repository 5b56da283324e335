// Package midi selects the degraded-mode contracts.LegacyCapture
// adapter for the running operating system and applies its default
// options, the way the original teacher package selected its
// platform-specific MIDI client.
package midi

import (
	"github.com/polygon/midimaxe/sdk/contracts"
)

// NewLegacyCapture builds a LegacyCapture for the current operating
// system with the given options applied over the package defaults.
func NewLegacyCapture(opts ...contracts.LegacyCaptureOption) (contracts.LegacyCapture, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}
	return newClient(options)
}
