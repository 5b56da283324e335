package midi

import (
	"github.com/polygon/midimaxe/internal/logger"
	"github.com/polygon/midimaxe/sdk/contracts"
)

// applyDefaultOptions fills in LegacyCaptureOptions defaults for any
// field the caller left unset.
func applyDefaultOptions(opts ...contracts.LegacyCaptureOption) (contracts.LegacyCaptureOptions, error) {
	options := &contracts.LegacyCaptureOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Logger == nil {
		options.Logger = logger.NewZapLogger()
	}
	if options.ClientName == "" {
		options.ClientName = "midimaxe sync-checker"
	}
	if options.DeviceLabel == "" {
		options.DeviceLabel = "Sync Checker Input"
	}

	options.Logger.SetLevel(options.LogLevel)
	return *options, nil
}
