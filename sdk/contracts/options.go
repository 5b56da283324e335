package contracts

// LegacyCaptureOptions configures a LegacyCapture adapter.
type LegacyCaptureOptions struct {
	Logger      Logger   // Logger for logging events and errors.
	LogLevel    LogLevel // Level of logging to use.
	ClientName  string   // Name advertised to the backend (CoreMIDI client name, etc.)
	DeviceLabel string   // Advisory label for the opened input port.
}

// LegacyCaptureOption is a function that modifies LegacyCaptureOptions.
type LegacyCaptureOption func(*LegacyCaptureOptions)

// WithLogger sets the logger for the adapter.
func WithLogger(l Logger) LegacyCaptureOption {
	return func(opts *LegacyCaptureOptions) {
		opts.Logger = l
	}
}

// WithLogLevel sets the logging level for the adapter.
func WithLogLevel(level LogLevel) LegacyCaptureOption {
	return func(opts *LegacyCaptureOptions) {
		opts.LogLevel = level
	}
}

// WithClientName sets the backend client name the adapter registers
// under.
func WithClientName(name string) LegacyCaptureOption {
	return func(opts *LegacyCaptureOptions) {
		opts.ClientName = name
	}
}

// WithDeviceLabel sets the advisory label for the opened input port.
func WithDeviceLabel(label string) LegacyCaptureOption {
	return func(opts *LegacyCaptureOptions) {
		opts.DeviceLabel = label
	}
}
