package contracts

import "time"

// SerialConfig holds configuration for the serial cube bridge transport.
type SerialConfig struct {
	Port  string // Serial device name (e.g. /dev/ttyUSB0).
	Baud  int    // Baud rate.
	Cubes int    // Number of cubes reachable behind the bridge.
}

// PlayerOptions defines the configuration options for the player.
// Zero values select the documented defaults.
type PlayerOptions struct {
	Logger       Logger        // Logger for events and errors.
	LogLevel     LogLevel      // Level of logging to use.
	Speed        uint64        // Playback speed percentage; 100 = original tempo.
	Unit         uint64        // Quantization width in milliseconds used on merge.
	StartDelay   time.Duration // Countdown before the common playback origin.
	MIDIChannel  uint8         // Output channel used by the MIDI transport.
	SerialConfig *SerialConfig // Configuration for the serial transport.
}

// Option is a function that modifies PlayerOptions.
type Option func(*PlayerOptions)

// WithLogger sets the logger for the player.
func WithLogger(l Logger) Option {
	return func(opts *PlayerOptions) {
		opts.Logger = l
	}
}

// WithLogLevel sets the logging level for the player.
func WithLogLevel(level LogLevel) Option {
	return func(opts *PlayerOptions) {
		opts.LogLevel = level
	}
}

// WithSpeed sets the playback speed as a percentage of the original tempo.
// Values above 100 play faster, values below 100 slower. Must be positive.
func WithSpeed(speed uint64) Option {
	return func(opts *PlayerOptions) {
		opts.Speed = speed
	}
}

// WithUnit sets the quantization width, in milliseconds, used to align
// independently timed tracks before merging. Must be positive.
func WithUnit(unit uint64) Option {
	return func(opts *PlayerOptions) {
		opts.Unit = unit
	}
}

// WithStartDelay sets the countdown between scheduling and the first note.
func WithStartDelay(d time.Duration) Option {
	return func(opts *PlayerOptions) {
		opts.StartDelay = d
	}
}

// WithMIDIChannel sets the output channel used by the MIDI transport.
func WithMIDIChannel(ch uint8) Option {
	return func(opts *PlayerOptions) {
		opts.MIDIChannel = ch
	}
}

// WithSerialConfig sets the serial bridge configuration.
func WithSerialConfig(config SerialConfig) Option {
	return func(opts *PlayerOptions) {
		opts.SerialConfig = &config
	}
}
