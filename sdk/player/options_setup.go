package player

import (
	"time"

	"github.com/YushiOMOTE/toio-midi/internal/logger"
	"github.com/YushiOMOTE/toio-midi/sdk/contracts"
)

// Playback defaults, matching the CLI's documented ones: unscaled speed, a
// 40 ms merge unit and a 3 second countdown before the first note.
const (
	defaultSpeed      = 100
	defaultUnit       = 40
	defaultStartDelay = 3 * time.Second

	defaultSerialPort = "/dev/ttyUSB0"
	defaultSerialBaud = 115200
	defaultSerialCube = 3
)

// applyDefaultOptions sets default values for PlayerOptions if not explicitly provided.
//
// opts ...contracts.Option: A variadic list of option functions that can modify PlayerOptions.
//
// Returns:
//   - contracts.PlayerOptions: A structure containing the finalized player options with defaults applied.
//   - error: An error if there was an issue applying the options.
func applyDefaultOptions(opts ...contracts.Option) (contracts.PlayerOptions, error) {
	options := &contracts.PlayerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	// Set defaults if options are not provided
	if options.Logger == nil {
		options.Logger = logger.NewZapLogger()
	}
	if options.LogLevel == 0 {
		options.LogLevel = contracts.InfoLevel
	}
	if options.Speed == 0 {
		options.Speed = defaultSpeed
	}
	if options.Unit == 0 {
		options.Unit = defaultUnit
	}
	if options.StartDelay == 0 {
		options.StartDelay = defaultStartDelay
	}
	if options.SerialConfig == nil {
		options.SerialConfig = &contracts.SerialConfig{
			Port:  defaultSerialPort,
			Baud:  defaultSerialBaud,
			Cubes: defaultSerialCube,
		}
	}

	options.Logger.SetLevel(options.LogLevel)
	return *options, nil
}
