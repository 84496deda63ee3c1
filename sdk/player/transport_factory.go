package player

import (
	"errors"
	"fmt"

	"github.com/YushiOMOTE/toio-midi/internal/transport/miditransport"
	"github.com/YushiOMOTE/toio-midi/internal/transport/serialtransport"
	"github.com/YushiOMOTE/toio-midi/sdk/contracts"
)

// ErrUnknownTransport is returned when the requested transport name has no
// registered initializer.
var ErrUnknownTransport = errors.New("unknown transport")

// transportInitializers maps transport names to corresponding initializers.
var transportInitializers = map[string]func(*contracts.PlayerOptions) (contracts.Transport, error){
	"midi":   newMIDITransport,   // MIDI output ports, one per cube.
	"serial": newSerialTransport, // Serial bridge fanning out to addressed cubes.
}

// NewTransport initializes the named transport with the player's options
// applied. It returns ErrUnknownTransport for unregistered names.
//
// name string: Transport name, "midi" or "serial".
// opts ...contracts.Option: A variadic list of option functions to customize the transport.
//
// Returns:
//   - contracts.Transport: The ready transport.
//   - error: An error if the name is unknown or initialization fails.
func NewTransport(name string, opts ...contracts.Option) (contracts.Transport, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}
	if initializer, exists := transportInitializers[name]; exists {
		return initializer(&options)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownTransport, name)
}

func newMIDITransport(opts *contracts.PlayerOptions) (contracts.Transport, error) {
	return miditransport.New(opts.MIDIChannel, opts.Logger), nil
}

func newSerialTransport(opts *contracts.PlayerOptions) (contracts.Transport, error) {
	cfg := opts.SerialConfig
	return serialtransport.New(cfg.Port, cfg.Baud, cfg.Cubes, opts.Logger)
}
