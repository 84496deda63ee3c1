package contracts

import (
	"context"
	"time"
)

// Dispatcher commands one physical cube. A cube sounds at most one note at a
// time; Play replaces whatever is currently sounding. Implementations own the
// transport to the device and must be safe for use from a single goroutine.
type Dispatcher interface {
	// Play sounds the given pitch for the given duration, preempting any
	// currently sounding note. It blocks until the device accepted the
	// command or the context is cancelled.
	Play(ctx context.Context, pitch uint8, duration time.Duration) error
	// Stop silences the device. Stopping an already silent device is a no-op.
	Stop(ctx context.Context) error
	// Close releases the transport resources held for this device.
	Close() error
}

// DeviceInfo identifies one connected cube.
type DeviceInfo struct {
	ID   int    // Device identifier used in assignment rules.
	Name string // Transport-level name, for diagnostics.
}

// Discovery reports the currently connected cubes. It backs the default
// track assignment applied when no rules are supplied.
type Discovery interface {
	Devices() ([]DeviceInfo, error)
}

// Transport discovers cubes and opens dispatchers for them.
type Transport interface {
	Discovery
	// Open returns a dispatcher bound to the given device. The caller owns
	// the returned dispatcher and must Close it.
	Open(device DeviceInfo) (Dispatcher, error)
	// Close releases transport-wide resources. Dispatchers obtained from
	// Open must be closed first.
	Close() error
}
