package contracts

import "errors"

// Error taxonomy shared by the whole pipeline. Configuration and resolution
// errors surface before any device starts playing; dispatch errors surface
// per device during playback. Match with errors.Is.
var (
	// ErrInvalidRule indicates a malformed assignment rule.
	ErrInvalidRule = errors.New("invalid rule")
	// ErrTrackOutOfRange indicates a rule referencing a track the score does not have.
	ErrTrackOutOfRange = errors.New("no such track")
	// ErrNoDevices indicates that no connected device is available to play.
	ErrNoDevices = errors.New("no devices available")
	// ErrDispatchFailure indicates a device rejected or failed to acknowledge
	// a command during playback.
	ErrDispatchFailure = errors.New("dispatch failure")
)
