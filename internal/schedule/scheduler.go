// Package schedule drives one device's merged schedule in real time.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/YushiOMOTE/toio-midi/internal/merge"
	"github.com/YushiOMOTE/toio-midi/sdk/contracts"
)

// silenceTimeout bounds the best-effort stop issued on cancellation or
// failure, so teardown cannot hang on a dead transport.
const silenceTimeout = time.Second

// Scheduler walks one device's merged schedule, dispatching each entry at its
// scaled wall-clock deadline. A scheduler owns its schedule and cursor
// exclusively; concurrent schedulers share only the read-only start instant
// and the cancellation context.
type Scheduler struct {
	device   int
	schedule merge.Schedule
	dispatch contracts.Dispatcher
	speed    uint64
	log      contracts.Logger
}

// New creates a scheduler for one device. speed is a percentage of the
// original tempo and must be positive.
func New(device int, sched merge.Schedule, dispatch contracts.Dispatcher, speed uint64, log contracts.Logger) (*Scheduler, error) {
	if speed == 0 {
		return nil, fmt.Errorf("speed must be positive")
	}
	return &Scheduler{
		device:   device,
		schedule: sched,
		dispatch: dispatch,
		speed:    speed,
		log:      log,
	}, nil
}

// scaled converts a schedule time to a wall-clock duration at the configured
// speed. Doubling the speed halves every delay.
func (s *Scheduler) scaled(t uint64) time.Duration {
	return time.Duration(t) * time.Millisecond * 100 / time.Duration(s.speed)
}

// Run plays the schedule relative to the shared start instant. It blocks
// until the schedule completes, a dispatch fails, or ctx is cancelled. On
// cancellation or failure a best-effort stop silences the device before
// returning; a dangling sounding note is never left behind.
//
// An empty schedule returns immediately without touching the device.
func (s *Scheduler) Run(ctx context.Context, start time.Time) error {
	if len(s.schedule) == 0 {
		s.log.Debug("empty schedule, device stays idle", s.log.Field().Int("device", s.device))
		return nil
	}

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for _, entry := range s.schedule {
		// Absolute deadlines against the common origin, so timing error
		// does not accumulate across entries.
		deadline := start.Add(s.scaled(entry.At))
		if wait := time.Until(deadline); wait > 0 {
			timer.Reset(wait)
			select {
			case <-ctx.Done():
				s.silence()
				return ctx.Err()
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			s.silence()
			return ctx.Err()
		}

		var err error
		if entry.Rest {
			err = s.dispatch.Stop(ctx)
		} else {
			err = s.dispatch.Play(ctx, entry.Pitch, s.scaled(entry.Duration))
		}
		if err != nil {
			s.silence()
			return fmt.Errorf("%w: device %d at %dms: %v",
				contracts.ErrDispatchFailure, s.device, entry.At, err)
		}
	}

	// The schedule ran out; leave the device silent.
	if err := s.dispatch.Stop(ctx); err != nil {
		return fmt.Errorf("%w: device %d: final stop: %v",
			contracts.ErrDispatchFailure, s.device, err)
	}

	s.log.Debug("schedule complete", s.log.Field().Int("device", s.device))
	return nil
}

// silence issues a best-effort stop outside the cancelled context.
func (s *Scheduler) silence() {
	ctx, cancel := context.WithTimeout(context.Background(), silenceTimeout)
	defer cancel()
	if err := s.dispatch.Stop(ctx); err != nil {
		s.log.Warn("failed to silence device",
			s.log.Field().Int("device", s.device),
			s.log.Field().Error("error", err))
	}
}
