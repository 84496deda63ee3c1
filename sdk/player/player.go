// Package player is the public surface of the pipeline: it resolves
// assignment rules, merges each device's tracks into a monophonic schedule
// and plays all schedules concurrently against a common time origin.
package player

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/YushiOMOTE/toio-midi/internal/assign"
	"github.com/YushiOMOTE/toio-midi/internal/merge"
	"github.com/YushiOMOTE/toio-midi/internal/schedule"
	"github.com/YushiOMOTE/toio-midi/internal/score"
	"github.com/YushiOMOTE/toio-midi/sdk/contracts"
)

// Player drives a score across a set of cube devices.
type Player struct {
	opts contracts.PlayerOptions
	log  contracts.Logger
}

// NewPlayer creates a player with the specified options.
// It applies default options and validates the configuration.
//
// opts ...contracts.Option: A variadic list of option functions to customize the player configuration.
//
// Returns:
//   - *Player: The configured player.
//   - error: An error, if any occurred during configuration.
func NewPlayer(opts ...contracts.Option) (*Player, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &Player{opts: options, log: options.Logger}, nil
}

// LoadScore reads the SMF file at path into the immutable score
// representation, with the file's tempo map already applied.
func (p *Player) LoadScore(path string) (*contracts.Score, error) {
	return score.Load(path, p.log)
}

// ParseRule parses a textual assignment rule of the form
// "device=track[,track...]". Malformed input fails with ErrInvalidRule.
func ParseRule(s string) (contracts.Rule, error) {
	return assign.ParseRule(s)
}

// ParseRules parses a list of textual assignment rules.
func ParseRules(specs []string) ([]contracts.Rule, error) {
	return assign.ParseRules(specs)
}

// playback is one device's fully prepared execution unit.
type playback struct {
	device   contracts.DeviceInfo
	tracks   []int
	schedule merge.Schedule
	dispatch contracts.Dispatcher
}

// Play performs the whole pipeline for one score: resolve, merge, then play
// every device concurrently until the schedules complete or ctx is cancelled.
//
// Resolution and preparation errors fail fast, before any device has been
// commanded. During playback a failing device terminates alone; the others
// play on, and the per-device errors are combined in the returned error.
func (p *Player) Play(ctx context.Context, sc *contracts.Score, rules []contracts.Rule, transport contracts.Transport) error {
	resolver := assign.NewResolver(transport, p.log)
	mapping, err := resolver.Resolve(rules, sc.TrackCount())
	if err != nil {
		return err
	}

	merger, err := merge.NewMerger(p.opts.Unit, p.log)
	if err != nil {
		return err
	}

	devices, err := transport.Devices()
	if err != nil {
		return err
	}
	byID := make(map[int]contracts.DeviceInfo, len(devices))
	for _, d := range devices {
		byID[d.ID] = d
	}

	units, connected := p.prepare(sc, mapping, byID, merger)
	if connected == 0 {
		return contracts.ErrNoDevices
	}
	if len(units) == 0 {
		p.log.Info("all schedules are empty, nothing to play")
		return nil
	}

	// Open every dispatcher before the countdown; nothing partially starts.
	for i := range units {
		dispatch, err := transport.Open(units[i].device)
		if err != nil {
			for j := 0; j < i; j++ {
				_ = units[j].dispatch.Close()
			}
			return err
		}
		units[i].dispatch = dispatch
	}
	defer func() {
		for i := range units {
			_ = units[i].dispatch.Close()
		}
	}()

	p.log.Info("starting playback",
		p.log.Field().Int("devices", len(units)),
		p.log.Field().Uint64("speed", p.opts.Speed),
		p.log.Field().String("countdown", p.opts.StartDelay.String()))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.opts.StartDelay):
	}

	// The shared origin is the only state the device goroutines have in
	// common besides ctx; it is read-only from here on.
	start := time.Now()
	errs := make([]error, len(units))
	done := make(chan int, len(units))

	for i := range units {
		go func(i int) {
			defer func() { done <- i }()
			s, err := schedule.New(units[i].device.ID, units[i].schedule, units[i].dispatch, p.opts.Speed, p.log)
			if err != nil {
				errs[i] = err
				return
			}
			errs[i] = s.Run(ctx, start)
		}(i)
	}

	for range units {
		i := <-done
		if errs[i] != nil {
			p.log.Error("device playback failed",
				p.log.Field().Int("device", units[i].device.ID),
				p.log.Field().Error("error", errs[i]))
		}
	}

	p.log.Info("playback finished")
	return multierr.Combine(errs...)
}

// prepare builds one execution unit per resolved device, in ascending device
// order, and reports how many resolved devices are connected. Devices named
// by a rule but not connected are skipped with a warning; devices whose
// merged schedule is empty are dropped too, so no transport resources are
// claimed for a device that would only sit idle.
func (p *Player) prepare(sc *contracts.Score, mapping map[int][]int, byID map[int]contracts.DeviceInfo, merger *merge.Merger) ([]playback, int) {
	ids := make([]int, 0, len(mapping))
	for id := range mapping {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var units []playback
	connected := 0
	for _, id := range ids {
		info, ok := byID[id]
		if !ok {
			p.log.Warn("device named by rule is not connected, skipping",
				p.log.Field().Int("device", id))
			continue
		}
		connected++

		trackIdx := mapping[id]
		tracks := make([]contracts.Track, 0, len(trackIdx))
		for _, ti := range trackIdx {
			tracks = append(tracks, sc.Tracks[ti])
		}

		sched := merger.Merge(tracks)
		if len(sched) == 0 {
			p.log.Debug("device has nothing to play, skipping",
				p.log.Field().Int("device", id))
			continue
		}
		p.log.Info("assigned tracks to device",
			p.log.Field().Int("device", id),
			p.log.Field().String("tracks", intsString(trackIdx)),
			p.log.Field().Int("entries", len(sched)))

		units = append(units, playback{device: info, tracks: trackIdx, schedule: sched})
	}
	return units, connected
}

func intsString(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ",")
}
