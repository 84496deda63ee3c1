// Package score loads a standard MIDI file into the immutable track/event
// representation the rest of the pipeline works with. Event times leave this
// package already converted to milliseconds, with the file's tempo map applied.
package score

import (
	"fmt"
	"sort"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/YushiOMOTE/toio-midi/sdk/contracts"
)

// defaultTempo is the tempo assumed until the first SetTempo meta event,
// in microseconds per quarter note (120 BPM).
const defaultTempo = 500000

// fallbackTimeBase is used when the file carries an SMPTE time format.
const fallbackTimeBase = 480

// rawEvent is a note event at an absolute tick position, before tempo
// adjustment. Velocity 0 encodes a note-off.
type rawEvent struct {
	tick     uint64
	pitch    uint8
	velocity uint8
}

// tempoChange is one SetTempo meta event at an absolute tick position.
type tempoChange struct {
	tick uint64
	// Microseconds per quarter note from this tick on.
	usPerQuarter uint64
}

// Load reads the SMF file at path and returns the parsed score.
func Load(path string, log contracts.Logger) (*contracts.Score, error) {
	s, err := smf.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	timeBase := uint16(fallbackTimeBase)
	if metric, ok := s.TimeFormat.(smf.MetricTicks); ok {
		timeBase = uint16(metric)
	} else {
		log.Warn("unsupported time base, assuming 480 ticks per quarter",
			log.Field().String("format", s.TimeFormat.String()))
	}

	var tempos []tempoChange
	raw := make([][]rawEvent, len(s.Tracks))

	for ti, tr := range s.Tracks {
		var tick uint64
		for _, ev := range tr {
			tick += uint64(ev.Delta)

			var ch, key, vel uint8
			var bpm float64
			switch {
			case ev.Message.GetNoteOn(&ch, &key, &vel):
				// Running-status note-on with velocity 0 is a release.
				raw[ti] = append(raw[ti], rawEvent{tick: tick, pitch: key, velocity: vel})
			case ev.Message.GetNoteOff(&ch, &key, &vel):
				raw[ti] = append(raw[ti], rawEvent{tick: tick, pitch: key, velocity: 0})
			case ev.Message.GetMetaTempo(&bpm):
				if bpm > 0 {
					tempos = append(tempos, tempoChange{tick: tick, usPerQuarter: uint64(60000000 / bpm)})
				}
			}
		}
	}

	out := &contracts.Score{
		Tracks:   adjust(raw, tempos, timeBase),
		TimeBase: timeBase,
	}

	log.Debug("score loaded",
		log.Field().String("file", path),
		log.Field().Int("tracks", out.TrackCount()),
		log.Field().Int("tempo_changes", len(tempos)))

	return out, nil
}

// adjust converts per-track events from absolute ticks to absolute
// milliseconds, applying the tempo in force over each tick range.
func adjust(raw [][]rawEvent, tempos []tempoChange, timeBase uint16) []contracts.Track {
	tempos = normalizeTempos(tempos)

	tracks := make([]contracts.Track, len(raw))
	for ti, events := range raw {
		tracks[ti].Index = ti
		for _, e := range events {
			tracks[ti].Events = append(tracks[ti].Events, contracts.Event{
				At:       ticksToMillis(e.tick, tempos, timeBase),
				Pitch:    e.pitch,
				Velocity: e.velocity,
				Track:    ti,
			})
		}
	}
	return tracks
}

// normalizeTempos orders the tempo map and guarantees an entry at tick 0.
func normalizeTempos(tempos []tempoChange) []tempoChange {
	out := append([]tempoChange(nil), tempos...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].tick < out[j].tick })
	if len(out) == 0 || out[0].tick > 0 {
		out = append([]tempoChange{{tick: 0, usPerQuarter: defaultTempo}}, out...)
	}
	return out
}

// ticksToMillis sums segment durations across tempo changes up to tick.
// tempos must be normalized (ordered, starting at tick 0).
func ticksToMillis(tick uint64, tempos []tempoChange, timeBase uint16) uint64 {
	var elapsedUS uint64
	last := uint64(0)
	current := tempos[0].usPerQuarter

	for _, tc := range tempos[1:] {
		if tc.tick >= tick {
			break
		}
		elapsedUS += (tc.tick - last) * current / uint64(timeBase)
		last, current = tc.tick, tc.usPerQuarter
	}
	elapsedUS += (tick - last) * current / uint64(timeBase)

	return elapsedUS / 1000
}
