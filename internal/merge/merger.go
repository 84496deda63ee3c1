// Package merge combines the event tracks assigned to one device into a
// single monophonic, time-quantized schedule the device can actually play.
package merge

import (
	"fmt"
	"sort"

	"github.com/YushiOMOTE/toio-midi/sdk/contracts"
)

// Entry is one slot of a device's merged schedule. Entries are strictly
// increasing in At; at most one note sounds at any instant.
type Entry struct {
	At       uint64 // Quantized time in milliseconds from the playback origin.
	Pitch    uint8  // Note to sound; meaningless when Rest is true.
	Duration uint64 // Sounding length in milliseconds.
	Rest     bool   // True when the slot silences the voice instead of sounding Pitch.
}

// Schedule is a device's conflict-resolved, time-ordered note sequence.
type Schedule []Entry

// Merger builds merged schedules with a fixed quantization unit.
type Merger struct {
	unit uint64
	log  contracts.Logger
}

// NewMerger creates a merger. unit is the quantization width in milliseconds
// and must be positive.
func NewMerger(unit uint64, log contracts.Logger) (*Merger, error) {
	if unit == 0 {
		return nil, fmt.Errorf("quantization unit must be positive")
	}
	return &Merger{unit: unit, log: log}, nil
}

// Quantize rounds t to the nearest multiple of the unit, half up.
func (m *Merger) Quantize(t uint64) uint64 {
	return (t + m.unit/2) / m.unit * m.unit
}

// tagged pairs an event with its quantized time and arrival position, the
// final component of the tie-break.
type tagged struct {
	at      uint64
	event   contracts.Event
	arrival int
}

// wins reports whether a beats b under the simultaneous-note tie-break:
// lowest originating track, then lowest pitch, then arrival order. The
// ordering is total, so repeated runs on the same input produce identical
// schedules.
func wins(a, b tagged) bool {
	if a.event.Track != b.event.Track {
		return a.event.Track < b.event.Track
	}
	if a.event.Pitch != b.event.Pitch {
		return a.event.Pitch < b.event.Pitch
	}
	return a.arrival < b.arrival
}

// Merge combines the given tracks into one playable schedule.
//
// Every event is quantized to the unit, events sharing a quantized slot are
// treated as simultaneous, and each slot keeps a single winner: among note-ons
// the tie-break above applies and losers are silently dropped (polyphony
// reduction, not an error). A slot with only note-offs closes the voice when
// one of them releases the note currently sounding. A winning note-on always
// preempts whatever was sounding before.
//
// An empty track set yields an empty schedule; the device simply stays idle.
func (m *Merger) Merge(tracks []contracts.Track) Schedule {
	var all []tagged
	for _, tr := range tracks {
		for _, e := range tr.Events {
			all = append(all, tagged{at: m.Quantize(e.At), event: e, arrival: len(all)})
		}
	}
	if len(all) == 0 {
		return nil
	}

	// Stable by quantized time; arrival order survives inside each slot.
	sort.SliceStable(all, func(i, j int) bool { return all[i].at < all[j].at })

	var out Schedule
	sounding := false
	var soundingPitch uint8
	soundingTrack := -1

	for lo := 0; lo < len(all); {
		hi := lo
		for hi < len(all) && all[hi].at == all[lo].at {
			hi++
		}
		slot := all[lo:hi]
		at := all[lo].at

		var winner *tagged
		for i := range slot {
			if !slot[i].event.On() {
				continue
			}
			if winner == nil || wins(slot[i], *winner) {
				winner = &slot[i]
			}
		}

		switch {
		case winner != nil:
			if len(slot) > 1 {
				m.log.Debug("simultaneous events, voice resolved",
					m.log.Field().Uint64("at", at),
					m.log.Field().Int("candidates", len(slot)),
					m.log.Field().Int("track", winner.event.Track),
					m.log.Field().Uint8("pitch", winner.event.Pitch))
			}
			out = appendEntry(out, Entry{At: at, Pitch: winner.event.Pitch})
			sounding = true
			soundingPitch = winner.event.Pitch
			soundingTrack = winner.event.Track
		case sounding && releases(slot, soundingTrack, soundingPitch):
			out = appendEntry(out, Entry{At: at, Rest: true})
			sounding = false
			soundingTrack = -1
		}

		lo = hi
	}

	return withDurations(out, m.unit)
}

// releases reports whether any note-off in the slot targets the note that is
// currently sounding. Offs for notes that lost their slot are ignored.
func releases(slot []tagged, track int, pitch uint8) bool {
	for _, t := range slot {
		if !t.event.On() && t.event.Track == track && t.event.Pitch == pitch {
			return true
		}
	}
	return false
}

// appendEntry appends e, squashing it into the previous entry when both carry
// the same voice state. Re-sounding the same pitch is indistinguishable from
// holding it on a monophonic device.
func appendEntry(s Schedule, e Entry) Schedule {
	if n := len(s); n > 0 {
		last := s[n-1]
		if last.Rest == e.Rest && (e.Rest || last.Pitch == e.Pitch) {
			return s
		}
	}
	return append(s, e)
}

// withDurations fills each entry's Duration with the gap to the next entry.
// The final entry, having no successor, sounds for one unit.
func withDurations(s Schedule, unit uint64) Schedule {
	for i := range s {
		if i+1 < len(s) {
			s[i].Duration = s[i+1].At - s[i].At
		} else {
			s[i].Duration = unit
		}
	}
	return s
}
