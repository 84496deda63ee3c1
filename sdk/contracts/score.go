package contracts

// Event is a single timestamped note event produced by score loading.
// Times are absolute milliseconds from the score origin; the tempo map of the
// source file is already applied. A velocity of zero encodes a note-off.
type Event struct {
	At       uint64 // Time of the event in milliseconds from the score origin.
	Pitch    uint8  // MIDI note number (0-127).
	Velocity uint8  // Note strength; 0 means the note is released.
	Track    int    // Index of the originating source track.
}

// On reports whether the event starts a note.
func (e Event) On() bool {
	return e.Velocity > 0
}

// Track is an immutable, time-ordered sequence of note events for one source
// track of the score.
type Track struct {
	Index  int     // Position of the track in the source file.
	Events []Event // Events ordered by ascending At.
}

// Score holds the parsed source score.
// It is produced once at load time and never mutated afterwards.
type Score struct {
	Tracks []Track // All tracks, in file order.
	// Ticks per quarter note of the source file. Informational only: event
	// times are already in milliseconds, so playback never consults it.
	TimeBase uint16
}

// TrackCount returns the number of tracks in the score.
func (s *Score) TrackCount() int {
	return len(s.Tracks)
}

// NoteTracks returns the indices of tracks that contain at least one note-on
// event. Tracks carrying only meta or control data are omitted.
func (s *Score) NoteTracks() []int {
	var out []int
	for _, t := range s.Tracks {
		for _, e := range t.Events {
			if e.On() {
				out = append(out, t.Index)
				break
			}
		}
	}
	return out
}
