package merge

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/YushiOMOTE/toio-midi/internal/logger"
	"github.com/YushiOMOTE/toio-midi/sdk/contracts"
)

func newTestMerger(t *testing.T, unit uint64) *Merger {
	t.Helper()
	m, err := NewMerger(unit, logger.NewNopLogger())
	if err != nil {
		t.Fatalf("NewMerger(%d): %v", unit, err)
	}
	return m
}

func track(index int, events ...contracts.Event) contracts.Track {
	for i := range events {
		events[i].Track = index
	}
	return contracts.Track{Index: index, Events: events}
}

func on(at uint64, pitch uint8) contracts.Event {
	return contracts.Event{At: at, Pitch: pitch, Velocity: 100}
}

func off(at uint64, pitch uint8) contracts.Event {
	return contracts.Event{At: at, Pitch: pitch, Velocity: 0}
}

func TestNewMergerRejectsZeroUnit(t *testing.T) {
	if _, err := NewMerger(0, logger.NewNopLogger()); err == nil {
		t.Fatal("NewMerger(0) succeeded, want error")
	}
}

func TestQuantizeRoundsHalfUp(t *testing.T) {
	m := newTestMerger(t, 40)
	cases := []struct{ in, want uint64 }{
		{0, 0}, {19, 0}, {20, 40}, {38, 40}, {42, 40}, {59, 40}, {60, 80}, {80, 80},
	}
	for _, c := range cases {
		if got := m.Quantize(c.in); got != c.want {
			t.Errorf("Quantize(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestQuantizeIdempotent(t *testing.T) {
	m := newTestMerger(t, 40)
	for _, in := range []uint64{0, 17, 40, 55, 1203} {
		once := m.Quantize(in)
		if twice := m.Quantize(once); twice != once {
			t.Errorf("Quantize(Quantize(%d)) = %d, want %d", in, twice, once)
		}
	}
}

func TestMergeEmptyYieldsEmptySchedule(t *testing.T) {
	m := newTestMerger(t, 40)
	if got := m.Merge(nil); len(got) != 0 {
		t.Errorf("Merge(nil) = %v, want empty", got)
	}
	if got := m.Merge([]contracts.Track{track(0), track(1)}); len(got) != 0 {
		t.Errorf("Merge(eventless tracks) = %v, want empty", got)
	}
}

// Two tracks collide in the same 40ms slot: the lower track index wins and
// the schedule carries exactly one entry at the quantized time.
func TestMergeTieBreakPrefersLowerTrack(t *testing.T) {
	m := newTestMerger(t, 40)
	sched := m.Merge([]contracts.Track{
		track(0, on(38, 72)),
		track(1, on(42, 60)),
	})

	if len(sched) != 1 {
		t.Fatalf("schedule has %d entries, want 1: %v", len(sched), sched)
	}
	e := sched[0]
	if e.At != 40 || e.Rest || e.Pitch != 72 {
		t.Errorf("entry = %+v, want pitch 72 at 40", e)
	}
}

func TestMergeTieBreakPrefersLowerPitchWithinTrack(t *testing.T) {
	m := newTestMerger(t, 40)
	sched := m.Merge([]contracts.Track{
		track(0, on(40, 72), on(41, 60)),
	})

	if len(sched) != 1 || sched[0].Pitch != 60 {
		t.Fatalf("schedule = %v, want single entry with pitch 60", sched)
	}
}

func TestMergeDeterministic(t *testing.T) {
	tracks := []contracts.Track{
		track(0, on(0, 60), off(400, 60), on(410, 64), off(800, 64)),
		track(1, on(5, 67), on(395, 55), off(790, 55)),
		track(2, on(200, 48), off(600, 48)),
	}

	m := newTestMerger(t, 40)
	first := fmt.Sprintf("%v", m.Merge(tracks))
	second := fmt.Sprintf("%v", m.Merge(tracks))
	if first != second {
		t.Errorf("merge not deterministic:\n%s\n%s", first, second)
	}
}

// No two entries may overlap in their sounding intervals.
func TestMergeMonophonicInvariant(t *testing.T) {
	tracks := []contracts.Track{
		track(0, on(0, 60), on(100, 62), off(300, 62)),
		track(1, on(50, 70), off(250, 70), on(260, 71)),
		track(2, on(90, 40), off(500, 40)),
	}

	m := newTestMerger(t, 40)
	sched := m.Merge(tracks)
	if len(sched) == 0 {
		t.Fatal("schedule is empty")
	}
	for i := 1; i < len(sched); i++ {
		if sched[i].At <= sched[i-1].At {
			t.Errorf("entries %d/%d not strictly ordered: %v", i-1, i, sched)
		}
		if end := sched[i-1].At + sched[i-1].Duration; end > sched[i].At {
			t.Errorf("entry %d sounds past entry %d (%d > %d)", i-1, i, end, sched[i].At)
		}
	}
}

func TestMergeNoteOffClosesVoice(t *testing.T) {
	m := newTestMerger(t, 40)
	sched := m.Merge([]contracts.Track{
		track(0, on(0, 60), off(160, 60)),
	})

	want := Schedule{
		{At: 0, Pitch: 60, Duration: 160},
		{At: 160, Rest: true, Duration: 40},
	}
	if !reflect.DeepEqual(sched, want) {
		t.Errorf("schedule = %v, want %v", sched, want)
	}
}

// A note-off for a note that lost its slot must not silence the winner.
func TestMergeForeignNoteOffIgnored(t *testing.T) {
	m := newTestMerger(t, 40)
	sched := m.Merge([]contracts.Track{
		track(0, on(0, 60), off(400, 60)),
		track(1, on(0, 70), off(160, 70)),
	})

	want := Schedule{
		{At: 0, Pitch: 60, Duration: 400},
		{At: 400, Rest: true, Duration: 40},
	}
	if !reflect.DeepEqual(sched, want) {
		t.Errorf("schedule = %v, want %v", sched, want)
	}
}

func TestMergeNoteOnPreemptsSoundingNote(t *testing.T) {
	m := newTestMerger(t, 40)
	sched := m.Merge([]contracts.Track{
		track(0, on(0, 60)),
		track(1, on(80, 64)),
	})

	want := Schedule{
		{At: 0, Pitch: 60, Duration: 80},
		{At: 80, Pitch: 64, Duration: 40},
	}
	if !reflect.DeepEqual(sched, want) {
		t.Errorf("schedule = %v, want %v", sched, want)
	}
}

// Sequential notes closer together than the unit legitimately collapse into
// one slot; the tie-break picks a single survivor.
func TestMergeCoarseUnitCollapsesNeighbors(t *testing.T) {
	m := newTestMerger(t, 1000)
	sched := m.Merge([]contracts.Track{
		track(0, on(0, 60), on(300, 62), on(450, 64)),
	})

	if len(sched) != 1 {
		t.Fatalf("schedule = %v, want a single collapsed entry", sched)
	}
	if sched[0].Pitch != 60 {
		t.Errorf("survivor pitch = %d, want 60 (lowest pitch in slot)", sched[0].Pitch)
	}
}

// Re-sounding the same pitch back to back is indistinguishable on a
// monophonic device; consecutive identical entries squash into one.
func TestMergeSquashesRepeatedPitch(t *testing.T) {
	m := newTestMerger(t, 40)
	sched := m.Merge([]contracts.Track{
		track(0, on(0, 60), on(40, 60), on(80, 60), off(120, 60)),
	})

	want := Schedule{
		{At: 0, Pitch: 60, Duration: 120},
		{At: 120, Rest: true, Duration: 40},
	}
	if !reflect.DeepEqual(sched, want) {
		t.Errorf("schedule = %v, want %v", sched, want)
	}
}
