package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/YushiOMOTE/toio-midi/internal/logger"
	"github.com/YushiOMOTE/toio-midi/sdk/contracts"
)

// fakeDispatcher records the kinds of commands one device received.
type fakeDispatcher struct {
	mu     sync.Mutex
	calls  []string
	failOn int // 1-based call index that fails; 0 = never
}

func (f *fakeDispatcher) record(kind string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, kind)
	if f.failOn != 0 && len(f.calls) == f.failOn {
		return errors.New("transport rejected command")
	}
	return nil
}

func (f *fakeDispatcher) Play(_ context.Context, _ uint8, _ time.Duration) error {
	return f.record("play")
}

func (f *fakeDispatcher) Stop(_ context.Context) error { return f.record("stop") }
func (f *fakeDispatcher) Close() error                 { return nil }

func (f *fakeDispatcher) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// fakeTransport hands out pre-made dispatchers keyed by device id.
type fakeTransport struct {
	devices     []contracts.DeviceInfo
	dispatchers map[int]*fakeDispatcher
	opened      int
}

func (f *fakeTransport) Devices() ([]contracts.DeviceInfo, error) {
	return f.devices, nil
}

func (f *fakeTransport) Open(d contracts.DeviceInfo) (contracts.Dispatcher, error) {
	f.opened++
	return f.dispatchers[d.ID], nil
}

func (f *fakeTransport) Close() error { return nil }

func twoCubeTransport() *fakeTransport {
	return &fakeTransport{
		devices: []contracts.DeviceInfo{
			{ID: 0, Name: "cube-0"},
			{ID: 1, Name: "cube-1"},
		},
		dispatchers: map[int]*fakeDispatcher{
			0: {},
			1: {},
		},
	}
}

func testScore() *contracts.Score {
	return &contracts.Score{
		TimeBase: 480,
		Tracks: []contracts.Track{
			{Index: 0, Events: []contracts.Event{
				{At: 0, Pitch: 60, Velocity: 100, Track: 0},
				{At: 80, Pitch: 60, Velocity: 0, Track: 0},
			}},
			{Index: 1, Events: []contracts.Event{
				{At: 0, Pitch: 64, Velocity: 100, Track: 1},
				{At: 80, Pitch: 64, Velocity: 0, Track: 1},
			}},
		},
	}
}

func newTestPlayer(t *testing.T) *Player {
	t.Helper()
	p, err := NewPlayer(
		contracts.WithLogger(logger.NewNopLogger()),
		contracts.WithStartDelay(time.Millisecond),
	)
	if err != nil {
		t.Fatalf("NewPlayer: %v", err)
	}
	return p
}

func TestPlayBothDevices(t *testing.T) {
	p := newTestPlayer(t)
	tr := twoCubeTransport()

	rules := []contracts.Rule{
		{Device: 0, Tracks: []int{0}},
		{Device: 1, Tracks: []int{1}},
	}
	if err := p.Play(context.Background(), testScore(), rules, tr); err != nil {
		t.Fatalf("Play: %v", err)
	}

	for id, d := range tr.dispatchers {
		kinds := d.kinds()
		if len(kinds) == 0 || kinds[0] != "play" || kinds[len(kinds)-1] != "stop" {
			t.Errorf("device %d calls = %v, want play...stop", id, kinds)
		}
	}
}

// A failing device terminates alone; its sibling completes its schedule.
func TestPlayIsolatesDeviceFailure(t *testing.T) {
	p := newTestPlayer(t)
	tr := twoCubeTransport()
	tr.dispatchers[0].failOn = 1

	rules := []contracts.Rule{
		{Device: 0, Tracks: []int{0}},
		{Device: 1, Tracks: []int{1}},
	}
	err := p.Play(context.Background(), testScore(), rules, tr)
	if !errors.Is(err, contracts.ErrDispatchFailure) {
		t.Fatalf("Play = %v, want ErrDispatchFailure", err)
	}

	healthy := tr.dispatchers[1].kinds()
	if len(healthy) == 0 || healthy[len(healthy)-1] != "stop" {
		t.Errorf("healthy device did not complete: %v", healthy)
	}
}

// Resolution errors must surface before any device is opened or commanded.
// Rules arriving through the API skip ParseRule, so both range bounds have
// to be caught here, not just the textual path.
func TestPlayFailsFastOnBadRule(t *testing.T) {
	p := newTestPlayer(t)

	for _, track := range []int{5, -1} {
		tr := twoCubeTransport()
		rules := []contracts.Rule{{Device: 0, Tracks: []int{track}}}
		err := p.Play(context.Background(), testScore(), rules, tr)
		if !errors.Is(err, contracts.ErrTrackOutOfRange) {
			t.Fatalf("Play(track %d) = %v, want ErrTrackOutOfRange", track, err)
		}
		if tr.opened != 0 {
			t.Errorf("track %d: %d dispatchers opened before playback was aborted", track, tr.opened)
		}
	}
}

func TestPlayDefaultAssignment(t *testing.T) {
	p := newTestPlayer(t)
	tr := twoCubeTransport()

	if err := p.Play(context.Background(), testScore(), nil, tr); err != nil {
		t.Fatalf("Play: %v", err)
	}
	for id, d := range tr.dispatchers {
		if len(d.kinds()) == 0 {
			t.Errorf("device %d idle, want default assignment to play track %d", id, id)
		}
	}
}

func TestPlaySkipsUnconnectedDevice(t *testing.T) {
	p := newTestPlayer(t)
	tr := twoCubeTransport()

	rules := []contracts.Rule{
		{Device: 1, Tracks: []int{1}},
		{Device: 7, Tracks: []int{0}}, // nobody home
	}
	if err := p.Play(context.Background(), testScore(), rules, tr); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if tr.opened != 1 {
		t.Errorf("opened %d dispatchers, want 1", tr.opened)
	}
}

// A device whose merged schedule is empty claims no transport resources.
func TestPlaySkipsIdleDevice(t *testing.T) {
	p := newTestPlayer(t)
	tr := twoCubeTransport()

	sc := testScore()
	sc.Tracks = append(sc.Tracks, contracts.Track{Index: 2}) // no events

	rules := []contracts.Rule{
		{Device: 0, Tracks: []int{2}},
		{Device: 1, Tracks: []int{1}},
	}
	if err := p.Play(context.Background(), sc, rules, tr); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if tr.opened != 1 {
		t.Errorf("opened %d dispatchers, want 1 (idle device needs none)", tr.opened)
	}
	if got := tr.dispatchers[0].kinds(); len(got) != 0 {
		t.Errorf("idle device received commands: %v", got)
	}
}

// With connected devices but nothing to play, playback is a clean no-op
// rather than a device error.
func TestPlayEmptyScoreIsNoOp(t *testing.T) {
	p := newTestPlayer(t)
	tr := twoCubeTransport()

	sc := &contracts.Score{TimeBase: 480, Tracks: []contracts.Track{{Index: 0}}}
	if err := p.Play(context.Background(), sc, []contracts.Rule{{Device: 0, Tracks: []int{0}}}, tr); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if tr.opened != 0 {
		t.Errorf("opened %d dispatchers, want 0", tr.opened)
	}
}

func TestNewTransportUnknownName(t *testing.T) {
	if _, err := NewTransport("carrier-pigeon"); !errors.Is(err, ErrUnknownTransport) {
		t.Fatalf("NewTransport = %v, want ErrUnknownTransport", err)
	}
}
