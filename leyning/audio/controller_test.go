package audio

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/leyningapp/leyn/leyning"
)

func testSources(n int) []leyning.Source {
	srcs := make([]leyning.Source, n)
	for i := range srcs {
		srcs[i] = leyning.Source{Path: fmt.Sprintf("t%d", i), ClipEnd: 5}
	}
	return srcs
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func resolve(t *testing.T, f *MockFactory, path string) *MockDecoder {
	t.Helper()
	load, ok := f.WaitLoad(path, 2*time.Second)
	if !ok {
		t.Fatalf("no load started for %s", path)
	}
	return load.Resolve()
}

func waitState(t *testing.T, c *Controller, want leyning.ControllerState) {
	t.Helper()
	waitFor(t, "state "+want.String(), func() bool { return c.State() == want })
}

func waitReady(t *testing.T, c *Controller, track int) {
	t.Helper()
	waitFor(t, fmt.Sprintf("track %d ready", track), func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.tracks[track] != nil && c.tracks[track].State() == leyning.TrackReady
	})
}

func TestStatusPatchMerge(t *testing.T) {
	p := SeekPatch(2.5, true).Merge(Play(false)).Merge(RatePatch(1.5))

	if p.Position == nil || *p.Position != 2.5 {
		t.Errorf("Position = %v, want 2.5", p.Position)
	}
	if p.ShouldPlay == nil || *p.ShouldPlay {
		t.Errorf("ShouldPlay = %v, want false", p.ShouldPlay)
	}
	if p.Rate == nil || *p.Rate != 1.5 {
		t.Errorf("Rate = %v, want 1.5", p.Rate)
	}
	if !(StatusPatch{}).Empty() || p.Empty() {
		t.Error("Empty() mismatch")
	}
}

func TestControllerNoSource(t *testing.T) {
	c := New(NewManualMockFactory(), nil)

	c.Play()
	c.Pause()
	c.Toggle()
	if err := c.SeekTo(0, 1); err != nil {
		t.Errorf("SeekTo() error = %v", err)
	}
	if got := c.State(); got != leyning.StateNoSource {
		t.Errorf("State() = %v, want no-source", got)
	}
	if c.Loaded() {
		t.Error("Loaded() = true, want false")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestControllerTransportIgnoredWhileInitializing(t *testing.T) {
	f := NewManualMockFactory()
	c := New(f, testSources(2))
	defer c.Close()

	c.Play()
	c.Toggle()

	d0 := resolve(t, f, "t0")
	waitState(t, c, leyning.StateIdle)

	if applied := d0.Applied(); len(applied) != 0 {
		t.Errorf("decoder received %d patches, want 0", len(applied))
	}
	if !c.Loaded() {
		t.Error("Loaded() = false after resolve")
	}
}

func TestControllerBuffersEarlySeek(t *testing.T) {
	f := NewManualMockFactory()
	c := New(f, testSources(2))
	defer c.Close()

	if err := c.SeekTo(0, 2.5); err != nil {
		t.Fatalf("SeekTo() error = %v", err)
	}
	if err := c.SetSpeed(1.5); err != nil {
		t.Fatalf("SetSpeed() error = %v", err)
	}
	if got := c.State(); got != leyning.StateSeeking {
		t.Errorf("State() = %v, want seeking", got)
	}

	d0 := resolve(t, f, "t0")
	waitState(t, c, leyning.StatePlaying)

	applied := d0.Applied()
	if len(applied) != 1 {
		t.Fatalf("decoder received %d patches, want 1 merged patch", len(applied))
	}
	p := applied[0]
	if p.Position == nil || *p.Position != 2.5 || p.ShouldPlay == nil || !*p.ShouldPlay || p.Rate == nil || *p.Rate != 1.5 {
		t.Errorf("merged patch = %+v", p)
	}
	if snap := c.Snapshot(); snap.Position != 2.5 || !snap.Playing {
		t.Errorf("Snapshot() = %+v", snap)
	}
}

func TestControllerSpeedAppliesToLaterTracks(t *testing.T) {
	f := NewManualMockFactory()
	c := New(f, testSources(4), WithRate(1.0))
	defer c.Close()

	if err := c.SetSpeed(1.25); err != nil {
		t.Fatalf("SetSpeed() error = %v", err)
	}
	if err := c.SetSpeed(3); !errors.Is(err, leyning.ErrInvalidRate) {
		t.Errorf("SetSpeed(3) error = %v, want ErrInvalidRate", err)
	}
	if err := c.SeekTo(3, 0); err != nil {
		t.Fatalf("SeekTo() error = %v", err)
	}

	load, ok := f.WaitLoad("t3", 2*time.Second)
	if !ok {
		t.Fatal("track 3 was not loaded")
	}
	if load.Initial.Rate != 1.25 {
		t.Errorf("initial rate = %v, want 1.25", load.Initial.Rate)
	}
	if !load.Initial.PitchCorrection {
		t.Error("pitch correction should default to on")
	}
}

func TestControllerPauseIntentSurvivesTrackEnd(t *testing.T) {
	f := NewManualMockFactory()
	c := New(f, testSources(2))
	defer c.Close()

	d0 := resolve(t, f, "t0")
	d1 := resolve(t, f, "t1")
	waitState(t, c, leyning.StateIdle)
	waitReady(t, c, 1)

	c.Play()
	c.sync()
	if got := c.State(); got != leyning.StatePlaying {
		t.Fatalf("State() = %v, want playing", got)
	}

	c.Pause()
	d0.Finish()
	c.sync()
	c.sync()

	snap := c.Snapshot()
	if snap.Track != 1 {
		t.Errorf("Track = %d, want 1", snap.Track)
	}
	if snap.State != leyning.StateIdle {
		t.Errorf("State = %v, want idle", snap.State)
	}
	if d1.Playing() {
		t.Error("next track started after the user paused")
	}
	for _, p := range d1.Applied() {
		if p.ShouldPlay != nil && *p.ShouldPlay {
			t.Errorf("next track received play patch %+v", p)
		}
	}
}

func TestControllerAdvancesAndFinishes(t *testing.T) {
	f := NewManualMockFactory()
	c := New(f, testSources(2))
	defer c.Close()

	d0 := resolve(t, f, "t0")
	d1 := resolve(t, f, "t1")
	waitState(t, c, leyning.StateIdle)
	waitReady(t, c, 1)

	c.Play()
	d0.Advance(1.0)
	d0.Finish()
	c.sync()
	c.sync()

	if snap := c.Snapshot(); snap.Track != 1 || snap.State != leyning.StatePlaying {
		t.Fatalf("Snapshot() = %+v, want track 1 playing", snap)
	}
	if !d1.Playing() || d1.Position() != 0 {
		t.Errorf("next track playing = %v at %v, want playing from 0", d1.Playing(), d1.Position())
	}

	d1.Finish()
	c.sync()
	if got := c.State(); got != leyning.StateFinished {
		t.Fatalf("State() = %v, want finished", got)
	}

	// Playing again restarts from the first track.
	c.Toggle()
	c.sync()
	c.sync()
	if snap := c.Snapshot(); snap.Track != 0 || snap.State != leyning.StatePlaying {
		t.Errorf("Snapshot() = %+v, want track 0 playing", snap)
	}
	if d0.Position() != 0 {
		t.Errorf("first track position = %v, want 0", d0.Position())
	}
}

func TestControllerCancelledSwitch(t *testing.T) {
	f := NewManualMockFactory()
	c := New(f, testSources(3))
	defer c.Close()

	d0 := resolve(t, f, "t0")
	resolve(t, f, "t1")
	waitState(t, c, leyning.StateIdle)

	c.Play()
	c.sync()

	if err := c.SeekTo(2, 1.0); err != nil {
		t.Fatalf("SeekTo() error = %v", err)
	}
	c.Pause()

	applied := d0.Applied()
	last := applied[len(applied)-1]
	if last.Position == nil || *last.Position != 0 || last.ShouldPlay == nil || *last.ShouldPlay {
		t.Errorf("previous track last patch = %+v, want stop at 0", last)
	}

	d2 := resolve(t, f, "t2")
	waitState(t, c, leyning.StateIdle)
	c.sync()

	if d2.Playing() {
		t.Error("cancelled switch left the new track playing")
	}
	if d2.Position() != 1.0 {
		t.Errorf("new track position = %v, want 1.0", d2.Position())
	}

	// Toggle after a cancelled switch plays, showing the intent stayed paused.
	c.Toggle()
	c.sync()
	if got := c.State(); got != leyning.StatePlaying {
		t.Errorf("State() after toggle = %v, want playing", got)
	}
}

func TestControllerLateConfirmationRepaused(t *testing.T) {
	f := NewManualMockFactory()
	c := New(f, testSources(2))
	defer c.Close()

	resolve(t, f, "t0")
	d1 := resolve(t, f, "t1")
	waitState(t, c, leyning.StateIdle)

	if err := c.SeekTo(1, 0.5); err != nil {
		t.Fatalf("SeekTo() error = %v", err)
	}
	c.Pause()
	d1.Emit()
	c.sync()
	c.sync()

	if got := c.State(); got != leyning.StateIdle {
		t.Errorf("State() = %v, want idle", got)
	}
	if d1.Playing() {
		t.Error("late confirmation left the track playing")
	}
}

func TestControllerDecoderFailure(t *testing.T) {
	f := NewManualMockFactory()
	c := New(f, testSources(1))
	defer c.Close()

	load, ok := f.WaitLoad("t0", 2*time.Second)
	if !ok {
		t.Fatal("no load started")
	}
	load.Fail(errors.New("unsupported codec"))

	var track *Track
	waitFor(t, "failed track", func() bool {
		c.mu.Lock()
		track = c.tracks[0]
		c.mu.Unlock()
		return track.State() == leyning.TrackFailed
	})

	if !errors.Is(track.Err(), leyning.ErrDecoderInit) {
		t.Errorf("track error = %v, want ErrDecoderInit", track.Err())
	}
	c.sync()
	if c.Loaded() {
		t.Error("Loaded() = true for a failed track")
	}
	c.Play()
	if got := c.State(); got != leyning.StateInitializing {
		t.Errorf("State() = %v, want initializing", got)
	}
}

func TestControllerFailedNextTrackStops(t *testing.T) {
	f := NewManualMockFactory()
	c := New(f, testSources(2))
	defer c.Close()

	d0 := resolve(t, f, "t0")
	load1, ok := f.WaitLoad("t1", 2*time.Second)
	if !ok {
		t.Fatal("no load started for t1")
	}
	load1.Fail(errors.New("truncated file"))
	waitFor(t, "failed next track", func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return c.tracks[1] != nil && c.tracks[1].State() == leyning.TrackFailed
	})
	waitState(t, c, leyning.StateIdle)

	c.Play()
	c.sync()
	d0.Advance(1.0)
	d0.Finish()
	c.sync()
	c.sync()

	snap := c.Snapshot()
	if snap.State != leyning.StateIdle || snap.Track != 1 || snap.Playing {
		t.Fatalf("Snapshot() = %+v, want track 1 idle", snap)
	}

	// The intent was cleared, so pausing leaves the state alone.
	c.Pause()
	if got := c.State(); got != leyning.StateIdle {
		t.Errorf("State() after pause = %v, want idle", got)
	}
}

func TestSnapshotInactive(t *testing.T) {
	tests := []struct {
		name string
		snap Snapshot
		want bool
	}{
		{"stopped at zero", Snapshot{State: leyning.StateIdle}, true},
		{"paused mid track", Snapshot{State: leyning.StateIdle, Position: 1.5}, false},
		{"playing from zero", Snapshot{State: leyning.StatePlaying, Playing: true}, false},
		{"switching to track start", Snapshot{State: leyning.StateSeeking, Track: 1}, false},
	}

	for _, tt := range tests {
		if got := tt.snap.Inactive(); got != tt.want {
			t.Errorf("%s: Inactive() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestControllerReleasesDistantTracks(t *testing.T) {
	f := NewManualMockFactory()
	c := New(f, testSources(5))
	defer c.Close()

	d0 := resolve(t, f, "t0")
	d1 := resolve(t, f, "t1")

	if err := c.SeekTo(4, 0); err != nil {
		t.Fatalf("SeekTo() error = %v", err)
	}

	waitFor(t, "track 0 unload", d0.Unloaded)
	waitFor(t, "track 1 unload", d1.Unloaded)
	if n := f.Loads("t4"); n != 1 {
		t.Errorf("track 4 loaded %d times, want 1", n)
	}
	if n := f.Loads("t3"); n != 0 {
		t.Errorf("track 3 loaded %d times, want 0", n)
	}
}

func TestControllerCloseUnloads(t *testing.T) {
	f := NewManualMockFactory()
	c := New(f, testSources(3))

	d0 := resolve(t, f, "t0")
	d1 := resolve(t, f, "t1")
	waitState(t, c, leyning.StateIdle)
	waitReady(t, c, 1)

	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !d0.Unloaded() || !d1.Unloaded() {
		t.Error("Close() did not unload every decoder")
	}
	if err := c.SeekTo(0, 0); !errors.Is(err, leyning.ErrSessionClosed) {
		t.Errorf("SeekTo() after Close error = %v, want ErrSessionClosed", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestControllerCloseWithPendingLoad(t *testing.T) {
	f := NewManualMockFactory()
	c := New(f, testSources(1))

	if _, ok := f.WaitLoad("t0", 2*time.Second); !ok {
		t.Fatal("no load started")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestControllerSubscribe(t *testing.T) {
	f := NewManualMockFactory()
	c := New(f, testSources(1))
	defer c.Close()

	var mu sync.Mutex
	var states []leyning.ControllerState
	unsubscribe := c.Subscribe(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s.State)
	})

	resolve(t, f, "t0")
	waitState(t, c, leyning.StateIdle)
	c.Play()
	c.sync()
	unsubscribe()
	c.Pause()
	c.sync()

	mu.Lock()
	defer mu.Unlock()
	if len(states) == 0 || states[len(states)-1] != leyning.StatePlaying {
		t.Errorf("states = %v, want last playing", states)
	}
}

func TestSimulatedMockFinishes(t *testing.T) {
	f := NewMockFactory(time.Millisecond, time.Second)
	src := leyning.Source{Path: "clip", ClipStart: 1, ClipEnd: 1.02}
	c := New(f, []leyning.Source{src})
	defer c.Close()

	waitState(t, c, leyning.StateIdle)
	c.Play()
	waitState(t, c, leyning.StateFinished)
}
