package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/leyningapp/leyn/leyning"
)

type switchState int

const (
	switchNone switchState = iota
	switchPending
	switchCancelled
)

// Snapshot is the controller state as seen by the UI.
type Snapshot struct {
	State    leyning.ControllerState
	Loaded   bool // Current track's decoder is ready
	Track    int
	Tracks   int
	Position float64
	Playing  bool
	Rate     float64
}

// Inactive reports whether playback is stopped at time zero, which is
// distinct from playing the first word. A pending switch is never inactive.
func (s Snapshot) Inactive() bool {
	return s.State != leyning.StateSeeking && !s.Playing && s.Position == 0
}

type event struct {
	track   *Track
	status  AudioStatus
	ready   bool
	err     error
	barrier chan struct{}
}

// Option configures a Controller.
type Option func(*Controller)

// WithRate sets the initial playback rate.
func WithRate(rate float64) Option {
	return func(c *Controller) {
		if rate >= leyning.MinRate && rate <= leyning.MaxRate {
			c.rate = rate
		}
	}
}

// WithPitchCorrection sets whether rate changes preserve pitch.
func WithPitchCorrection(enabled bool) Option {
	return func(c *Controller) {
		c.pitchCorrection = enabled
	}
}

// Controller plays an ordered list of sources with one transport. Only the
// current track and the next one are kept loaded.
type Controller struct {
	factory         DecoderFactory
	sources         []leyning.Source
	pitchCorrection bool

	ctx    context.Context
	cancel context.CancelFunc
	events *mailbox[event]
	wg     sync.WaitGroup

	mu        sync.Mutex
	tracks    []*Track
	current   int
	sm        *leyning.StateMachine
	switching switchState
	wantPlay  bool
	rate      float64
	status    Loaded
	closed    bool

	listeners map[int]func(Snapshot)
	nextID    int
}

// New creates a controller and starts loading the first tracks. With no
// sources the controller stays in StateNoSource.
func New(factory DecoderFactory, sources []leyning.Source, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		factory:         factory,
		sources:         sources,
		pitchCorrection: true,
		ctx:             ctx,
		cancel:          cancel,
		events:          newMailbox[event](),
		tracks:          make([]*Track, len(sources)),
		rate:            1.0,
		listeners:       make(map[int]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.status = Loaded{Rate: c.rate}

	if len(sources) == 0 {
		c.sm = leyning.NewStateMachine(leyning.StateNoSource)
		return c
	}
	c.sm = leyning.NewStateMachine(leyning.StateInitializing)

	c.wg.Add(1)
	go c.loop()

	c.mu.Lock()
	c.ensureTracksLocked()
	c.mu.Unlock()

	log.Debug("audio controller created", "tracks", len(sources), "rate", c.rate)
	return c
}

// Play resumes the current track. It does nothing until a track is loaded.
// After the last track finished, playback restarts from the beginning.
func (c *Controller) Play() {
	c.mu.Lock()
	if c.closed || !c.sm.Current().AcceptsTransport() {
		c.mu.Unlock()
		return
	}
	if c.sm.Current() == leyning.StateFinished {
		c.seekLocked(0, 0)
	} else {
		c.wantPlay = true
		c.applyCurrentLocked(Play(true))
	}
	c.unlockAndNotify()
}

// Pause pauses the current track. A pause during a track switch cancels
// the switch's autoplay.
func (c *Controller) Pause() {
	c.mu.Lock()
	if c.closed || !c.sm.Current().AcceptsTransport() {
		c.mu.Unlock()
		return
	}
	c.wantPlay = false
	if c.switching == switchPending {
		c.switching = switchCancelled
	}
	c.applyCurrentLocked(Play(false))
	c.unlockAndNotify()
}

// Toggle pauses when playback is intended and plays otherwise.
func (c *Controller) Toggle() {
	c.mu.Lock()
	want := c.wantPlay
	c.mu.Unlock()

	if want {
		c.Pause()
	} else {
		c.Play()
	}
}

// SeekTo moves to seconds within track and starts playing. Seeks issued
// while the track loads are applied when it is ready.
func (c *Controller) SeekTo(track int, seconds float64) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return leyning.ErrSessionClosed
	}
	if c.sm.Current() == leyning.StateNoSource {
		c.mu.Unlock()
		return nil
	}
	if track < 0 || track >= len(c.sources) {
		c.mu.Unlock()
		return fmt.Errorf("%w: %d of %d", leyning.ErrInvalidTrack, track, len(c.sources))
	}
	if seconds < 0 {
		seconds = 0
	}

	c.seekLocked(track, seconds)
	c.unlockAndNotify()
	return nil
}

func (c *Controller) seekLocked(track int, seconds float64) {
	if track != c.current {
		if prev := c.tracks[c.current]; prev != nil {
			if err := prev.Apply(SeekPatch(0, false)); err != nil {
				log.Debug("failed to stop previous track", "track", c.current, "err", err)
			}
		}
		c.current = track
		c.ensureTracksLocked()
	}

	t := c.tracks[track]
	if t.State() == leyning.TrackFailed {
		c.wantPlay = false
		c.switching = switchNone
		c.setStateLocked(leyning.StateIdle)
		return
	}

	c.wantPlay = true
	c.switching = switchPending
	c.status = Loaded{Position: seconds, Rate: c.rate}
	c.setStateLocked(leyning.StateSeeking)

	if err := t.Apply(SeekPatch(seconds, true)); err != nil {
		log.Warn("seek failed", "track", track, "position", seconds, "err", err)
	}
}

// SetSpeed sets the rate of every loaded track and of tracks loaded later.
func (c *Controller) SetSpeed(rate float64) error {
	if rate < leyning.MinRate || rate > leyning.MaxRate {
		return fmt.Errorf("%w: %v", leyning.ErrInvalidRate, rate)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return leyning.ErrSessionClosed
	}
	c.rate = rate
	for _, t := range c.tracks {
		if t == nil {
			continue
		}
		if err := t.Apply(RatePatch(rate)); err != nil {
			log.Debug("failed to set track rate", "track", t.Index(), "err", err)
		}
	}
	c.mu.Unlock()

	log.Debug("playback rate changed", "rate", rate)
	return nil
}

// Snapshot returns the current controller state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Loaded reports whether the current track's decoder is ready.
func (c *Controller) Loaded() bool {
	return c.Snapshot().Loaded
}

// State returns the aggregate controller state.
func (c *Controller) State() leyning.ControllerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sm.Current()
}

// Subscribe registers fn to receive a snapshot after every change. The
// returned function removes the subscription.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.listeners[id] = fn

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

// Close stops the event loop and releases every decoder.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	tracks := c.tracks
	c.tracks = nil
	c.listeners = nil
	c.mu.Unlock()

	c.cancel()
	c.events.close()
	c.wg.Wait()

	var firstErr error
	for _, t := range tracks {
		if t == nil {
			continue
		}
		if err := t.release(); err != nil {
			log.Warn("failed to unload track", "track", t.Index(), "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	log.Debug("audio controller closed")
	return firstErr
}

// ensureTracksLocked creates the current and next tracks and releases
// tracks outside that window, keeping the previous one for quick rewinds.
func (c *Controller) ensureTracksLocked() {
	for i := c.current; i <= c.current+1 && i < len(c.sources); i++ {
		if c.tracks[i] != nil {
			continue
		}
		t := newTrack(i, c.sources[i])
		c.tracks[i] = t

		initial := InitialStatus{Rate: c.rate, PitchCorrection: c.pitchCorrection}
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			t.load(c.ctx, c.factory, initial,
				func(s AudioStatus) { c.events.post(event{track: t, status: s}) },
				func(err error) { c.events.post(event{track: t, ready: true, err: err}) },
			)
		}()
	}

	for i, t := range c.tracks {
		if t == nil || (i >= c.current-1 && i <= c.current+1) {
			continue
		}
		c.tracks[i] = nil
		if err := t.release(); err != nil {
			log.Warn("failed to unload track", "track", i, "err", err)
		}
	}
}

func (c *Controller) applyCurrentLocked(p StatusPatch) {
	t := c.tracks[c.current]
	if t == nil {
		return
	}
	if err := t.Apply(p); err != nil {
		log.Debug("failed to apply patch", "track", c.current, "err", err)
	}
}

func (c *Controller) setStateLocked(s leyning.ControllerState) {
	from := c.sm.Current()
	if from == s {
		return
	}
	if !c.sm.Transition(s) {
		log.Debug("ignored controller transition", "from", from, "to", s)
		return
	}
	log.Debug("controller state", "from", from, "to", s, "track", c.current)
}

func (c *Controller) snapshotLocked() Snapshot {
	loaded := false
	if c.current < len(c.tracks) && c.tracks[c.current] != nil {
		loaded = c.tracks[c.current].State() == leyning.TrackReady
	}
	return Snapshot{
		State:    c.sm.Current(),
		Loaded:   loaded,
		Track:    c.current,
		Tracks:   len(c.sources),
		Position: c.status.Position,
		Playing:  c.status.IsPlaying,
		Rate:     c.rate,
	}
}

// unlockAndNotify releases c.mu and calls listeners with a fresh snapshot.
func (c *Controller) unlockAndNotify() {
	snap := c.snapshotLocked()
	listeners := make([]func(Snapshot), 0, len(c.listeners))
	for _, fn := range c.listeners {
		listeners = append(listeners, fn)
	}
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

// sync blocks until every event posted before the call is handled.
func (c *Controller) sync() {
	if len(c.sources) == 0 {
		return
	}
	done := make(chan struct{})
	c.events.post(event{barrier: done})
	select {
	case <-done:
	case <-c.ctx.Done():
	}
}

func (c *Controller) loop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-c.events.notify:
			for _, ev := range c.events.drain() {
				c.handle(ev)
			}
		}
	}
}

func (c *Controller) handle(ev event) {
	if ev.barrier != nil {
		close(ev.barrier)
		return
	}

	c.mu.Lock()
	if c.closed || c.current >= len(c.tracks) || ev.track != c.tracks[c.current] {
		c.mu.Unlock()
		return
	}

	switch {
	case ev.ready:
		c.readyLocked(ev.err)
	case ev.status != nil:
		switch s := ev.status.(type) {
		case Loaded:
			c.reduceLocked(s)
		case LoadError:
			log.Debug("current track failed to load", "track", c.current, "reason", s.Reason)
		case NotLoaded:
			c.status = Loaded{Rate: c.rate}
		}
	}
	c.unlockAndNotify()
}

func (c *Controller) readyLocked(err error) {
	if err != nil {
		c.wantPlay = false
		if c.switching != switchNone {
			c.switching = switchNone
			c.setStateLocked(leyning.StateIdle)
		}
		return
	}
	if c.sm.Current() == leyning.StateInitializing {
		c.setStateLocked(leyning.StateIdle)
	}
}

func (c *Controller) reduceLocked(s Loaded) {
	c.status = s

	if s.DidJustFinish {
		c.finishedLocked()
		return
	}

	switch c.switching {
	case switchPending:
		if s.IsPlaying {
			c.switching = switchNone
			c.setStateLocked(leyning.StatePlaying)
		}
		return
	case switchCancelled:
		if s.IsPlaying {
			c.applyCurrentLocked(Play(false))
		}
		c.switching = switchNone
		c.setStateLocked(leyning.StateIdle)
		return
	}

	if c.sm.Current() == leyning.StateFinished && !s.IsPlaying {
		return
	}
	if s.IsPlaying {
		c.setStateLocked(leyning.StatePlaying)
	} else {
		c.setStateLocked(leyning.StateIdle)
	}
}

// finishedLocked handles the natural end of the current track. The next
// track starts only if playback is still intended.
func (c *Controller) finishedLocked() {
	c.switching = switchNone

	next := c.current + 1
	if next >= len(c.sources) {
		c.wantPlay = false
		c.status.IsPlaying = false
		c.setStateLocked(leyning.StateFinished)
		return
	}

	c.current = next
	c.ensureTracksLocked()
	c.status = Loaded{Rate: c.rate}
	t := c.tracks[next]

	if t.State() == leyning.TrackFailed {
		log.Warn("next track failed to load, stopping", "track", next, "err", t.Err())
		c.wantPlay = false
		c.setStateLocked(leyning.StateIdle)
		return
	}

	if c.wantPlay {
		c.switching = switchPending
		c.setStateLocked(leyning.StateSeeking)
		if err := t.Apply(SeekPatch(0, true)); err != nil {
			log.Warn("failed to start next track", "track", next, "err", err)
		}
		return
	}

	if err := t.Apply(SeekPatch(0, false)); err != nil {
		log.Debug("failed to rewind next track", "track", next, "err", err)
	}
	if t.State() == leyning.TrackReady {
		c.setStateLocked(leyning.StateIdle)
	} else {
		c.setStateLocked(leyning.StateInitializing)
	}
}
