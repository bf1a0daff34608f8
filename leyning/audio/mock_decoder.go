package audio

import (
	"context"
	"sync"
	"time"

	"github.com/leyningapp/leyn/leyning"
)

// MockFactory creates in-memory decoders. A manual factory blocks every
// load until it is resolved through WaitLoad; a simulated factory loads
// immediately and advances playback on a clock.
type MockFactory struct {
	manual   bool
	interval time.Duration
	fallback float64

	mu      sync.Mutex
	loads   map[string][]*MockLoad
	changed chan struct{}
}

// NewMockFactory returns a factory whose decoders advance every interval.
// Sources without a clip end play for fallback.
func NewMockFactory(interval, fallback time.Duration) *MockFactory {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return &MockFactory{
		interval: interval,
		fallback: fallback.Seconds(),
		loads:    make(map[string][]*MockLoad),
		changed:  make(chan struct{}),
	}
}

// NewManualMockFactory returns a factory whose loads and playback are
// driven by the caller.
func NewManualMockFactory() *MockFactory {
	return &MockFactory{
		manual:  true,
		loads:   make(map[string][]*MockLoad),
		changed: make(chan struct{}),
	}
}

// MockLoad is a load waiting to be resolved.
type MockLoad struct {
	Source  leyning.Source
	Initial InitialStatus

	onStatus func(AudioStatus)
	result   chan mockResult
}

type mockResult struct {
	dec *MockDecoder
	err error
}

// Resolve completes the load and returns its decoder.
func (l *MockLoad) Resolve() *MockDecoder {
	d := newMockDecoder(l.Source, l.Initial, l.onStatus)
	l.result <- mockResult{dec: d}
	return d
}

// Fail completes the load with err.
func (l *MockLoad) Fail(err error) {
	l.result <- mockResult{err: err}
}

// Load implements DecoderFactory.
func (f *MockFactory) Load(ctx context.Context, src leyning.Source, initial InitialStatus, onStatus func(AudioStatus)) (Decoder, error) {
	if !f.manual {
		d := newMockDecoder(src, initial, onStatus)
		if d.duration <= 0 {
			d.duration = f.fallback
		}
		d.stop = make(chan struct{})
		go d.run(f.interval)
		return d, nil
	}

	load := &MockLoad{
		Source:   src,
		Initial:  initial,
		onStatus: onStatus,
		result:   make(chan mockResult, 1),
	}

	f.mu.Lock()
	f.loads[src.Path] = append(f.loads[src.Path], load)
	close(f.changed)
	f.changed = make(chan struct{})
	f.mu.Unlock()

	select {
	case r := <-load.result:
		if r.err != nil {
			return nil, r.err
		}
		return r.dec, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// WaitLoad returns the most recent load of path, waiting up to timeout for
// one to start.
func (f *MockFactory) WaitLoad(path string, timeout time.Duration) (*MockLoad, bool) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		f.mu.Lock()
		loads := f.loads[path]
		changed := f.changed
		f.mu.Unlock()

		if len(loads) > 0 {
			return loads[len(loads)-1], true
		}

		select {
		case <-changed:
		case <-deadline.C:
			return nil, false
		}
	}
}

// Loads returns how many times path was loaded.
func (f *MockFactory) Loads(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.loads[path])
}

// MockDecoder is an in-memory decoder. Apply reports a status synchronously.
type MockDecoder struct {
	onStatus func(AudioStatus)
	duration float64
	stop     chan struct{}

	mu       sync.Mutex
	position float64
	rate     float64
	playing  bool
	unloaded bool
	applied  []StatusPatch
}

func newMockDecoder(src leyning.Source, initial InitialStatus, onStatus func(AudioStatus)) *MockDecoder {
	rate := initial.Rate
	if rate <= 0 {
		rate = 1.0
	}
	return &MockDecoder{
		onStatus: onStatus,
		duration: src.Duration().Seconds(),
		rate:     rate,
	}
}

// Apply implements Decoder.
func (d *MockDecoder) Apply(p StatusPatch) error {
	d.mu.Lock()
	if d.unloaded {
		d.mu.Unlock()
		return leyning.ErrTrackReleased
	}
	d.applied = append(d.applied, p)
	if p.Rate != nil {
		d.rate = *p.Rate
	}
	if p.Position != nil {
		d.position = *p.Position
	}
	if p.ShouldPlay != nil {
		d.playing = *p.ShouldPlay
	}
	st := d.statusLocked()
	d.mu.Unlock()

	d.onStatus(st)
	return nil
}

// Unload implements Decoder.
func (d *MockDecoder) Unload() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.unloaded {
		return nil
	}
	d.unloaded = true
	d.playing = false
	if d.stop != nil {
		close(d.stop)
	}
	return nil
}

// Emit reports the decoder's current status.
func (d *MockDecoder) Emit() {
	d.mu.Lock()
	st := d.statusLocked()
	d.mu.Unlock()
	d.onStatus(st)
}

// Advance moves a playing decoder forward by seconds of media time.
func (d *MockDecoder) Advance(seconds float64) {
	d.mu.Lock()
	if d.playing {
		d.position += seconds
	}
	st := d.statusLocked()
	d.mu.Unlock()
	d.onStatus(st)
}

// Finish stops the decoder at its end and reports DidJustFinish.
func (d *MockDecoder) Finish() {
	d.mu.Lock()
	d.playing = false
	if d.duration > 0 {
		d.position = d.duration
	}
	st := d.statusLocked()
	d.mu.Unlock()

	st.DidJustFinish = true
	d.onStatus(st)
}

// Playing reports whether the decoder was last told to play.
func (d *MockDecoder) Playing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playing
}

// Position returns the decoder position in seconds.
func (d *MockDecoder) Position() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.position
}

// Rate returns the decoder's playback rate.
func (d *MockDecoder) Rate() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rate
}

// Unloaded reports whether Unload was called.
func (d *MockDecoder) Unloaded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unloaded
}

// Applied returns every patch the decoder received.
func (d *MockDecoder) Applied() []StatusPatch {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]StatusPatch(nil), d.applied...)
}

func (d *MockDecoder) statusLocked() Loaded {
	return Loaded{Position: d.position, IsPlaying: d.playing, Rate: d.rate}
}

func (d *MockDecoder) run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
		}

		d.mu.Lock()
		if !d.playing {
			d.mu.Unlock()
			continue
		}
		d.position += interval.Seconds() * d.rate
		st := d.statusLocked()
		if d.duration > 0 && d.position >= d.duration {
			d.position = d.duration
			d.playing = false
			st = d.statusLocked()
			st.DidJustFinish = true
		}
		d.mu.Unlock()

		d.onStatus(st)
	}
}
