package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/leyningapp/leyn/leyning"
)

// Track is one audio source behind a handle that may still be resolving.
// Patches applied while the decoder loads are merged and replayed once it
// is ready.
type Track struct {
	index  int
	source leyning.Source

	mu       sync.Mutex
	state    leyning.TrackState
	decoder  Decoder
	pending  StatusPatch
	released bool
	err      error
}

func newTrack(index int, src leyning.Source) *Track {
	return &Track{index: index, source: src}
}

// Index returns the track's position in its controller.
func (t *Track) Index() int { return t.index }

// Source returns the track's audio source.
func (t *Track) Source() leyning.Source { return t.source }

// State returns the track's lifecycle state.
func (t *Track) State() leyning.TrackState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Err returns the load error of a failed track.
func (t *Track) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Apply sends a patch to the decoder, or buffers it while the decoder loads.
// Patches to failed or released tracks are dropped.
func (t *Track) Apply(p StatusPatch) error {
	if p.Empty() {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch {
	case t.released:
		return leyning.ErrTrackReleased
	case t.state == leyning.TrackFailed:
		return nil
	case t.decoder == nil:
		t.pending = t.pending.Merge(p)
		return nil
	}
	return t.decoder.Apply(p)
}

// load resolves the decoder and replays pending patches. onReady is called
// after the replay, outside the track lock.
func (t *Track) load(ctx context.Context, f DecoderFactory, initial InitialStatus, onStatus func(AudioStatus), onReady func(error)) {
	t.mu.Lock()
	if t.released || t.state != leyning.TrackUninitialized {
		t.mu.Unlock()
		return
	}
	t.state = leyning.TrackLoading
	t.mu.Unlock()

	dec, err := f.Load(ctx, t.source, initial, onStatus)
	if err != nil {
		if !errors.Is(err, leyning.ErrDecoderInit) {
			err = fmt.Errorf("%w: %v", leyning.ErrDecoderInit, err)
		}

		t.mu.Lock()
		t.state = leyning.TrackFailed
		t.err = err
		released := t.released
		t.mu.Unlock()

		if released || ctx.Err() != nil {
			log.Debug("audio load abandoned", "track", t.index, "path", t.source.Path)
		} else {
			log.Error("audio decoder failed", "track", t.index, "path", t.source.Path, "err", err)
		}
		onStatus(LoadError{Reason: err.Error()})
		onReady(err)
		return
	}

	t.mu.Lock()
	if t.released {
		t.mu.Unlock()
		if err := dec.Unload(); err != nil {
			log.Warn("failed to unload released track", "track", t.index, "err", err)
		}
		return
	}

	t.decoder = dec
	t.state = leyning.TrackReady
	pending := t.pending
	t.pending = StatusPatch{}

	var applyErr error
	if !pending.Empty() {
		applyErr = dec.Apply(pending)
	}
	t.mu.Unlock()

	if applyErr != nil {
		log.Warn("failed to replay pending commands", "track", t.index, "err", applyErr)
	}
	onReady(nil)
}

// release unloads the decoder. A load still in flight unloads its decoder
// when it resolves.
func (t *Track) release() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.released {
		return nil
	}
	t.released = true
	t.pending = StatusPatch{}

	if t.decoder == nil {
		return nil
	}
	dec := t.decoder
	t.decoder = nil
	return dec.Unload()
}
