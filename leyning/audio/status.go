// Package audio plays a reading's recordings as a sequence of tracks with a
// single transport, and provides mock and oto-backed decoders.
package audio

import (
	"context"

	"github.com/leyningapp/leyn/leyning"
)

// AudioStatus is a decoder status report: NotLoaded, LoadError or Loaded.
type AudioStatus interface {
	isAudioStatus()
}

// NotLoaded reports a decoder with nothing loaded.
type NotLoaded struct{}

// LoadError reports a decoder that failed to load.
type LoadError struct {
	Reason string
}

// Loaded is a full snapshot of a loaded decoder. Each one replaces the
// previous snapshot for its track.
type Loaded struct {
	Position      float64 // Seconds from the start of the track
	IsPlaying     bool
	Rate          float64
	DidJustFinish bool // Set once when the track reaches its end
}

func (NotLoaded) isAudioStatus() {}
func (LoadError) isAudioStatus() {}
func (Loaded) isAudioStatus()    {}

// StatusPatch is a set of decoder fields to change. Nil fields are left
// alone.
type StatusPatch struct {
	ShouldPlay *bool
	Position   *float64
	Rate       *float64
}

// Merge returns p overlaid with the non-nil fields of o.
func (p StatusPatch) Merge(o StatusPatch) StatusPatch {
	if o.ShouldPlay != nil {
		p.ShouldPlay = o.ShouldPlay
	}
	if o.Position != nil {
		p.Position = o.Position
	}
	if o.Rate != nil {
		p.Rate = o.Rate
	}
	return p
}

// Empty reports whether the patch changes nothing.
func (p StatusPatch) Empty() bool {
	return p.ShouldPlay == nil && p.Position == nil && p.Rate == nil
}

// Play returns a patch setting ShouldPlay.
func Play(play bool) StatusPatch { return StatusPatch{ShouldPlay: &play} }

// SeekPatch returns a patch moving to pos seconds and setting ShouldPlay.
func SeekPatch(pos float64, play bool) StatusPatch {
	return StatusPatch{Position: &pos, ShouldPlay: &play}
}

// RatePatch returns a patch setting the playback rate.
func RatePatch(rate float64) StatusPatch { return StatusPatch{Rate: &rate} }

// InitialStatus configures a decoder at load time.
type InitialStatus struct {
	Rate            float64
	PitchCorrection bool
}

// Decoder is a loaded audio source.
type Decoder interface {
	// Apply changes the given fields atomically.
	Apply(patch StatusPatch) error

	// Unload releases the decoder. It must be safe to call more than once.
	Unload() error
}

// DecoderFactory loads decoders. Load may call onStatus from any goroutine,
// including synchronously from within Load or Apply.
type DecoderFactory interface {
	Load(ctx context.Context, src leyning.Source, initial InitialStatus, onStatus func(AudioStatus)) (Decoder, error)
}
