//go:build nocgo
// +build nocgo

package audio

import (
	"context"
	"fmt"

	"github.com/leyningapp/leyn/leyning"
)

// OtoFactory is unavailable in nocgo builds; every load fails.
type OtoFactory struct{}

// NewOtoFactory returns a factory that cannot load audio.
func NewOtoFactory(leyning.AudioConfig) *OtoFactory {
	return &OtoFactory{}
}

// Load implements DecoderFactory.
func (f *OtoFactory) Load(context.Context, leyning.Source, InitialStatus, func(AudioStatus)) (Decoder, error) {
	return nil, fmt.Errorf("%w: audio not available in nocgo build", leyning.ErrDecoderInit)
}
