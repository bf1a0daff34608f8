package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
	"github.com/leyningapp/leyn/leyning"
)

// Output format: signed 16-bit little-endian stereo.
const (
	channelCount    = 2
	bytesPerSample  = 2
	frameBytes      = channelCount * bytesPerSample
	resampleQuality = 4
)

// decodeFile opens an audio file, choosing the codec by extension.
func decodeFile(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, err
	}

	var (
		s      beep.StreamSeekCloser
		format beep.Format
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		s, format, err = mp3.Decode(f)
	case ".wav":
		s, format, err = wav.Decode(f)
	case ".ogg", ".oga":
		s, format, err = vorbis.Decode(f)
	default:
		err = fmt.Errorf("unsupported audio format %q", ext)
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, err
	}
	return s, format, nil
}

// pipeline turns a clip of a decoded source into PCM at the output rate.
// It implements io.ReadSeeker for the oto player: Seek moves to the
// position last passed to RequestSeek.
type pipeline struct {
	mu sync.Mutex

	source    beep.StreamSeekCloser
	format    beep.Format
	outRate   beep.SampleRate
	clipStart int
	clipEnd   int

	pitchCorrection bool
	speed           float64

	chain     beep.Streamer
	resampler *beep.Resampler
	stretch   *stretcher
	buf       [][2]float64
	eof       bool
	target    *float64
}

func newPipeline(source beep.StreamSeekCloser, format beep.Format, src leyning.Source, outRate beep.SampleRate, speed float64, pitchCorrection bool) (*pipeline, error) {
	if speed <= 0 {
		speed = 1
	}

	length := source.Len()
	start := format.SampleRate.N(seconds(src.ClipStart))
	end := length
	if src.ClipEnd > 0 {
		end = format.SampleRate.N(seconds(src.ClipEnd))
	}
	if end > length {
		end = length
	}
	if start < 0 || start >= end {
		return nil, fmt.Errorf("%w: clip %.3f-%.3f outside %s", leyning.ErrNoSource, src.ClipStart, src.ClipEnd, format.SampleRate.D(length))
	}

	p := &pipeline{
		source:          source,
		format:          format,
		outRate:         outRate,
		clipStart:       start,
		clipEnd:         end,
		pitchCorrection: pitchCorrection,
		speed:           speed,
	}
	if err := source.Seek(start); err != nil {
		return nil, fmt.Errorf("seek to clip start: %w", err)
	}
	p.build()
	return p, nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// build recreates the resampling and speed stages, dropping their buffers.
func (p *pipeline) build() {
	var s beep.Streamer = &clipStreamer{p: p}
	if p.format.SampleRate != p.outRate {
		s = beep.Resample(resampleQuality, p.format.SampleRate, p.outRate, s)
	}

	if p.pitchCorrection {
		p.stretch = newStretcher(s, p.speed)
		p.resampler = nil
		p.chain = p.stretch
		return
	}
	p.resampler = beep.ResampleRatio(resampleQuality, p.speed, s)
	p.stretch = nil
	p.chain = p.resampler
}

// SetSpeed changes the playback rate.
func (p *pipeline) SetSpeed(speed float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.speed = speed
	if p.stretch != nil {
		p.stretch.SetRatio(speed)
	} else if p.resampler != nil {
		p.resampler.SetRatio(speed)
	}
}

// RequestSeek records a position in seconds from the clip start for the
// next Seek.
func (p *pipeline) RequestSeek(pos float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.target = &pos
	p.eof = false
}

// Seek implements io.Seeker. The arguments are ignored.
func (p *pipeline) Seek(int64, int) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.target == nil {
		return 0, nil
	}
	pos := p.clipStart + p.format.SampleRate.N(seconds(*p.target))
	p.target = nil
	if pos < p.clipStart {
		pos = p.clipStart
	}
	if pos > p.clipEnd {
		pos = p.clipEnd
	}
	if err := p.source.Seek(pos); err != nil {
		return 0, err
	}
	p.build()
	return int64(pos-p.clipStart) * frameBytes, nil
}

// Read implements io.Reader.
func (p *pipeline) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	frames := len(b) / frameBytes
	if frames == 0 {
		return 0, nil
	}
	if p.eof {
		return 0, io.EOF
	}
	if cap(p.buf) < frames {
		p.buf = make([][2]float64, frames)
	}
	buf := p.buf[:frames]

	n, ok := p.chain.Stream(buf)
	for i := 0; i < n; i++ {
		for c := 0; c < channelCount; c++ {
			v := buf[i][c]
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			off := i*frameBytes + c*bytesPerSample
			binary.LittleEndian.PutUint16(b[off:], uint16(int16(v*32767)))
		}
	}

	if !ok && n == 0 {
		p.eof = true
		if err := p.chain.Err(); err != nil {
			return 0, err
		}
		return 0, io.EOF
	}
	return n * frameBytes, nil
}

// Position returns the decoded position in seconds from the clip start.
// It runs ahead of what is audible by the output buffer.
func (p *pipeline) Position() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.format.SampleRate.D(p.source.Position() - p.clipStart).Seconds()
}

// Duration returns the clip length in seconds.
func (p *pipeline) Duration() float64 {
	return p.format.SampleRate.D(p.clipEnd - p.clipStart).Seconds()
}

// EOF reports whether the clip has been fully read.
func (p *pipeline) EOF() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.eof
}

func (p *pipeline) Close() error {
	return p.source.Close()
}

// clipStreamer stops the source at the clip end. It is called with p.mu
// held.
type clipStreamer struct {
	p *pipeline
}

func (c *clipStreamer) Stream(samples [][2]float64) (int, bool) {
	remaining := c.p.clipEnd - c.p.source.Position()
	if remaining <= 0 {
		return 0, false
	}
	if len(samples) > remaining {
		samples = samples[:remaining]
	}
	return c.p.source.Stream(samples)
}

func (c *clipStreamer) Err() error {
	return c.p.source.Err()
}
