//go:build !nocgo
// +build !nocgo

package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
	"github.com/gopxl/beep/v2"
	"github.com/leyningapp/leyn/leyning"
	"golang.org/x/time/rate"
)

// The oto context can only be created once per process.
var (
	otoOnce    sync.Once
	otoContext *oto.Context
	otoRate    int
	otoErr     error
)

func audioContext(sampleRate int, bufferSize time.Duration) (*oto.Context, int, error) {
	otoOnce.Do(func() {
		options := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channelCount,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   bufferSize,
		}
		if options.BufferSize == 0 {
			switch runtime.GOOS {
			case "darwin":
				options.BufferSize = 100 * time.Millisecond
			case "windows":
				options.BufferSize = 80 * time.Millisecond
			default:
				options.BufferSize = 50 * time.Millisecond
			}
		}

		log.Debug("initializing audio context",
			"sample_rate", options.SampleRate,
			"channels", options.ChannelCount,
			"buffer_size", options.BufferSize)

		ctx, ready, err := oto.NewContext(options)
		if err != nil {
			otoErr = fmt.Errorf("failed to create audio context: %w", err)
			return
		}

		readyTimeout := 5 * time.Second
		if runtime.GOOS == "darwin" {
			readyTimeout = 10 * time.Second
		}
		select {
		case <-ready:
			otoContext = ctx
			otoRate = sampleRate
		case <-time.After(readyTimeout):
			otoErr = fmt.Errorf("audio context initialization timeout after %v", readyTimeout)
		}
	})
	return otoContext, otoRate, otoErr
}

// OtoFactory decodes audio files with beep and plays them through oto.
type OtoFactory struct {
	cfg leyning.AudioConfig
}

// NewOtoFactory creates a factory using the given playback settings.
func NewOtoFactory(cfg leyning.AudioConfig) *OtoFactory {
	return &OtoFactory{cfg: cfg}
}

// Load implements DecoderFactory.
func (f *OtoFactory) Load(ctx context.Context, src leyning.Source, initial InitialStatus, onStatus func(AudioStatus)) (Decoder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, outRate, err := audioContext(f.cfg.SampleRate, f.cfg.BufferSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", leyning.ErrDecoderInit, err)
	}

	stream, format, err := decodeFile(src.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", leyning.ErrDecoderInit, src.Path, err)
	}

	speed := initial.Rate
	if speed <= 0 {
		speed = 1
	}
	pipe, err := newPipeline(stream, format, src, beep.SampleRate(outRate), speed, initial.PitchCorrection)
	if err != nil {
		stream.Close()
		return nil, fmt.Errorf("%w: %v", leyning.ErrDecoderInit, err)
	}

	interval := f.cfg.StatusInterval
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}

	d := &otoDecoder{
		pipe:     pipe,
		outRate:  outRate,
		onStatus: onStatus,
		interval: interval,
		limiter:  rate.NewLimiter(rate.Every(interval), 2),
		stop:     make(chan struct{}),
		speed:    speed,
	}
	d.player = out.NewPlayer(pipe)
	if f.cfg.BufferSize > 0 {
		d.player.SetBufferSize(int(f.cfg.BufferSize.Seconds()*float64(outRate)) * frameBytes)
	}

	log.Debug("audio track loaded",
		"path", src.Path,
		"clip_start", src.ClipStart,
		"duration", pipe.Duration(),
		"source_rate", format.SampleRate)

	go d.watch()
	onStatus(d.status())
	return d, nil
}

type otoDecoder struct {
	player   *oto.Player
	pipe     *pipeline
	outRate  int
	onStatus func(AudioStatus)
	interval time.Duration
	limiter  *rate.Limiter
	stop     chan struct{}
	once     sync.Once

	mu         sync.Mutex
	shouldPlay bool
	speed      float64
	finished   bool
}

func (d *otoDecoder) Apply(p StatusPatch) error {
	if p.Rate != nil {
		d.pipe.SetSpeed(*p.Rate)
		d.mu.Lock()
		d.speed = *p.Rate
		d.mu.Unlock()
	}

	if p.Position != nil {
		d.pipe.RequestSeek(*p.Position)
		d.mu.Lock()
		d.finished = false
		d.mu.Unlock()
		if _, err := d.player.Seek(0, io.SeekCurrent); err != nil {
			return fmt.Errorf("seek: %w", err)
		}
	}

	d.mu.Lock()
	if p.ShouldPlay != nil {
		d.shouldPlay = *p.ShouldPlay
	}
	play := d.shouldPlay
	d.mu.Unlock()

	if play {
		d.player.Play()
	} else {
		d.player.Pause()
	}

	d.emit()
	return nil
}

func (d *otoDecoder) Unload() error {
	var err error
	d.once.Do(func() {
		close(d.stop)
		d.player.Pause()
		err = errors.Join(d.player.Close(), d.pipe.Close())
	})
	return err
}

// status reports the audible position: the decoded position minus what is
// still queued in the output buffer.
func (d *otoDecoder) status() Loaded {
	d.mu.Lock()
	speed := d.speed
	d.mu.Unlock()

	queued := float64(d.player.BufferedSize()/frameBytes) / float64(d.outRate)
	pos := d.pipe.Position() - queued*speed
	if pos < 0 {
		pos = 0
	}
	return Loaded{
		Position:  pos,
		IsPlaying: d.player.IsPlaying(),
		Rate:      speed,
	}
}

// emit reports status unless one was reported within the status interval.
func (d *otoDecoder) emit() {
	if d.limiter.Allow() {
		d.onStatus(d.status())
	}
}

func (d *otoDecoder) watch() {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
		}

		if err := d.player.Err(); err != nil {
			log.Warn("audio player error", "err", err)
		}

		d.mu.Lock()
		done := d.shouldPlay && !d.finished && d.pipe.EOF() && !d.player.IsPlaying()
		if done {
			d.finished = true
			d.shouldPlay = false
		}
		speed := d.speed
		d.mu.Unlock()

		if done {
			// Never throttled.
			d.onStatus(Loaded{
				Position:      d.pipe.Duration(),
				Rate:          speed,
				DidJustFinish: true,
			})
			continue
		}
		d.emit()
	}
}
