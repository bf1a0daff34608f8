package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"

	"github.com/leyningapp/leyn/internal/calendar"
	"github.com/leyningapp/leyn/internal/content"
	"github.com/leyningapp/leyn/internal/manifest"
	"github.com/leyningapp/leyn/internal/settings"
	"github.com/leyningapp/leyn/leyning"
	"github.com/leyningapp/leyn/leyning/audio"
	"github.com/leyningapp/leyn/leyning/reading"
)

const (
	readingsFile = "readings.yaml"
	manifestFile = "manifest.yaml"
	settingsFile = "settings.yml"

	// mockTrackLength is how long mock audio plays when a clip has no end.
	mockTrackLength = 30 * time.Second
)

// engine bundles the stores and the assembler built from the configuration.
type engine struct {
	calendar  *calendar.Calendar
	content   *content.Store
	settings  *settings.Store
	assembler *reading.Assembler
}

var scope = gap.NewScope(gap.User, "leyn")

// defaultDataDir returns the user data directory.
func defaultDataDir() (string, error) {
	dirs, err := scope.DataDirs()
	if err != nil {
		return "", fmt.Errorf("unable to find data directory: %w", err)
	}
	if len(dirs) == 0 {
		return "", errors.New("no data directory")
	}
	return dirs[0], nil
}

// openEngine loads the calendar, content, manifest and settings. Settings
// always live in the user data directory. Without withAudio no decoder is
// created and every session is text only.
func openEngine(cfg leyning.Config, withAudio bool) (*engine, error) {
	userDir, err := defaultDataDir()
	if err != nil {
		return nil, err
	}
	if cfg.DataDir == "" {
		cfg.DataDir = userDir
	}
	log.Debug("opening engine", "data_dir", cfg.DataDir, "content_url", cfg.ContentURL, "mode", cfg.AudioMode)

	cal, err := calendar.Load(filepath.Join(cfg.DataDir, readingsFile))
	if err != nil {
		return nil, fmt.Errorf("unable to load readings: %w", err)
	}

	e := &engine{calendar: cal}
	if e.content, err = openContent(cfg); err != nil {
		return nil, err
	}

	if e.settings, err = settings.Open(filepath.Join(userDir, settingsFile)); err != nil {
		_ = e.content.Close()
		return nil, err
	}
	if err := e.settings.Watch(); err != nil {
		log.Warn("settings will not follow external changes", "err", err)
	}

	var (
		m       leyning.AudioManifest
		factory audio.DecoderFactory
	)
	if withAudio {
		mf, err := manifest.Load(filepath.Join(cfg.DataDir, manifestFile))
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Info("no audio manifest, playing text only", "data_dir", cfg.DataDir)
		case err != nil:
			log.Warn("unable to load audio manifest", "err", err)
		default:
			m = mf
			factory = newFactory(cfg)
		}
	}

	e.assembler = reading.NewAssembler(cal, e.content, m, e.settings, factory,
		reading.WithMode(cfg.AudioMode),
		reading.WithPitchCorrection(cfg.Audio.PitchCorrection),
		reading.WithLabelEntries(cfg.Cache.LabelEntries),
		reading.WithTrackerInterval(cfg.Audio.StatusInterval),
	)
	return e, nil
}

func openContent(cfg leyning.Config) (*content.Store, error) {
	if cfg.ContentURL == "" {
		s, err := content.NewFileStore(cfg.DataDir, cfg.Cache.ContentEntries)
		if err != nil {
			return nil, fmt.Errorf("unable to open content: %w", err)
		}
		return s, nil
	}

	if cfg.Cache.DiskDir == "" {
		if dir, err := scope.CacheDir(); err == nil {
			cfg.Cache.DiskDir = filepath.Join(dir, "content")
		}
	}
	s, err := content.NewHTTPStore(cfg.ContentURL, cfg.Cache, content.WithUserAgent("leyn/"+Version))
	if err != nil {
		return nil, fmt.Errorf("unable to open %s: %w", cfg.ContentURL, err)
	}
	return s, nil
}

func newFactory(cfg leyning.Config) audio.DecoderFactory {
	if cfg.Audio.Mock {
		log.Info("using mock audio")
		return audio.NewMockFactory(cfg.Audio.StatusInterval, mockTrackLength)
	}
	return audio.NewOtoFactory(cfg.Audio)
}

func (e *engine) Close() error {
	return errors.Join(e.assembler.Close(), e.settings.Close(), e.content.Close())
}

// defaultSelection picks today's reading, or the next one on the calendar.
func (e *engine) defaultSelection(now time.Time) (string, error) {
	today, _ := time.Parse(calendar.DateLayout, now.Format(calendar.DateLayout))
	for _, d := range e.calendar.Dates() {
		if d.Before(today) {
			continue
		}
		specs, err := e.calendar.ReadingsOn(context.Background(), d, e.settings.Settings().Scheme())
		if err != nil {
			return "", err
		}
		if len(specs) > 0 {
			return specs[0].ID, nil
		}
	}
	return "", errors.New("no upcoming reading: pass a reading name")
}

// parseAliyah accepts 1-7, m/maftir and h/haftarah.
func parseAliyah(s string) (leyning.AliyahSelector, error) {
	switch strings.ToLower(s) {
	case "", "1":
		return "1", nil
	case "2", "3", "4", "5", "6", "7":
		return leyning.AliyahSelector(s), nil
	case "m", "maftir":
		return leyning.Maftir, nil
	case "h", "haftarah":
		return leyning.Haftarah, nil
	}
	return "", fmt.Errorf("%q is not an aliyah: use 1-7, maftir or haftarah: %w", s, leyning.ErrUnknownAliyah)
}
