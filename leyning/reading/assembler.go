// Package reading assembles a selected reading into verses, word indices and
// a synchronized audio session.
package reading

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/leyningapp/leyn/leyning"
	"github.com/leyningapp/leyn/leyning/audio"
	"github.com/leyningapp/leyn/leyning/timing"
	"github.com/leyningapp/leyn/leyning/verses"
)

// maxLabelFetches bounds concurrent label lookups in verse mode.
const maxLabelFetches = 8

// Selection identifies what to display.
type Selection struct {
	ReadingID   string
	Aliyah      leyning.AliyahSelector
	Translation bool
}

// verseSourcer is implemented by manifests that carry closing-verse
// recording variants.
type verseSourcer interface {
	VerseSource(unit, key string, closing bool) (leyning.Source, bool)
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithMode sets how recordings are split into tracks.
func WithMode(mode leyning.AudioMode) Option {
	return func(a *Assembler) {
		a.mode = mode
	}
}

// WithPitchCorrection sets whether speed changes preserve pitch.
func WithPitchCorrection(enabled bool) Option {
	return func(a *Assembler) {
		a.pitchCorrection = enabled
	}
}

// WithLabelEntries bounds the per-session label cache.
func WithLabelEntries(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.labelEntries = n
		}
	}
}

// WithTrackerInterval sets how often the active word is sampled.
func WithTrackerInterval(d time.Duration) Option {
	return func(a *Assembler) {
		if d > 0 {
			a.trackerInterval = d
		}
	}
}

// Assembler builds one Session at a time. Each Select tears down the
// previous session.
type Assembler struct {
	oracle   leyning.Oracle
	content  leyning.ContentStore
	manifest leyning.AudioManifest
	settings leyning.SettingsProvider
	factory  audio.DecoderFactory

	mode            leyning.AudioMode
	pitchCorrection bool
	labelEntries    int
	trackerInterval time.Duration

	mu         sync.Mutex
	generation uint64
	current    *Session
}

// NewAssembler creates an assembler.
func NewAssembler(oracle leyning.Oracle, content leyning.ContentStore, manifest leyning.AudioManifest, settings leyning.SettingsProvider, factory audio.DecoderFactory, opts ...Option) *Assembler {
	a := &Assembler{
		oracle:          oracle,
		content:         content,
		manifest:        manifest,
		settings:        settings,
		factory:         factory,
		mode:            leyning.ModeVerse,
		pitchCorrection: true,
		labelEntries:    leyning.DefaultCacheConfig().LabelEntries,
		trackerInterval: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Select resolves and assembles a reading. A Select that is superseded by a
// later one before it finishes returns ErrAbandonedSelection.
func (a *Assembler) Select(ctx context.Context, sel Selection) (*Session, error) {
	a.mu.Lock()
	a.generation++
	gen := a.generation
	prev := a.current
	a.current = nil
	a.mu.Unlock()

	if prev != nil {
		prev.Close()
	}

	if !sel.Aliyah.Valid() {
		return nil, fmt.Errorf("aliyah %q: %w", sel.Aliyah, leyning.ErrUnknownAliyah)
	}

	settings := a.settings.Settings()
	spec, err := a.oracle.Reading(ctx, sel.ReadingID, settings.Scheme())
	if err != nil {
		return nil, err
	}
	ranges, err := spec.Ranges(sel.Aliyah)
	if err != nil {
		return nil, err
	}

	lib, err := a.fetchBooks(ctx, ranges, sel.Translation)
	if err != nil {
		return nil, err
	}
	if !a.isCurrent(gen) {
		return nil, leyning.ErrAbandonedSelection
	}

	locs, err := verses.ExtractAll(ranges, lib.Versification())
	if err != nil {
		return nil, err
	}
	var translations verses.TranslationLookup
	if sel.Translation {
		translations = lib
	}
	data, err := verses.Join(locs, lib, translations)
	if err != nil {
		return nil, err
	}

	s := &Session{
		Spec:   spec,
		Aliyah: sel.Aliyah,
		Verses: data,
		Index:  verses.NewWordIndex(data),
		Mode:   a.mode,
	}
	if spec.Kind == leyning.KindTrope {
		s.Mode = leyning.ModeVerse
	}

	plan, reason := a.planAudio(ctx, s)
	if !a.isCurrent(gen) {
		return nil, leyning.ErrAbandonedSelection
	}
	if plan != nil {
		s.HasAudio = true
		s.Offset = plan.offset
		s.labels = plan.labels
		s.trackStarts = plan.starts
		s.controller = audio.New(a.factory, plan.sources,
			audio.WithRate(settings.AudioSpeed),
			audio.WithPitchCorrection(a.pitchCorrection),
		)
		s.tracker = timing.NewTracker(a.trackerInterval, s.ActiveWord)
		s.tracker.Start()
	} else {
		s.NoAudioReason = reason
	}

	a.mu.Lock()
	if a.generation != gen {
		a.mu.Unlock()
		s.Close()
		return nil, leyning.ErrAbandonedSelection
	}
	a.current = s
	a.mu.Unlock()

	log.Info("reading assembled",
		"reading", spec.ID,
		"aliyah", sel.Aliyah,
		"verses", len(data),
		"words", s.Index.Len(),
		"mode", s.Mode,
		"has_audio", s.HasAudio,
		"offset", s.Offset)
	return s, nil
}

// Current returns the active session, or nil.
func (a *Assembler) Current() *Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// Close tears down the active session and abandons in-flight selections.
func (a *Assembler) Close() error {
	a.mu.Lock()
	a.generation++
	s := a.current
	a.current = nil
	a.mu.Unlock()

	if s == nil {
		return nil
	}
	return s.Close()
}

func (a *Assembler) isCurrent(gen uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.generation == gen
}

// fetchBooks loads the text, and optionally the translation, of every book
// the ranges touch. Missing translations degrade to none.
func (a *Assembler) fetchBooks(ctx context.Context, ranges []leyning.AliyahRange, translation bool) (*verses.Library, error) {
	lib := verses.NewLibrary()
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	seen := make(map[leyning.BookID]bool)
	for _, r := range ranges {
		book := r.Book
		if seen[book] {
			continue
		}
		seen[book] = true

		g.Go(func() error {
			text, err := a.content.BookText(gctx, book)
			if err != nil {
				return fmt.Errorf("text of %s: %w", book, err)
			}
			mu.Lock()
			lib.Text[book] = text
			mu.Unlock()
			return nil
		})

		if !translation {
			continue
		}
		g.Go(func() error {
			tr, err := a.content.Translation(gctx, book)
			switch {
			case errors.Is(err, leyning.ErrContentUnavailable):
				log.Debug("no translation", "book", book)
				return nil
			case err != nil:
				if gctx.Err() == nil {
					log.Warn("translation unavailable", "book", book, "err", err)
				}
				return nil
			}
			mu.Lock()
			lib.Translations[book] = tr
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lib, nil
}

type audioPlan struct {
	sources []leyning.Source
	labels  [][]float64
	starts  []int
	offset  int
}

// planAudio applies the availability rule: no reason flag on the aliyah,
// triennial recordings when the reading is triennial, a recording for every
// track and labels covering every displayed word. A nil plan comes with the
// reason audio is unavailable.
func (a *Assembler) planAudio(ctx context.Context, s *Session) (*audioPlan, string) {
	if a.manifest == nil || a.factory == nil {
		return nil, "no audio manifest"
	}
	if reason, flagged := s.Spec.NoAudio[s.Aliyah]; flagged {
		return nil, reason
	}
	if s.Spec.Triennial && !a.manifest.HasTriennial() {
		return nil, "no triennial recordings"
	}

	labels := timing.NewLabelStore(a.content, a.labelEntries)
	if s.Mode == leyning.ModeVerse {
		return a.planVerses(ctx, s, labels)
	}
	return a.planAliyah(ctx, s, labels)
}

func (a *Assembler) planAliyah(ctx context.Context, s *Session, store *timing.LabelStore) (*audioPlan, string) {
	unit := s.Spec.Parsha()
	if unit == "" {
		unit = s.Spec.ID
	}
	key := string(s.Aliyah.DataKey())

	src, ok := a.manifest.Source(unit, key)
	if !ok {
		return nil, fmt.Sprintf("no recording for %s/%s", unit, key)
	}

	offset := 0
	if s.Aliyah == leyning.Maftir {
		offset = a.manifest.MaftirOffset(s.Spec.ID)
	}

	labels, err := store.LabelsFor(ctx, timing.LabelUnit{File: unit, Key: key})
	if err != nil {
		logLabelError(err, unit, key)
		return nil, "no timing labels"
	}
	if len(labels) < offset+s.Index.Len() {
		log.Warn("timing labels do not cover the reading", "unit", unit, "key", key, "labels", len(labels), "words", s.Index.Len(), "offset", offset)
		return nil, "timing labels do not cover the reading"
	}

	return &audioPlan{
		sources: []leyning.Source{src},
		labels:  [][]float64{labels},
		starts:  []int{0},
		offset:  offset,
	}, ""
}

func (a *Assembler) planVerses(ctx context.Context, s *Session, store *timing.LabelStore) (*audioPlan, string) {
	n := len(s.Verses)
	plan := &audioPlan{
		sources: make([]leyning.Source, n),
		labels:  make([][]float64, n),
		starts:  make([]int, n),
	}

	closing, _ := a.manifest.(verseSourcer)
	for i, v := range s.Verses {
		unit, key := string(v.Book), verses.Key(v.ChapterVerse)

		var src leyning.Source
		var ok bool
		if closing != nil {
			src, ok = closing.VerseSource(unit, key, v.Closing)
		} else {
			src, ok = a.manifest.Source(unit, key)
		}
		if !ok {
			return nil, fmt.Sprintf("no recording for %s %s", unit, key)
		}
		plan.sources[i] = src
		plan.starts[i], _ = s.Index.VerseRange(i)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxLabelFetches)
	for i, v := range s.Verses {
		unit := timing.LabelUnit{File: string(v.Book), Key: verses.Key(v.ChapterVerse)}
		words := len(v.Words)
		g.Go(func() error {
			labels, err := store.LabelsFor(gctx, unit)
			if err != nil {
				return err
			}
			if len(labels) < words {
				return fmt.Errorf("labels %s: %d labels for %d words: %w", unit, len(labels), words, leyning.ErrContentUnavailable)
			}
			plan.labels[i] = labels
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logLabelError(err, "", "")
		return nil, "no timing labels"
	}
	return plan, ""
}

func logLabelError(err error, unit, key string) {
	if errors.Is(err, leyning.ErrContentUnavailable) || errors.Is(err, context.Canceled) {
		log.Debug("audio unavailable", "unit", unit, "key", key, "err", err)
		return
	}
	log.Warn("failed to load timing labels", "unit", unit, "key", key, "err", err)
}
