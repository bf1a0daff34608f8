package leyning

import (
	"context"
	"time"
)

// BookText is a book's words, indexed chapter → verse → word (0-indexed).
type BookText [][][]string

// BookTranslation is a book's translation, indexed chapter → verse.
type BookTranslation [][]string

// LabelTable holds every timing-label array of one book, keyed by unit key:
// an aliyah number in aliyah mode or a "ch:v" string in verse mode.
type LabelTable map[string][]float64

// ContentStore fetches the text corpora. Implementations must be safe for
// concurrent use.
type ContentStore interface {
	// BookText returns the words of a book.
	BookText(ctx context.Context, book BookID) (BookText, error)

	// Translation returns a book's translation. A book without a
	// translation table returns an error wrapping ErrContentUnavailable.
	Translation(ctx context.Context, book BookID) (BookTranslation, error)

	// TimingLabels returns the label table of a labels file. The file is
	// named by book for verse mode and by parsha for aliyah mode.
	TimingLabels(ctx context.Context, name string) (LabelTable, error)
}

// Oracle resolves readings from the liturgical calendar.
type Oracle interface {
	// Reading returns the reading with the given id or name.
	Reading(ctx context.Context, id string, scheme Scheme) (*ReadingSpec, error)

	// ReadingsOn returns the readings that apply on a date. An empty result
	// with a nil error means no reading applies.
	ReadingsOn(ctx context.Context, date time.Time, scheme Scheme) ([]*ReadingSpec, error)

	// Names lists the ids of all named readings.
	Names() []string
}

// AudioManifest maps (unit, key) pairs to loadable recordings.
type AudioManifest interface {
	// Source returns the recording for a unit and sub-unit key. The
	// boolean is false when no recording exists.
	Source(unit, key string) (Source, bool)

	// MaftirOffset returns the number of words of aliyah 7 that precede the
	// maftir in the shared recording. Unknown readings return 0.
	MaftirOffset(reading string) int

	// HasTriennial reports whether separate triennial recordings exist.
	HasTriennial() bool
}

// SettingsProvider is the capability through which callers read and update
// persisted settings.
type SettingsProvider interface {
	Settings() Settings
	Update(patch SettingsPatch) (Settings, error)
}

// ColorTheme selects the display palette.
type ColorTheme string

// Color themes.
const (
	ThemeAuto  ColorTheme = "auto"
	ThemeLight ColorTheme = "light"
	ThemeDark  ColorTheme = "dark"
)

// Valid reports whether t is a known theme.
func (t ColorTheme) Valid() bool {
	return t == ThemeAuto || t == ThemeLight || t == ThemeDark
}

// Settings are the persisted user preferences.
type Settings struct {
	TextSize   float64    `yaml:"textSize"`
	AudioSpeed float64    `yaml:"audioSpeed"`
	IL         bool       `yaml:"il"`
	Tri        bool       `yaml:"tri"`
	ColorTheme ColorTheme `yaml:"colorTheme"`
}

// DefaultSettings returns the settings used before anything is persisted.
func DefaultSettings() Settings {
	return Settings{
		TextSize:   1.0,
		AudioSpeed: 1.0,
		ColorTheme: ThemeAuto,
	}
}

// Scheme returns the calendar scheme selected by the settings.
func (s Settings) Scheme() Scheme {
	return Scheme{IL: s.IL, Tri: s.Tri}
}

// SettingsPatch is a partial update. Nil fields are left unchanged.
type SettingsPatch struct {
	TextSize   *float64    `yaml:"textSize,omitempty"`
	AudioSpeed *float64    `yaml:"audioSpeed,omitempty"`
	IL         *bool       `yaml:"il,omitempty"`
	Tri        *bool       `yaml:"tri,omitempty"`
	ColorTheme *ColorTheme `yaml:"colorTheme,omitempty"`
}

// Apply merges the patch over s and returns the result.
func (p SettingsPatch) Apply(s Settings) Settings {
	if p.TextSize != nil {
		s.TextSize = *p.TextSize
	}
	if p.AudioSpeed != nil {
		s.AudioSpeed = *p.AudioSpeed
	}
	if p.IL != nil {
		s.IL = *p.IL
	}
	if p.Tri != nil {
		s.Tri = *p.Tri
	}
	if p.ColorTheme != nil {
		s.ColorTheme = *p.ColorTheme
	}
	return s
}

// Validate checks the settings ranges.
func (s Settings) Validate() error {
	if s.TextSize < 0.5 || s.TextSize > 3.0 {
		return NewError(ErrInvalidConfig, "settings", "validate").WithContext("textSize", s.TextSize)
	}
	if s.AudioSpeed < MinRate || s.AudioSpeed > MaxRate {
		return NewError(ErrInvalidRate, "settings", "validate").WithContext("audioSpeed", s.AudioSpeed)
	}
	if !s.ColorTheme.Valid() {
		return NewError(ErrInvalidConfig, "settings", "validate").WithContext("colorTheme", s.ColorTheme)
	}
	return nil
}

// Playback rate bounds.
const (
	MinRate = 0.5
	MaxRate = 2.0
)
