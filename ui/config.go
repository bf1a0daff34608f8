package ui

import (
	"github.com/leyningapp/leyn/leyning"
	"github.com/leyningapp/leyn/leyning/reading"
)

// Config contains TUI-specific configuration.
type Config struct {
	EnableMouse bool

	// Initial selection
	Selection reading.Selection

	// Show tikkun (unpointed) text instead of the pointed text.
	Tikkun bool `env:"LEYN_TIKKUN" envDefault:"false"`

	// Keep the spoken word in view while playing.
	Follow bool `env:"LEYN_FOLLOW" envDefault:"true"`

	// Widest the verse text is wrapped at; 0 uses the terminal width.
	MaxWidth int `env:"LEYN_MAX_WIDTH" envDefault:"100"`
}

// SettingsStore is the settings capability the UI needs: read, update and
// observe changes made elsewhere.
type SettingsStore interface {
	leyning.SettingsProvider
	Subscribe(fn func(leyning.Settings)) func()
}
