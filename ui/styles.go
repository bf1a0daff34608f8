package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/leyningapp/leyn/leyning"
)

const ellipsis = "…"

var (
	cream     = lipgloss.Color("#FFFDF5")
	fuchsia   = lipgloss.Color("#EE6FF8")
	mintGreen = lipgloss.Color("#89F0CB")
	darkGreen = lipgloss.Color("#1C8760")
	red       = lipgloss.Color("#ED567A")

	logoStyle = lipgloss.NewStyle().
			Foreground(cream).
			Background(fuchsia).
			Bold(true)
)

// palette holds the theme-dependent colors.
type palette struct {
	text, dim, gutter           lipgloss.Color
	activeFg, activeBg          lipgloss.Color
	statusFg, statusBg, helpBg  lipgloss.Color
	modalBorder, modalHighlight lipgloss.Color
}

var (
	darkPalette = palette{
		text:           "#DDDDDD",
		dim:            "#8A8A8A",
		gutter:         "#5A5A5A",
		activeFg:       "#1B1B1B",
		activeBg:       "#F1D36B",
		statusFg:       "#7D7D7D",
		statusBg:       "#242424",
		helpBg:         "#1B1B1B",
		modalBorder:    "#5A5A5A",
		modalHighlight: "#EE6FF8",
	}
	lightPalette = palette{
		text:           "#1B1B1B",
		dim:            "#656565",
		gutter:         "#949494",
		activeFg:       "#1B1B1B",
		activeBg:       "#FFE38A",
		statusFg:       "#656565",
		statusBg:       "#E6E6E6",
		helpBg:         "#F2F2F2",
		modalBorder:    "#949494",
		modalHighlight: "#C34CD6",
	}
)

type styles struct {
	word        lipgloss.Style
	active      lipgloss.Style
	cursor      lipgloss.Style
	gutter      lipgloss.Style
	translation lipgloss.Style
	title       lipgloss.Style
	note        lipgloss.Style

	statusNote    lipgloss.Style
	statusHelp    lipgloss.Style
	statusMessage lipgloss.Style
	statusError   lipgloss.Style
	help          lipgloss.Style

	modal         lipgloss.Style
	modalSelected lipgloss.Style
}

// resolveTheme maps ThemeAuto to the terminal's background.
func resolveTheme(theme leyning.ColorTheme) leyning.ColorTheme {
	if theme != leyning.ThemeAuto {
		return theme
	}
	if termenv.HasDarkBackground() {
		return leyning.ThemeDark
	}
	return leyning.ThemeLight
}

func newStyles(theme leyning.ColorTheme, bold bool) styles {
	p := lightPalette
	if resolveTheme(theme) == leyning.ThemeDark {
		p = darkPalette
	}

	word := lipgloss.NewStyle().Foreground(p.text).Bold(bold)
	return styles{
		word:        word,
		active:      word.Foreground(p.activeFg).Background(p.activeBg),
		cursor:      word.Underline(true),
		gutter:      lipgloss.NewStyle().Foreground(p.gutter),
		translation: lipgloss.NewStyle().Foreground(p.dim).Italic(true),
		title:       lipgloss.NewStyle().Foreground(p.text).Bold(true),
		note:        lipgloss.NewStyle().Foreground(p.dim),

		statusNote:    lipgloss.NewStyle().Foreground(p.statusFg).Background(p.statusBg),
		statusHelp:    lipgloss.NewStyle().Foreground(p.statusFg).Background(p.helpBg),
		statusMessage: lipgloss.NewStyle().Foreground(mintGreen).Background(darkGreen),
		statusError:   lipgloss.NewStyle().Foreground(cream).Background(red),
		help:          lipgloss.NewStyle().Foreground(p.statusFg).Background(p.helpBg),

		modal: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.modalBorder).
			Padding(0, 2),
		modalSelected: lipgloss.NewStyle().Foreground(p.modalHighlight).Bold(true),
	}
}

func logoView() string {
	return logoStyle.Render(" Leyn ")
}
