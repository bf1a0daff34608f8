package ui

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/leyningapp/leyn/leyning"
	"github.com/leyningapp/leyn/leyning/audio"
)

type settingsField int

const (
	fieldSpeed settingsField = iota
	fieldTextSize
	fieldIL
	fieldTri
	fieldTheme
	fieldCount
)

var textSizes = []float64{0.5, 0.75, 1, 1.25, 1.5, 2, 2.5, 3}

var themes = []leyning.ColorTheme{leyning.ThemeAuto, leyning.ThemeLight, leyning.ThemeDark}

// settingsModal edits a draft of the settings. Speed changes are previewed
// on the playing session and only persisted on save.
type settingsModal struct {
	saved leyning.Settings
	draft leyning.Settings
	field settingsField
}

func newSettingsModal(s leyning.Settings) *settingsModal {
	return &settingsModal{saved: s, draft: s}
}

func (m *settingsModal) move(delta int) {
	m.field = settingsField((int(m.field) + delta + int(fieldCount)) % int(fieldCount))
}

// adjust changes the selected field one step in the direction of delta.
func (m *settingsModal) adjust(delta int) {
	switch m.field {
	case fieldSpeed:
		if delta > 0 {
			m.draft.AudioSpeed = audio.NextSpeed(m.draft.AudioSpeed)
		} else {
			m.draft.AudioSpeed = audio.PreviousSpeed(m.draft.AudioSpeed)
		}
	case fieldTextSize:
		m.draft.TextSize = step(textSizes, m.draft.TextSize, delta)
	case fieldIL:
		m.draft.IL = !m.draft.IL
	case fieldTri:
		m.draft.Tri = !m.draft.Tri
	case fieldTheme:
		i := 0
		for j, t := range themes {
			if t == m.draft.ColorTheme {
				i = j
			}
		}
		m.draft.ColorTheme = themes[(i+delta+len(themes))%len(themes)]
	}
}

func step(values []float64, current float64, delta int) float64 {
	i := 0
	for j, v := range values {
		if math.Abs(v-current) < math.Abs(values[i]-current) {
			i = j
		}
	}
	return values[max(0, min(len(values)-1, i+delta))]
}

// patch returns the fields that differ from the saved settings.
func (m *settingsModal) patch() leyning.SettingsPatch {
	var p leyning.SettingsPatch
	d, s := m.draft, m.saved
	if d.AudioSpeed != s.AudioSpeed {
		p.AudioSpeed = &d.AudioSpeed
	}
	if d.TextSize != s.TextSize {
		p.TextSize = &d.TextSize
	}
	if d.IL != s.IL {
		p.IL = &d.IL
	}
	if d.Tri != s.Tri {
		p.Tri = &d.Tri
	}
	if d.ColorTheme != s.ColorTheme {
		p.ColorTheme = &d.ColorTheme
	}
	return p
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (m *settingsModal) view(st styles) string {
	rows := []struct {
		label, value string
	}{
		{"Speed", audio.FormatSpeed(m.draft.AudioSpeed)},
		{"Text size", strconv.FormatFloat(m.draft.TextSize, 'f', -1, 64) + "x"},
		{"Israel scheme", onOff(m.draft.IL)},
		{"Triennial", onOff(m.draft.Tri)},
		{"Theme", string(m.draft.ColorTheme)},
	}

	var b strings.Builder
	b.WriteString(st.title.Render("Settings") + "\n\n")
	for i, r := range rows {
		line := fmt.Sprintf("%-14s ‹ %s ›", r.label, r.value)
		if settingsField(i) == m.field {
			line = st.modalSelected.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n" + st.note.Render("←/→ change  enter save  esc cancel"))
	return st.modal.Render(b.String())
}
