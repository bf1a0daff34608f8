package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	runewidth "github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"

	"github.com/leyningapp/leyn/leyning"
	"github.com/leyningapp/leyn/leyning/audio"
)

func (m model) View() string {
	var b strings.Builder
	fmt.Fprint(&b, m.headerView()+"\n")

	if m.modal != nil {
		fmt.Fprint(&b, lipgloss.Place(m.width, m.viewport.Height, lipgloss.Center, lipgloss.Center, m.modal.view(m.styles))+"\n")
	} else {
		fmt.Fprint(&b, m.viewport.View()+"\n")
	}

	// Footer
	m.statusBarView(&b)

	if m.showHelp {
		fmt.Fprint(&b, "\n"+m.helpView())
	}

	return b.String()
}

func aliyahLabel(sel leyning.AliyahSelector) string {
	switch sel {
	case leyning.Maftir:
		return "Maftir"
	case leyning.Haftarah:
		return "Haftarah"
	default:
		return "Aliyah " + string(sel)
	}
}

func (m model) headerView() string {
	var s string
	switch {
	case m.loading:
		s = m.spinner.View() + " Loading " + m.selection.ReadingID + " " + aliyahLabel(m.selection.Aliyah) + ellipsis
	case m.session != nil:
		s = m.styles.title.Render(m.session.Spec.Name + " · " + aliyahLabel(m.session.Aliyah))
		var notes []string
		if m.session.Spec.Triennial {
			notes = append(notes, "triennial")
		}
		if m.session.Spec.Summary != "" {
			notes = append(notes, m.session.Spec.Summary)
		}
		if len(notes) > 0 {
			s += " " + m.styles.note.Render(strings.Join(notes, " · "))
		}
	}
	return truncate.StringWithTail(s, uint(max(0, m.width)), ellipsis) //nolint:gosec
}

func formatPosition(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// playbackNote describes the playback state for the status bar.
func (m model) playbackNote() (note, position string) {
	if m.session == nil {
		return "", ""
	}
	c := m.session.Controller()
	if c == nil {
		return "no audio", ""
	}

	snap := c.Snapshot()
	note = snap.State.String()
	if snap.Tracks > 1 {
		note += fmt.Sprintf(" (%d/%d)", snap.Track+1, snap.Tracks)
	}
	note += " · " + audio.FormatSpeed(snap.Rate)
	if !m.follow {
		note += " · follow off"
	}
	return note, formatPosition(snap.Position)
}

func (m model) statusBarView(b *strings.Builder) {
	showStatusMessage := m.statusMessage != ""

	noteStyle := m.styles.statusNote
	switch {
	case showStatusMessage && m.statusIsError:
		noteStyle = m.styles.statusError
	case showStatusMessage:
		noteStyle = m.styles.statusMessage
	}

	logo := logoView()

	note, position := m.playbackNote()
	if showStatusMessage {
		note = m.statusMessage
	}
	if position != "" {
		position = noteStyle.Render(" " + position + " ")
	}

	helpNote := m.styles.statusHelp.Render(" ? Help ")

	note = truncate.StringWithTail(" "+note+" ", uint(max(0, //nolint:gosec
		m.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(position)-
			ansi.PrintableRuneWidth(helpNote),
	)), ellipsis)
	note = noteStyle.Render(note)

	// Empty space
	padding := max(0,
		m.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(note)-
			ansi.PrintableRuneWidth(position)-
			ansi.PrintableRuneWidth(helpNote),
	)
	emptySpace := noteStyle.Render(strings.Repeat(" ", padding))

	fmt.Fprintf(b, "%s%s%s%s%s",
		logo,
		note,
		emptySpace,
		position,
		helpNote,
	)
}

func (m model) helpView() (s string) {
	col1 := []string{
		"space    play/pause",
		"enter    play from word",
		"+/-      speed",
		"s        settings",
		"t        translation",
		"v        tikkun text",
		"c        copy verse",
	}
	col2 := []string{
		"←/h →/l  previous/next word",
		"[ ]      previous/next verse",
		"k/↑ j/↓  scroll",
		"1-7 m H  aliyah, maftir, haftarah",
		"n/p      next/previous aliyah",
		"f        follow spoken word",
		"q        quit",
	}

	s += "\n"
	for i := range col1 {
		s += fmt.Sprintf("%-26s%s\n", col1[i], col2[i])
	}
	s = strings.TrimSuffix(s, "\n")
	s = indent(s, 2)

	// Fill up empty cells with spaces for background coloring
	if m.width > 0 {
		lines := strings.Split(s, "\n")
		for i := 0; i < len(lines); i++ {
			l := runewidth.StringWidth(lines[i])
			n := max(m.width-l, 0)
			lines[i] += strings.Repeat(" ", n)
		}

		s = strings.Join(lines, "\n")
	}

	return m.styles.help.Render(s)
}

// indent a multi-line string.
func indent(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	l := strings.Split(s, "\n")
	b := strings.Builder{}
	i := strings.Repeat(" ", n)
	for _, v := range l {
		fmt.Fprintf(&b, "%s%s\n", i, v)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
