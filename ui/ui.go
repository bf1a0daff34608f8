// Package ui provides the read-along TUI: the verses of a reading with the
// spoken word highlighted, word seeking and playback controls.
package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"

	"github.com/leyningapp/leyn/leyning"
	"github.com/leyningapp/leyn/leyning/audio"
	"github.com/leyningapp/leyn/leyning/reading"
	"github.com/leyningapp/leyn/leyning/verses"
)

const (
	statusMessageTimeout = time.Second * 3
	statusBarHeight      = 1
	headerHeight         = 1
	eventBuffer          = 64

	keyEsc   = "esc"
	keyEnter = "enter"
)

var aliyahOrder = []leyning.AliyahSelector{
	"1", "2", "3", "4", "5", "6", "7", leyning.Maftir, leyning.Haftarah,
}

type (
	sessionReadyMsg         struct{ session *reading.Session }
	statusMessageTimeoutMsg struct{}
)

// NewProgram returns a new Tea program.
func NewProgram(cfg Config, assembler *reading.Assembler, settings SettingsStore) *tea.Program {
	log.Debug("starting leyn", "reading", cfg.Selection.ReadingID, "aliyah", cfg.Selection.Aliyah)

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newModel(cfg, assembler, settings), opts...)
}

type model struct {
	cfg       Config
	assembler *reading.Assembler
	settings  SettingsStore

	// Engine callbacks are posted here and read one at a time by ListenCmd.
	events      chan tea.Msg
	unsubscribe func()

	width    int
	height   int
	viewport viewport.Model
	spinner  spinner.Model
	styles   styles
	layout   layout

	selection     reading.Selection
	session       *reading.Session
	loading       bool
	settingsValue leyning.Settings
	policy        verses.StripPolicy

	cursor int
	active int
	follow bool

	showHelp           bool
	modal              *settingsModal
	statusMessage      string
	statusIsError      bool
	statusMessageTimer *time.Timer
}

func newModel(cfg Config, assembler *reading.Assembler, settings SettingsStore) model {
	vp := viewport.New(0, 0)
	vp.KeyMap = viewport.KeyMap{
		PageDown:     key.NewBinding(key.WithKeys("pgdown")),
		PageUp:       key.NewBinding(key.WithKeys("pgup")),
		HalfPageUp:   key.NewBinding(key.WithKeys("u", "ctrl+u")),
		HalfPageDown: key.NewBinding(key.WithKeys("d", "ctrl+d")),
		Up:           key.NewBinding(key.WithKeys("up", "k")),
		Down:         key.NewBinding(key.WithKeys("down", "j")),
		Left:         key.NewBinding(key.WithDisabled()),
		Right:        key.NewBinding(key.WithDisabled()),
	}

	s := settings.Settings()
	m := model{
		cfg:           cfg,
		assembler:     assembler,
		settings:      settings,
		events:        make(chan tea.Msg, eventBuffer),
		viewport:      vp,
		spinner:       spinner.New(spinner.WithSpinner(spinner.Dot)),
		styles:        newStyles(s.ColorTheme, s.TextSize >= 1.5),
		selection:     cfg.Selection,
		loading:       true,
		settingsValue: s,
		active:        -1,
		follow:        cfg.Follow,
	}
	if cfg.Tikkun {
		m.policy = verses.StripTikkun
	}

	events := m.events
	m.unsubscribe = settings.Subscribe(func(s leyning.Settings) {
		post(events, leyning.SettingsChangedMsg{Settings: s})
	})
	return m
}

// post delivers msg without blocking the engine. Messages only wake the
// model up, which then reads the current state, so a dropped one is
// harmless.
func post(ch chan<- tea.Msg, msg tea.Msg) {
	select {
	case ch <- msg:
	default:
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.selectCmd(), m.spinner.Tick, leyning.ListenCmd(m.events))
}

func (m model) selectCmd() tea.Cmd {
	a, sel := m.assembler, m.selection
	return func() tea.Msg {
		s, err := a.Select(context.Background(), sel)
		if err != nil {
			return leyning.ErrorCmd(err, "assembler", "select")()
		}
		return sessionReadyMsg{session: s}
	}
}

// reselect tears down the current session and assembles the selection
// again.
func (m *model) reselect() tea.Cmd {
	m.session = nil
	m.loading = true
	m.active = -1
	m.rerender()
	return tea.Batch(m.selectCmd(), m.spinner.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.setSize()
		m.rerender()

	case sessionReadyMsg:
		if m.assembler != nil && m.assembler.Current() != msg.session {
			return m, nil
		}
		m.loading = false
		m.session = msg.session
		m.cursor = 0
		m.active = -1
		m.watchSession()
		m.viewport.GotoTop()
		m.rerender()
		if !m.session.HasAudio {
			cmds = append(cmds, m.showStatusMessage("No synchronized audio: "+m.session.NoAudioReason, false))
		}

	case leyning.ErrorMsg:
		m.loading = false
		log.Error("engine error", "component", msg.Component, "action", msg.Action, "err", msg.Err)
		cmds = append(cmds, m.showStatusMessage(msg.Err.Error(), true))

	case leyning.PlaybackMsg, leyning.ActiveWordMsg:
		m.syncActive()
		return m, leyning.ListenCmd(m.events)

	case leyning.SettingsChangedMsg:
		cmds = append(cmds, m.applySettings(msg.Settings), leyning.ListenCmd(m.events))

	case statusMessageTimeoutMsg:
		m.statusMessage = ""
		m.statusIsError = false

	case spinner.TickMsg:
		if m.loading {
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case tea.MouseMsg:
		if m.modal == nil && msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			line := msg.Y - headerHeight + m.viewport.YOffset
			if flat, ok := m.layout.wordAt(line, msg.X); ok {
				m.cursor = flat
				m.rerender()
				cmds = append(cmds, m.seek(flat))
			}
		}

	case tea.KeyMsg:
		if m.modal != nil {
			return m, m.updateModal(msg)
		}
		if quit, cmd := m.handleKey(msg); quit {
			return m, cmd
		} else if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// handleKey processes a key outside the settings modal. It reports whether
// the program should quit.
func (m *model) handleKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
		return true, tea.Quit

	case keyEsc:
		if m.showHelp {
			m.toggleHelp()
		}

	case "?":
		m.toggleHelp()

	case " ":
		return false, m.togglePlayback()

	case "left", "h":
		m.moveCursor(m.cursor - 1)
	case "right", "l":
		m.moveCursor(m.cursor + 1)
	case "[":
		m.moveVerse(-1)
	case "]":
		m.moveVerse(1)
	case keyEnter:
		return false, m.seek(m.cursor)

	case "up", "k", "down", "j", "pgup", "pgdown", "u", "d", "ctrl+u", "ctrl+d":
		m.follow = false

	case "f":
		m.follow = !m.follow
		if m.follow && m.active >= 0 {
			m.scrollTo(m.layout.lineOf(m.active))
		}
		return false, m.showStatusMessage("Follow "+onOff(m.follow), false)

	case "v":
		if m.policy == verses.StripTikkun {
			m.policy = verses.StripPlain
		} else {
			m.policy = verses.StripTikkun
		}
		m.rerender()
		return false, m.showStatusMessage("Showing "+m.policy.String()+" text", false)

	case "t":
		m.selection.Translation = !m.selection.Translation
		return false, m.reselect()

	case "+", "=":
		speed := audio.NextSpeed(m.settingsValue.AudioSpeed)
		return false, m.updateSettings(leyning.SettingsPatch{AudioSpeed: &speed})
	case "-":
		speed := audio.PreviousSpeed(m.settingsValue.AudioSpeed)
		return false, m.updateSettings(leyning.SettingsPatch{AudioSpeed: &speed})

	case "s":
		m.modal = newSettingsModal(m.settingsValue)

	case "c":
		return false, m.copyVerse()

	case "n":
		return false, m.stepAliyah(1)
	case "p":
		return false, m.stepAliyah(-1)
	case "1", "2", "3", "4", "5", "6", "7":
		return false, m.selectAliyah(leyning.AliyahSelector(msg.String()))
	case "m":
		return false, m.selectAliyah(leyning.Maftir)
	case "H":
		return false, m.selectAliyah(leyning.Haftarah)
	}
	return false, nil
}

func (m *model) updateModal(msg tea.KeyMsg) tea.Cmd {
	md := m.modal
	switch msg.String() {
	case "up", "k", "shift+tab":
		md.move(-1)
	case "down", "j", "tab":
		md.move(1)
	case "left", "h", "-":
		md.adjust(-1)
		m.previewSpeed(md)
	case "right", "l", "+", "=", " ":
		md.adjust(1)
		m.previewSpeed(md)
	case keyEnter:
		m.modal = nil
		if _, err := m.settings.Update(md.patch()); err != nil {
			m.restoreSpeed(md.saved.AudioSpeed)
			return m.showStatusMessage("Could not save settings: "+err.Error(), true)
		}
		return m.showStatusMessage("Settings saved", false)
	case keyEsc, "q":
		m.modal = nil
		m.restoreSpeed(md.saved.AudioSpeed)
	}
	return nil
}

func (m *model) previewSpeed(md *settingsModal) {
	if md.field == fieldSpeed {
		m.restoreSpeed(md.draft.AudioSpeed)
	}
}

func (m *model) restoreSpeed(speed float64) {
	if m.session != nil && m.session.HasAudio {
		if err := m.session.SetSpeed(speed); err != nil {
			log.Warn("failed to set speed", "speed", speed, "err", err)
		}
	}
}

func (m *model) updateSettings(p leyning.SettingsPatch) tea.Cmd {
	if _, err := m.settings.Update(p); err != nil {
		return m.showStatusMessage(err.Error(), true)
	}
	return nil
}

// applySettings reacts to persisted settings, whichever instance changed
// them.
func (m *model) applySettings(s leyning.Settings) tea.Cmd {
	old := m.settingsValue
	m.settingsValue = s

	var cmds []tea.Cmd
	if s.AudioSpeed != old.AudioSpeed {
		m.restoreSpeed(s.AudioSpeed)
		cmds = append(cmds, m.showStatusMessage("Speed "+audio.FormatSpeed(s.AudioSpeed), false))
	}
	if s.ColorTheme != old.ColorTheme || s.TextSize != old.TextSize {
		m.styles = newStyles(s.ColorTheme, s.TextSize >= 1.5)
		m.rerender()
	}
	if s.Scheme() != old.Scheme() {
		cmds = append(cmds, m.reselect())
	}
	return tea.Batch(cmds...)
}

func (m *model) selectAliyah(sel leyning.AliyahSelector) tea.Cmd {
	if sel == m.selection.Aliyah && m.session != nil {
		return nil
	}
	m.selection.Aliyah = sel
	return m.reselect()
}

func (m *model) stepAliyah(delta int) tea.Cmd {
	i := 0
	for j, sel := range aliyahOrder {
		if sel == m.selection.Aliyah {
			i = j
		}
	}
	i = max(0, min(len(aliyahOrder)-1, i+delta))
	return m.selectAliyah(aliyahOrder[i])
}

func (m *model) watchSession() {
	events := m.events
	if c := m.session.Controller(); c != nil {
		c.Subscribe(func(s audio.Snapshot) {
			post(events, leyning.PlaybackMsg{
				State:    s.State,
				Loaded:   s.Loaded,
				Track:    s.Track,
				Position: s.Position,
				Playing:  s.Playing,
				Rate:     s.Rate,
			})
		})
	}
	if t := m.session.Tracker(); t != nil {
		t.OnWordChange(func(index int, active bool) {
			post(events, leyning.ActiveWordMsg{Index: index, Active: active})
		})
	}
}

func (m *model) syncActive() {
	active := -1
	if m.session != nil {
		if i, ok := m.session.ActiveWord(); ok {
			active = i
		}
	}
	if active == m.active {
		return
	}
	m.active = active
	m.rerender()
	if m.follow && active >= 0 {
		m.scrollTo(m.layout.lineOf(active))
	}
}

func (m *model) togglePlayback() tea.Cmd {
	if m.session == nil {
		return nil
	}
	return m.report(m.session.TogglePlayback())
}

func (m *model) seek(flat int) tea.Cmd {
	if m.session == nil {
		return nil
	}
	m.follow = m.cfg.Follow
	return m.report(m.session.SeekToWord(flat))
}

func (m *model) report(err error) tea.Cmd {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, leyning.ErrNoSource):
		return m.showStatusMessage("No synchronized audio for this reading", false)
	default:
		log.Warn("playback command failed", "err", err)
		return m.showStatusMessage(err.Error(), true)
	}
}

func (m *model) moveCursor(flat int) {
	if m.session == nil || m.session.Index.Len() == 0 {
		return
	}
	m.cursor = max(0, min(m.session.Index.Len()-1, flat))
	m.rerender()
	m.scrollTo(m.layout.lineOf(m.cursor))
}

func (m *model) moveVerse(delta int) {
	if m.session == nil || m.session.Index.Len() == 0 {
		return
	}
	verse, _, err := m.session.Index.VerseAndWordAt(m.cursor)
	if err != nil {
		return
	}
	verse = max(0, min(m.session.Index.Verses()-1, verse+delta))
	start, _ := m.session.Index.VerseRange(verse)
	m.moveCursor(start)
}

func (m *model) copyVerse() tea.Cmd {
	if m.session == nil || m.session.Index.Len() == 0 {
		return nil
	}
	verse, _, err := m.session.Index.VerseAndWordAt(m.cursor)
	if err != nil {
		return nil
	}
	v := m.session.Verses[verse]

	text := strings.Join(verses.StripAll(v.Words, m.policy), " ")
	if v.Translation != nil {
		text += "\n" + *v.Translation
	}

	// Copy using OSC 52
	termenv.Copy(text)
	// Copy using native system clipboard
	_ = clipboard.WriteAll(text)

	return m.showStatusMessage("Copied "+string(v.Book)+" "+verses.Key(v.ChapterVerse), false)
}

func (m *model) scrollTo(line int) {
	if line >= m.viewport.YOffset && line < m.viewport.YOffset+m.viewport.Height {
		return
	}
	m.viewport.SetYOffset(max(0, line-m.viewport.Height/3))
}

func (m *model) setSize() {
	m.viewport.Width = m.width
	m.viewport.Height = max(0, m.height-headerHeight-statusBarHeight)
	if m.showHelp {
		m.viewport.Height = max(0, m.viewport.Height-strings.Count(m.helpView(), "\n")-1)
	}
}

func (m *model) toggleHelp() {
	m.showHelp = !m.showHelp
	m.setSize()
	if m.viewport.PastBottom() {
		m.viewport.GotoBottom()
	}
}

func (m *model) textWidth() int {
	w := m.width
	if m.cfg.MaxWidth > 0 && w > m.cfg.MaxWidth {
		w = m.cfg.MaxWidth
	}
	return w
}

func (m *model) rerender() {
	if m.session == nil {
		m.layout = layout{}
		m.viewport.SetContent("")
		return
	}
	m.layout = renderVerses(m.session.Verses, m.session.Index, renderOptions{
		width:       m.textWidth(),
		active:      m.active,
		cursor:      m.cursor,
		policy:      m.policy,
		translation: m.selection.Translation,
		spacing:     spacingFor(m.settingsValue.TextSize),
		styles:      m.styles,
	})
	m.viewport.SetContent(m.layout.content)
}

func (m *model) showStatusMessage(msg string, isError bool) tea.Cmd {
	m.statusMessage = msg
	m.statusIsError = isError
	if m.statusMessageTimer != nil {
		m.statusMessageTimer.Stop()
	}
	m.statusMessageTimer = time.NewTimer(statusMessageTimeout)

	return waitForStatusMessageTimeout(m.statusMessageTimer)
}

func waitForStatusMessageTimeout(t *time.Timer) tea.Cmd {
	return func() tea.Msg {
		<-t.C
		return statusMessageTimeoutMsg{}
	}
}
