package leyning

import (
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// Messages for Bubble Tea communication between the engine and the UI.

// PlaybackMsg carries a controller snapshot.
type PlaybackMsg struct {
	State    ControllerState
	Loaded   bool
	Track    int     // Current track index
	Position float64 // Seconds into the current track
	Playing  bool
	Rate     float64
}

// ActiveWordMsg indicates the spoken word changed.
type ActiveWordMsg struct {
	Index  int  // Flat word index
	Active bool // False when nothing is being spoken
}

// SettingsChangedMsg is broadcast after every settings update.
type SettingsChangedMsg struct {
	Settings Settings
}

// ErrorMsg indicates an error occurred in the engine.
type ErrorMsg struct {
	Err         error
	Recoverable bool
	Component   string // Which component had the error (assembler, controller, content, etc.)
	Action      string // What action was being performed
}

// TickMsg drives periodic redraws while audio plays.
type TickMsg time.Time

// TickCmd schedules the next TickMsg.
func TickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// ErrorCmd wraps err into an ErrorMsg. Abandoned selections yield no message.
func ErrorCmd(err error, component, action string) tea.Cmd {
	return func() tea.Msg {
		if err == nil || IsAbandoned(err) {
			return nil
		}
		msg := ErrorMsg{
			Err:         err,
			Recoverable: IsRecoverableError(err),
			Component:   component,
			Action:      action,
		}
		var e *Error
		if errors.As(err, &e) {
			msg.Component = e.Component
			msg.Action = e.Action
		}
		return msg
	}
}

// ListenCmd waits for the next message on ch. It returns nil once ch is
// closed.
func ListenCmd(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}
