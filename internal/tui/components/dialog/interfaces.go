package dialog

import (
	tea "github.com/charmbracelet/bubbletea/v2"
)

// Dialog represents a modal dialog component
type Dialog interface {
	// Core component methods
	Init() tea.Cmd
	Update(tea.Msg) (Dialog, tea.Cmd)
	View() string

	// Dialog-specific methods
	SetSize(width, height int) tea.Cmd
	IsOpen() bool
	Open() tea.Cmd
	Close() tea.Cmd
	Focus() tea.Cmd
	Blur() tea.Cmd
	IsFocused() bool

	// Result handling
	GetResult() any
	IsCancelled() bool
}

// SubmittedMsg is sent once a configurator dialog's values were accepted
// by its submit callback.
type SubmittedMsg struct {
	Title  string
	Values map[string]any
}

// ConfirmedMsg reports the answer of a confirm dialog.
type ConfirmedMsg struct {
	ID        string
	Confirmed bool
}
