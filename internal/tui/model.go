// Package tui hosts one configurator dialog as a full-screen bubbletea program.
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"github.com/billie-coop/configurator/internal/tui/components/dialog"
	"github.com/billie-coop/configurator/internal/tui/events"
	"github.com/billie-coop/configurator/internal/tui/styles"
)

const statusHeight = 1

// Model is the root model: the dialog manager plus a status bar fed by
// the event broker.
type Model struct {
	width  int
	height int

	dialogManager *dialog.Manager
	configurator  *dialog.ConfiguratorDialog

	// Event system
	eventBroker *events.Broker
	eventSub    <-chan events.Event

	status     string
	statusKind string
	saved      bool
	quitting   bool
}

// New creates the root model around configurator.
func New(configurator *dialog.ConfiguratorDialog, eventBroker *events.Broker) *Model {
	m := &Model{
		dialogManager: dialog.NewManager(eventBroker, configurator),
		configurator:  configurator,
		eventBroker:   eventBroker,
	}
	m.eventSub = eventBroker.Subscribe(
		events.StatusMessageEvent,
		events.ErrorMessageEvent,
		events.ConfigSavedEvent,
		events.ConfigSaveFailedEvent,
		events.ConfigRehydrateEvent,
	)
	return m
}

// Saved reports whether the dialog was submitted successfully.
func (m *Model) Saved() bool {
	return m.saved
}

// Init opens the configurator and starts listening for events
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.dialogManager.Init(),
		m.dialogManager.OpenDialog(dialog.ConfiguratorDialogType),
		m.listenForEvents(),
	)
}

// Update routes messages to the dialogs
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if event, ok := msg.(events.Event); ok {
		return m, tea.Batch(m.handleEvent(event), m.listenForEvents())
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, m.dialogManager.SetSize(msg.Width, msg.Height-statusHeight)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}

	case dialog.SubmittedMsg:
		m.saved = true
		m.quitting = true
		return m, tea.Quit
	}

	cmd := m.dialogManager.Update(msg)
	if !m.dialogManager.IsDialogOpen() {
		m.quitting = true
		return m, tea.Batch(cmd, tea.Quit)
	}
	return m, cmd
}

// View renders the active dialog over the status bar
func (m *Model) View() tea.View {
	if m.quitting {
		return tea.NewView("")
	}
	if m.width == 0 || m.height == 0 {
		return tea.NewView("Initializing...")
	}
	return tea.NewView(lipgloss.JoinVertical(lipgloss.Left, m.dialogManager.View(), m.statusView()))
}

func (m *Model) statusView() string {
	theme := styles.CurrentTheme()
	s := theme.S()

	style := s.Muted
	switch m.statusKind {
	case "error":
		style = s.Error
	case "warning":
		style = s.Warning
	case "success":
		style = s.Success
	}
	return lipgloss.NewStyle().
		Width(m.width).
		Background(theme.BgBase).
		Render(style.Render(m.status))
}

// Run drives the program until the dialog closes and reports whether the
// settings were saved.
func Run(ctx context.Context, m *Model) (bool, error) {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return false, fmt.Errorf("run configurator: %w", err)
	}
	return m.Saved(), nil
}
