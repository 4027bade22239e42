package dialog

import (
	tea "github.com/charmbracelet/bubbletea/v2"

	"github.com/billie-coop/configurator/internal/tui/events"
)

// DialogType identifies the type of dialog
type DialogType string

const (
	ConfiguratorDialogType DialogType = "configurator"
	DiscardDialogType      DialogType = "discard"
)

// Manager hosts a configurator dialog and the discard confirmation that
// guards closing it with unsaved changes.
type Manager struct {
	dialogs      map[DialogType]Dialog
	activeDialog DialogType
	eventBroker  *events.Broker
	width        int
	height       int
}

// NewManager creates a new dialog manager around configurator
func NewManager(eventBroker *events.Broker, configurator *ConfiguratorDialog) *Manager {
	m := &Manager{
		dialogs:     make(map[DialogType]Dialog),
		eventBroker: eventBroker,
	}
	m.dialogs[ConfiguratorDialogType] = configurator
	m.dialogs[DiscardDialogType] = NewConfirmDialog(string(DiscardDialogType), "Unsaved changes", "Discard unsaved changes?")
	return m
}

// Init initializes all dialogs
func (m *Manager) Init() tea.Cmd {
	var cmds []tea.Cmd
	for _, dialog := range m.dialogs {
		cmds = append(cmds, dialog.Init())
	}
	return tea.Batch(cmds...)
}

// Update handles updates for the active dialog
func (m *Manager) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.SetSize(msg.Width, msg.Height)
	case DiscardRequestMsg:
		return m.OpenDialog(DiscardDialogType)
	case ConfirmedMsg:
		if msg.ID != string(DiscardDialogType) {
			return nil
		}
		if msg.Confirmed {
			return m.discardConfigurator()
		}
		m.activeDialog = ConfiguratorDialogType
		return nil
	}

	if m.activeDialog == "" {
		return nil
	}
	dialog, ok := m.dialogs[m.activeDialog]
	if !ok {
		return nil
	}

	// Results of async commands belong to the configurator even while the
	// confirmation is on top.
	if _, isKey := msg.(tea.KeyMsg); !isKey && m.activeDialog != ConfiguratorDialogType {
		dialog = m.dialogs[ConfiguratorDialogType]
	}

	_, cmd := dialog.Update(msg)
	if dialog == m.dialogs[ConfiguratorDialogType] && !dialog.IsOpen() {
		m.publishClose(ConfiguratorDialogType, dialog)
		m.activeDialog = ""
	}
	return cmd
}

// View renders the active dialog
func (m *Manager) View() string {
	if m.activeDialog == "" {
		return ""
	}
	if dialog, ok := m.dialogs[m.activeDialog]; ok {
		return dialog.View()
	}
	return ""
}

// SetSize sets the size for all dialogs
func (m *Manager) SetSize(width, height int) tea.Cmd {
	m.width = width
	m.height = height

	var cmds []tea.Cmd
	for _, dialog := range m.dialogs {
		cmds = append(cmds, dialog.SetSize(width, height))
	}
	return tea.Batch(cmds...)
}

// OpenDialog opens a specific dialog
func (m *Manager) OpenDialog(dialogType DialogType) tea.Cmd {
	dialog, ok := m.dialogs[dialogType]
	if !ok {
		return nil
	}
	m.activeDialog = dialogType
	m.publish(events.DialogOpenEvent, events.DialogPayload{DialogID: string(dialogType)})
	return dialog.Open()
}

// discardConfigurator closes the configurator as cancelled, dropping its edits.
func (m *Manager) discardConfigurator() tea.Cmd {
	dialog, ok := m.dialogs[ConfiguratorDialogType].(*ConfiguratorDialog)
	if !ok {
		return nil
	}
	cmd := dialog.Cancel()
	m.publishClose(ConfiguratorDialogType, dialog)
	m.activeDialog = ""
	return cmd
}

func (m *Manager) publishClose(dialogType DialogType, dialog Dialog) {
	m.publish(events.DialogCloseEvent, events.DialogPayload{
		DialogID: string(dialogType),
		Data:     dialog.GetResult(),
	})
}

func (m *Manager) publish(eventType events.EventType, payload events.DialogPayload) {
	if m.eventBroker == nil {
		return
	}
	m.eventBroker.Publish(events.Event{Type: eventType, Payload: payload})
}

// IsDialogOpen returns whether any dialog is open
func (m *Manager) IsDialogOpen() bool {
	return m.activeDialog != ""
}

// GetActiveDialog returns the currently active dialog type
func (m *Manager) GetActiveDialog() DialogType {
	return m.activeDialog
}
