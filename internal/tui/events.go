package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea/v2"

	"github.com/billie-coop/configurator/internal/tui/events"
)

// listenForEvents creates a command that waits for the next event
func (m *Model) listenForEvents() tea.Cmd {
	return func() tea.Msg {
		event, ok := <-m.eventSub
		if !ok {
			return nil
		}
		return event
	}
}

func (m *Model) handleEvent(event events.Event) tea.Cmd {
	switch event.Type {
	case events.StatusMessageEvent, events.ErrorMessageEvent:
		if payload, ok := event.Payload.(events.StatusMessagePayload); ok {
			m.status = payload.Message
			m.statusKind = payload.Type
		}

	case events.ConfigSavedEvent:
		if payload, ok := event.Payload.(events.ConfigPayload); ok {
			m.status = fmt.Sprintf("Saved %s settings", payload.Module)
			m.statusKind = "success"
		}

	case events.ConfigSaveFailedEvent:
		if payload, ok := event.Payload.(events.ConfigPayload); ok {
			m.status = payload.Error
			m.statusKind = "error"
		}

	case events.ConfigRehydrateEvent:
		m.status = "Settings changed on disk"
		m.statusKind = "warning"
	}
	return nil
}
