package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea/v2"

	"github.com/billie-coop/configurator/internal/form"
	"github.com/billie-coop/configurator/internal/schema"
	"github.com/billie-coop/configurator/internal/tui/components/dialog"
	"github.com/billie-coop/configurator/internal/tui/events"
)

func newTestModel(t *testing.T) *Model {
	t.Helper()
	broker := events.NewBroker()
	t.Cleanup(broker.Clear)
	sections := []schema.Section{{ID: "general", Title: "General", Options: []schema.Option{
		&schema.BooleanOption{Base: schema.Base{ID: "showLogo", Label: "Show logo"}, Default: true},
	}}}
	session := form.NewSession(sections, nil, nil)
	cfg := dialog.NewConfiguratorDialog(context.Background(), "Invoice Settings", session, broker, nil)
	m := New(cfg, broker)
	m.dialogManager.OpenDialog(dialog.ConfiguratorDialogType)
	return m
}

func TestModelHandlesStatusEvents(t *testing.T) {
	m := newTestModel(t)

	tests := []struct {
		event    events.Event
		wantMsg  string
		wantKind string
	}{
		{
			event:    events.Event{Type: events.ErrorMessageEvent, Payload: events.StatusMessagePayload{Message: "boom", Type: "error"}},
			wantMsg:  "boom",
			wantKind: "error",
		},
		{
			event:    events.Event{Type: events.ConfigSavedEvent, Payload: events.ConfigPayload{Module: "invoiceCreator"}},
			wantMsg:  "Saved invoiceCreator settings",
			wantKind: "success",
		},
		{
			event:    events.Event{Type: events.ConfigSaveFailedEvent, Payload: events.ConfigPayload{Module: "invoiceCreator", Error: "Failed to save"}},
			wantMsg:  "Failed to save",
			wantKind: "error",
		},
		{
			event:    events.Event{Type: events.ConfigRehydrateEvent},
			wantMsg:  "Settings changed on disk",
			wantKind: "warning",
		},
	}
	for _, tt := range tests {
		m.handleEvent(tt.event)
		if m.status != tt.wantMsg || m.statusKind != tt.wantKind {
			t.Errorf("%s: status = %q (%s), want %q (%s)", tt.event.Type, m.status, m.statusKind, tt.wantMsg, tt.wantKind)
		}
	}
}

func TestModelQuitsOnSubmit(t *testing.T) {
	m := newTestModel(t)

	_, cmd := m.Update(dialog.SubmittedMsg{Title: "Invoice Settings"})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if !m.Saved() {
		t.Error("submitted dialog should report saved")
	}
}

func TestModelWindowSize(t *testing.T) {
	m := newTestModel(t)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})

	if m.width != 80 || m.height != 24 {
		t.Errorf("size = %dx%d", m.width, m.height)
	}
	if m.Saved() {
		t.Error("resizing must not save")
	}
}
