package events

// EventType identifies the type of event
type EventType string

const (
	// Settings events
	ConfigChangedEvent    EventType = "config.changed"
	ConfigResetEvent      EventType = "config.reset"
	ConfigSavedEvent      EventType = "config.saved"
	ConfigSaveFailedEvent EventType = "config.save_failed"
	ConfigLoadedEvent     EventType = "config.loaded"
	ConfigRehydrateEvent  EventType = "config.rehydrated"

	// UI events
	StatusMessageEvent EventType = "ui.status"
	ErrorMessageEvent  EventType = "ui.error"
	DialogOpenEvent    EventType = "ui.dialog.open"
	DialogCloseEvent   EventType = "ui.dialog.close"
)

// Event represents an event in the system
type Event struct {
	Type    EventType
	Payload interface{}
}

// Event payload types

// ConfigPayload describes a change to one module, optionally through one
// configurator instance.
type ConfigPayload struct {
	Module   string
	Instance string
	Keys     []string
	Error    string
}

type StatusMessagePayload struct {
	Message string
	Type    string // "info", "warning", "error", "success"
}

type DialogPayload struct {
	DialogID string
	Data     interface{}
}
