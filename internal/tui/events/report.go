package events

import "fmt"

// Saved publishes a successful module save made through an instance.
func (b *Broker) Saved(module, instance string) {
	b.Publish(Event{
		Type:    ConfigSavedEvent,
		Payload: ConfigPayload{Module: module, Instance: instance},
	})
}

// SaveFailed publishes a failed module save and surfaces it as an error
// status line.
func (b *Broker) SaveFailed(module, instance string, err error) {
	msg := fmt.Sprintf("Failed to save %s settings: %v", module, err)
	b.Publish(Event{
		Type:    ConfigSaveFailedEvent,
		Payload: ConfigPayload{Module: module, Instance: instance, Error: msg},
	})
	b.Status("error", msg)
}

// ConfigChanged publishes local edits to a module.
func (b *Broker) ConfigChanged(module string, keys []string) {
	b.Publish(Event{
		Type:    ConfigChangedEvent,
		Payload: ConfigPayload{Module: module, Keys: keys},
	})
}

// ConfigReset publishes a module reset to its pristine state.
func (b *Broker) ConfigReset(module string) {
	b.Publish(Event{
		Type:    ConfigResetEvent,
		Payload: ConfigPayload{Module: module},
	})
}

// ConfigLoaded publishes values merged in from the backend.
func (b *Broker) ConfigLoaded(module string, keys []string) {
	b.Publish(Event{
		Type:    ConfigLoadedEvent,
		Payload: ConfigPayload{Module: module, Keys: keys},
	})
}
