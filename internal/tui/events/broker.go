package events

import (
	"sync"
)

// Broker manages event distribution
type Broker struct {
	subscribers map[EventType][]chan Event
	mu          sync.RWMutex
	bufferSize  int
}

// NewBroker creates a new event broker
func NewBroker() *Broker {
	return NewBrokerWithBuffer(10)
}

// NewBrokerWithBuffer creates a broker whose subscriber channels hold size events.
func NewBrokerWithBuffer(size int) *Broker {
	if size < 1 {
		size = 1
	}
	return &Broker{
		subscribers: make(map[EventType][]chan Event),
		bufferSize:  size,
	}
}

// Subscribe creates a subscription to specific event types
func (b *Broker) Subscribe(eventTypes ...EventType) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, b.bufferSize)

	// If no specific types provided, subscribe to all
	if len(eventTypes) == 0 {
		eventTypes = []EventType{"*"} // wildcard
	}

	for _, eventType := range eventTypes {
		b.subscribers[eventType] = append(b.subscribers[eventType], ch)
	}

	return ch
}

// Unsubscribe removes a subscription. The channel is closed once it is no
// longer registered for any event type.
func (b *Broker) Unsubscribe(ch <-chan Event, eventTypes ...EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// If no specific types provided, unsubscribe from all
	if len(eventTypes) == 0 {
		for eventType := range b.subscribers {
			eventTypes = append(eventTypes, eventType)
		}
	}

	var removed chan Event
	for _, eventType := range eventTypes {
		if c := b.removeChannel(eventType, ch); c != nil {
			removed = c
		}
	}

	if removed != nil && !b.registered(ch) {
		close(removed)
	}
}

// Publish sends an event to all subscribers
func (b *Broker) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	// Send to specific subscribers
	if subscribers, ok := b.subscribers[event.Type]; ok {
		for _, ch := range subscribers {
			select {
			case ch <- event:
			default:
				// Channel full, skip this event
			}
		}
	}

	// Send to wildcard subscribers
	if wildcards, ok := b.subscribers["*"]; ok {
		for _, ch := range wildcards {
			select {
			case ch <- event:
			default:
				// Channel full, skip this event
			}
		}
	}
}

// PublishAsync sends an event asynchronously
func (b *Broker) PublishAsync(event Event) {
	go b.Publish(event)
}

// Status publishes a status line for the UI.
func (b *Broker) Status(kind, message string) {
	eventType := StatusMessageEvent
	if kind == "error" {
		eventType = ErrorMessageEvent
	}
	b.Publish(Event{
		Type:    eventType,
		Payload: StatusMessagePayload{Message: message, Type: kind},
	})
}

// removeChannel removes a channel from a specific event type's subscribers
// and returns it, or nil when it was not subscribed to that type.
func (b *Broker) removeChannel(eventType EventType, target <-chan Event) chan Event {
	var removed chan Event
	subscribers := b.subscribers[eventType]
	for i, ch := range subscribers {
		if ch == target {
			b.subscribers[eventType] = append(subscribers[:i], subscribers[i+1:]...)
			removed = ch
			break
		}
	}

	// Clean up empty subscriber lists
	if len(b.subscribers[eventType]) == 0 {
		delete(b.subscribers, eventType)
	}
	return removed
}

func (b *Broker) registered(target <-chan Event) bool {
	for _, subscribers := range b.subscribers {
		for _, ch := range subscribers {
			if ch == target {
				return true
			}
		}
	}
	return false
}

// Clear removes all subscriptions
func (b *Broker) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	closed := make(map[chan Event]bool)
	for _, subscribers := range b.subscribers {
		for _, ch := range subscribers {
			if !closed[ch] {
				close(ch)
				closed[ch] = true
			}
		}
	}

	b.subscribers = make(map[EventType][]chan Event)
}
