package events

import (
	"sync"
)

// Handler receives published events. Handlers run synchronously on the publisher's
// goroutine and must not block; streaming handlers hand off through a buffered channel.
type Handler func(event *Event)

// Bus fans events out to subscribers by event type.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType]map[int]Handler
	all      map[int]Handler
	nextID   int
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType]map[int]Handler),
		all:      make(map[int]Handler),
	}
}

// Subscribe registers a handler for one event type and returns its subscription id
func (b *Bus) Subscribe(eventType EventType, handler Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	if b.handlers[eventType] == nil {
		b.handlers[eventType] = make(map[int]Handler)
	}
	b.handlers[eventType][b.nextID] = handler
	return b.nextID
}

// SubscribeAll registers a handler for every event type
func (b *Bus) SubscribeAll(handler Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.all[b.nextID] = handler
	return b.nextID
}

// Unsubscribe removes a subscription regardless of the type it was registered for
func (b *Bus) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.all, id)
	for eventType, subs := range b.handlers {
		delete(subs, id)
		if len(subs) == 0 {
			delete(b.handlers, eventType)
		}
	}
}

// Publish delivers an event to every matching subscriber
func (b *Bus) Publish(event *Event) {
	b.mu.RLock()
	targets := make([]Handler, 0, len(b.handlers[event.Type])+len(b.all))
	for _, h := range b.handlers[event.Type] {
		targets = append(targets, h)
	}
	for _, h := range b.all {
		targets = append(targets, h)
	}
	b.mu.RUnlock()

	for _, h := range targets {
		h(event)
	}
}

// SubscriberCount returns the number of active subscriptions
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := len(b.all)
	for _, subs := range b.handlers {
		n += len(subs)
	}
	return n
}
