// Package eventbus provides synchronous fan-out of coordinator state-change
// notifications to registered handlers.
package eventbus

import (
	"sync"

	"github.com/dd0wney/cluso-cluster/pkg/logging"
)

// All subscribes a handler to every event type.
const All = ""

// Well-known event types emitted by the coordinator.
const (
	EventNodeJoined        = "node_joined"
	EventNodeLost          = "node_lost"
	EventLeaderElected     = "leader_elected"
	EventTaskAssigned      = "task_assigned"
	EventServiceRegistered = "service_registered"
)

// Handler receives a single event. Handlers run synchronously on the
// triggering goroutine; a panicking handler is recovered and does not stop
// delivery to the remaining handlers.
type Handler func(event Event)

// Event is a state-change notification.
type Event struct {
	Type    string
	Payload map[string]any
}

// Bus routes events to subscribed handlers.
type Bus struct {
	handlers map[string][]Handler
	mu       sync.RWMutex
	logger   logging.Logger
}

// New creates an event bus.
func New(logger logging.Logger) *Bus {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Bus{
		handlers: make(map[string][]Handler),
		logger:   logger.With(logging.Component("eventbus")),
	}
}

// Subscribe registers a handler for an event type. Passing All registers a
// wildcard handler that receives every event.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	if handler == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscriberCount returns the number of handlers registered for a type,
// wildcard handlers excluded.
func (b *Bus) SubscriberCount(eventType string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.handlers[eventType])
}

// Trigger delivers an event to every handler subscribed to its type, then to
// every wildcard handler, in registration order. Trigger never panics and
// never returns an error: handler failures are logged and swallowed.
func (b *Bus) Trigger(eventType string, payload map[string]any) {
	// Snapshot under lock; handlers run outside it so a handler may
	// subscribe or trigger without deadlocking.
	b.mu.RLock()
	typed := b.handlers[eventType]
	wild := b.handlers[All]
	handlers := make([]Handler, 0, len(typed)+len(wild))
	handlers = append(handlers, typed...)
	handlers = append(handlers, wild...)
	b.mu.RUnlock()

	event := Event{Type: eventType, Payload: payload}
	for _, handler := range handlers {
		b.invoke(handler, event)
	}
}

func (b *Bus) invoke(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				logging.Event(event.Type),
				logging.Any("panic", r))
		}
	}()

	handler(event)
}
