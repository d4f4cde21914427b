package events

import (
	"context"
	"sync"

	"clickup-bridge/pkg/logger"
)

// Handler processes one dispatched event. A returned error aborts the
// dispatch and propagates to the caller.
type Handler func(ctx context.Context, event DomainEvent) error

// Dispatcher routes events to subscribed handlers synchronously, in
// registration order.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
	logger   logger.Logger
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher(log logger.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[Type][]Handler),
		logger:   log,
	}
}

// Subscribe registers a handler for one event type. Subscribing to TypeAll
// receives every recognized event.
func (d *Dispatcher) Subscribe(t Type, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[t] = append(d.handlers[t], handler)
}

// SubscribeAll registers a handler for every recognized event
func (d *Dispatcher) SubscribeAll(handler Handler) {
	d.Subscribe(TypeAll, handler)
}

// Dispatch parses the provider event name, builds the typed event, and runs
// the matching handlers. Unrecognized names are logged and dropped without
// error; a handler error stops the run and is returned to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, eventName string, payload map[string]interface{}) error {
	t, ok := ParseType(eventName)
	if !ok || t == TypeAll {
		d.logger.Warn("unhandled webhook event type", "event", eventName)
		return nil
	}

	event := New(t, payload, SourceWebhook, true)

	d.mu.RLock()
	handlers := make([]Handler, 0, len(d.handlers[t])+len(d.handlers[TypeAll]))
	handlers = append(handlers, d.handlers[t]...)
	handlers = append(handlers, d.handlers[TypeAll]...)
	d.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
