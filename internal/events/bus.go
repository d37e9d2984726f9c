package events

import (
	"context"
	"fmt"
	"sync"

	"mecanix/pkg/logger"
)

// Handler reacts to a published event. Handler values double as
// subscription tokens: Subscribe and Unsubscribe compare the interface
// value itself, so register the same value you intend to remove later.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to the Handler interface. Note that two
// HandlerFunc values are never equal, so keep the adapted value around if
// the subscription must be removable or deduplicated.
type handlerFunc struct {
	fn func(ctx context.Context, event Event) error
}

func (h *handlerFunc) Handle(ctx context.Context, event Event) error {
	return h.fn(ctx, event)
}

// HandlerFunc wraps fn into a Handler with a stable identity.
func HandlerFunc(fn func(ctx context.Context, event Event) error) Handler {
	return &handlerFunc{fn: fn}
}

// Bus is an in-process publish/subscribe dispatcher keyed by event type.
// Construct one at process start and inject it everywhere it is needed.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[string][]Handler),
	}
}

// Subscribe registers handler for eventType. Re-subscribing the same
// handler value for the same type is a no-op.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	if handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, h := range b.handlers[eventType] {
		if h == handler {
			return
		}
	}
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// Unsubscribe removes handler for eventType. Unknown handlers are ignored.
func (b *Bus) Unsubscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	registered := b.handlers[eventType]
	for i, h := range registered {
		if h == handler {
			b.handlers[eventType] = append(registered[:i:i], registered[i+1:]...)
			return
		}
	}
}

// Publish dispatches the event to every currently-subscribed handler for
// its type, sequentially. A failing or panicking handler is logged and
// does not prevent subsequent handlers from running; Publish never
// surfaces handler failures to the caller. Zero subscribers is a no-op.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	registered := append([]Handler(nil), b.handlers[event.EventType]...)
	b.mu.RUnlock()

	for _, h := range registered {
		if err := b.dispatch(ctx, h, event); err != nil {
			logger.Error(ctx, "event handler failed",
				"event_type", event.EventType,
				"event_id", event.EventID,
				"aggregate_id", event.AggregateID,
				"error", err,
			)
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, h Handler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.Handle(ctx, event)
}
