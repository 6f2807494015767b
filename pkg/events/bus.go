package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/marmos91/chunkstore/internal/logger"
)

// Handler processes one event. Returned errors are logged, not propagated.
type Handler func(ctx context.Context, event Event) error

// Bus is a synchronous in-process publish/subscribe bus. Publish invokes
// every handler registered for the event's kind, in subscription order, on
// the caller's goroutine. A panicking or failing handler never affects the
// others.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind][]namedHandler
}

type namedHandler struct {
	name string
	fn   Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Kind][]namedHandler)}
}

// Subscribe registers a handler for a kind. The name appears in log lines
// when the handler fails.
func (b *Bus) Subscribe(kind Kind, name string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], namedHandler{name: name, fn: handler})
}

// Publish delivers event to all handlers registered for its kind.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := b.handlers[event.Kind()]
	b.mu.RUnlock()

	for _, h := range handlers {
		b.invoke(ctx, h, event)
	}
}

func (b *Bus) invoke(ctx context.Context, h namedHandler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCtx(ctx, "event handler panicked",
				logger.KeyHandler, h.name,
				logger.KeyEventID, event.EventID(),
				logger.KeyError, fmt.Sprint(r))
		}
	}()

	if err := h.fn(ctx, event); err != nil {
		logger.ErrorCtx(ctx, "event handler failed",
			logger.KeyHandler, h.name,
			logger.KeyEventID, event.EventID(),
			logger.KeyCorrelationID, event.CorrelationID(),
			logger.KeyError, err)
	}
}
