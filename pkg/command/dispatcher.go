package command

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/marmos91/chunkstore/internal/logger"
)

// Dispatcher routes commands to their registered handlers through the
// middleware chain.
type Dispatcher struct {
	mu          sync.RWMutex
	handlers    map[string]Handler
	middlewares []Middleware
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]Handler)}
}

// Register binds a handler to a command name. Re-registering a name
// replaces the previous handler.
func (d *Dispatcher) Register(name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = handler
}

// Use adds a middleware. The chain runs in ascending Order; equal orders
// break ties alphabetically by Name.
func (d *Dispatcher) Use(mw Middleware) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.middlewares = append(d.middlewares, mw)
	sort.SliceStable(d.middlewares, func(i, j int) bool {
		if d.middlewares[i].Order() != d.middlewares[j].Order() {
			return d.middlewares[i].Order() < d.middlewares[j].Order()
		}
		return d.middlewares[i].Name() < d.middlewares[j].Name()
	})
}

// Dispatch runs a command through the middleware chain to its handler. A
// missing correlation ID is assigned here so every downstream log line
// carries one.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command) (any, error) {
	if cmd.CorrelationID() == "" {
		cmd.SetCorrelationID(uuid.NewString())
	}
	ctx = logger.WithCorrelation(ctx, cmd.CorrelationID())

	d.mu.RLock()
	handler, ok := d.handlers[cmd.Name()]
	chain := make([]Middleware, len(d.middlewares))
	copy(chain, d.middlewares)
	d.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("no handler registered for command %s", cmd.Name())
	}

	next := handler.Handle
	for i := len(chain) - 1; i >= 0; i-- {
		mw := chain[i]
		inner := next
		next = func(ctx context.Context, cmd Command) (any, error) {
			return mw.Execute(ctx, cmd, Next(inner))
		}
	}
	return next(ctx, cmd)
}
