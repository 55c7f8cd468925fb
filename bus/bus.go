// Package bus routes commands and events to their handlers.
//
// The contract mirrors the two message categories: a command has exactly
// one handler (enforced at registration time) and an event has zero or
// more, invoked in subscription order. Dispatch is synchronous and
// re-entrant: a handler may dispatch further messages during its own
// execution, which is how the job pipeline's fan-out chain is expressed.
// Recursion depth is bounded by the pipeline length.
package bus

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	reporter "github.com/yeonuk-hwang/viral-marketing-reporter-v2"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/domain"
	"github.com/yeonuk-hwang/viral-marketing-reporter-v2/middleware"
)

// Handler processes one dispatched message.
type Handler func(ctx context.Context, msg domain.Message) error

// Bus routes messages to handlers. Safe for concurrent use; dispatch
// holds no lock while handlers run, so nested dispatch never deadlocks.
type Bus struct {
	mu       sync.RWMutex
	commands map[string]Handler
	events   map[string][]Handler

	mw     middleware.Middleware
	logger *slog.Logger
}

// Option configures a Bus.
type Option func(*Bus)

// WithMiddleware sets the middleware chain applied around every handler
// invocation, outermost first.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(b *Bus) { b.mw = middleware.Chain(mws...) }
}

// WithLogger sets the structured logger for the bus.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bus) { b.logger = l }
}

// New creates an empty Bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		commands: make(map[string]Handler),
		events:   make(map[string][]Handler),
		mw:       middleware.Chain(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// RegisterCommand binds the single handler for a command name.
// Registering a second handler for the same name is a wiring defect and
// returns ErrHandlerExists.
func (b *Bus) RegisterCommand(name string, h Handler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.commands[name]; exists {
		return fmt.Errorf("%w: %s", reporter.ErrHandlerExists, name)
	}
	b.commands[name] = h
	return nil
}

// SubscribeEvent appends a handler for an event name. Handlers run in
// subscription order.
func (b *Bus) SubscribeEvent(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events[name] = append(b.events[name], h)
}

// Dispatch routes a message. Commands go to their single handler and any
// error propagates; an unregistered command fails with ErrNoHandler.
// Events go to every subscriber in order; the first error aborts the
// remaining subscribers and propagates.
func (b *Bus) Dispatch(ctx context.Context, msg domain.Message) error {
	switch m := msg.(type) {
	case domain.Command:
		return b.dispatchCommand(ctx, m)
	case domain.Event:
		return b.dispatchEvent(ctx, m)
	default:
		return fmt.Errorf("bus: message %q is neither command nor event", msg.MessageName())
	}
}

func (b *Bus) dispatchCommand(ctx context.Context, cmd domain.Command) error {
	b.mu.RLock()
	h, ok := b.commands[cmd.MessageName()]
	b.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", reporter.ErrNoHandler, cmd.MessageName())
	}

	return b.mw(ctx, cmd, func(ctx context.Context) error {
		return h(ctx, cmd)
	})
}

func (b *Bus) dispatchEvent(ctx context.Context, evt domain.Event) error {
	b.mu.RLock()
	handlers := b.events[evt.MessageName()]
	b.mu.RUnlock()

	for _, h := range handlers {
		err := b.mw(ctx, evt, func(ctx context.Context) error {
			return h(ctx, evt)
		})
		if err != nil {
			b.logger.Error("event handler failed, aborting fan-out",
				slog.String("event", evt.MessageName()),
				slog.String("error", err.Error()),
			)
			return err
		}
	}
	return nil
}
