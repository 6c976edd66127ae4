package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kweku/ai-procurement/internal/domain/event"
)

// Dispatcher routes domain events to subscribed handlers. Sync
// dispatch runs handlers in subscription order and stops at the first
// error; async dispatch fans out and never reports back.
type Dispatcher interface {
	Subscribe(eventType event.Type, handler Handler)
	SubscribeNamed(eventType event.Type, name string, handler Handler)
	Unsubscribe(eventType event.Type, name string)
	Dispatch(ctx context.Context, evt *event.Event) error
	DispatchAsync(ctx context.Context, evt *event.Event)
	ListHandlers(eventType event.Type) []HandlerInfo

	// Close rejects further dispatches and waits for in-flight async
	// handlers
	Close() error
}

// Logger keeps the dispatcher free of a concrete logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type sub struct {
	name string
	fn   Handler
}

type bus struct {
	mu   sync.RWMutex
	subs map[event.Type][]sub

	logger Logger
	wg     sync.WaitGroup
	closed atomic.Bool
}

// Option configures the dispatcher
type Option func(*bus)

// WithLogger sets a logger for the dispatcher
func WithLogger(logger Logger) Option {
	return func(b *bus) { b.logger = logger }
}

// NewDispatcher creates a new event dispatcher
func NewDispatcher(opts ...Option) Dispatcher {
	b := &bus{subs: make(map[event.Type][]sub)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *bus) Subscribe(eventType event.Type, handler Handler) {
	b.mu.RLock()
	n := len(b.subs[eventType])
	b.mu.RUnlock()

	b.SubscribeNamed(eventType, fmt.Sprintf("handler-%d", n), handler)
}

func (b *bus) SubscribeNamed(eventType event.Type, name string, handler Handler) {
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], sub{name: name, fn: handler})
	b.mu.Unlock()

	b.info("Handler registered", "event_type", eventType, "handler_name", name)
}

func (b *bus) Unsubscribe(eventType event.Type, name string) {
	b.mu.Lock()
	kept := b.subs[eventType][:0]
	for _, s := range b.subs[eventType] {
		if s.name != name {
			kept = append(kept, s)
		}
	}
	b.subs[eventType] = kept
	b.mu.Unlock()

	b.info("Handler unregistered", "event_type", eventType, "handler_name", name)
}

func (b *bus) Dispatch(ctx context.Context, evt *event.Event) error {
	if b.closed.Load() {
		return fmt.Errorf("dispatcher is closed")
	}

	subs := b.snapshot(evt.Type)
	b.info("Dispatching event",
		"event_type", evt.Type,
		"event_id", evt.ID,
		"handler_count", len(subs))

	for _, s := range subs {
		if err := b.run(ctx, evt, s); err != nil {
			b.error("Handler error",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"handler_name", s.name,
				"error", err)
			return fmt.Errorf("handler %s failed: %w", s.name, err)
		}
	}
	return nil
}

func (b *bus) DispatchAsync(ctx context.Context, evt *event.Event) {
	if b.closed.Load() {
		b.error("Cannot dispatch async event, dispatcher is closed",
			"event_type", evt.Type,
			"event_id", evt.ID)
		return
	}

	for _, s := range b.snapshot(evt.Type) {
		b.wg.Add(1)
		go func(s sub) {
			defer b.wg.Done()
			if err := b.run(ctx, evt, s); err != nil {
				b.error("Async handler error",
					"event_type", evt.Type,
					"event_id", evt.ID,
					"handler_name", s.name,
					"error", err)
			}
		}(s)
	}
}

func (b *bus) ListHandlers(eventType event.Type) []HandlerInfo {
	subs := b.snapshot(eventType)

	infos := make([]HandlerInfo, len(subs))
	for i, s := range subs {
		infos[i] = HandlerInfo{Name: s.name, EventType: eventType}
	}
	return infos
}

func (b *bus) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("dispatcher already closed")
	}

	b.wg.Wait()
	b.info("Dispatcher closed")
	return nil
}

// snapshot copies the subscription list so handlers run without
// holding the lock
func (b *bus) snapshot(eventType event.Type) []sub {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]sub(nil), b.subs[eventType]...)
}

// run invokes one handler with panic recovery
func (b *bus) run(ctx context.Context, evt *event.Event, s sub) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
			b.error("Handler panic recovered",
				"event_type", evt.Type,
				"event_id", evt.ID,
				"handler_name", s.name,
				"panic", r)
		}
	}()
	return s.fn(ctx, evt)
}

func (b *bus) info(msg string, kv ...interface{}) {
	if b.logger != nil {
		b.logger.Info(msg, kv...)
	}
}

func (b *bus) error(msg string, kv ...interface{}) {
	if b.logger != nil {
		b.logger.Error(msg, kv...)
	}
}
