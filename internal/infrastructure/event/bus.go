package event

import (
	"context"
	"slices"
	"sync"

	"github.com/edumahmoud/try-meeza-crm/internal/domain/shared"
	"github.com/edumahmoud/try-meeza-crm/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// InMemoryEventBus delivers ledger events to subscribed handlers in-process.
// Delivery is synchronous and happens after the unit of work is committed, so
// a failing handler never rolls anything back.
type InMemoryEventBus struct {
	mu       sync.RWMutex
	handlers map[string][]shared.EventHandler
	wildcard []shared.EventHandler

	logger *zap.Logger

	// runMu orders the running check and inHand.Add in Publish against Stop
	runMu   sync.Mutex
	running bool
	inHand  sync.WaitGroup
}

// NewInMemoryEventBus creates a stopped bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventBus{
		handlers: make(map[string][]shared.EventHandler),
		logger:   logger.Named("event_bus"),
	}
}

// Publish hands each event to its handlers. Events published while the bus
// is stopped are dropped. Handler errors are logged, never returned.
func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	if !b.enter() {
		b.logger.Debug("bus stopped, dropping events", zap.Int("events", len(events)))
		return nil
	}
	defer b.inHand.Done()

	log := logger.For(ctx, b.logger)
	for _, event := range events {
		for _, handler := range b.handlersFor(event.EventType()) {
			if err := b.dispatch(ctx, handler, event); err != nil {
				log.Error("handler failed to process event",
					zap.String("event_type", event.EventType()),
					zap.String("event_id", event.EventID()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

// Subscribe registers handler for eventTypes, or for the handler's own
// EventTypes when none are given. No types at all means every event.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if len(eventTypes) == 0 {
		b.wildcard = append(b.wildcard, handler)
	}
	for _, t := range eventTypes {
		b.handlers[t] = append(b.handlers[t], handler)
	}
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes handler from every event type
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	same := func(h shared.EventHandler) bool { return h == handler }
	b.wildcard = slices.DeleteFunc(b.wildcard, same)
	for t, hs := range b.handlers {
		if hs = slices.DeleteFunc(hs, same); len(hs) == 0 {
			delete(b.handlers, t)
		} else {
			b.handlers[t] = hs
		}
	}
}

// Start begins delivering events
func (b *InMemoryEventBus) Start(context.Context) error {
	b.runMu.Lock()
	b.running = true
	b.runMu.Unlock()
	b.logger.Info("event bus started")
	return nil
}

// Stop stops delivery and waits for in-flight publishes to finish
func (b *InMemoryEventBus) Stop(ctx context.Context) error {
	b.runMu.Lock()
	b.running = false
	b.runMu.Unlock()

	done := make(chan struct{})
	go func() {
		b.inHand.Wait()
		close(done)
	}()
	select {
	case <-done:
		b.logger.Info("event bus stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enter registers an in-flight publish if the bus is running
func (b *InMemoryEventBus) enter() bool {
	b.runMu.Lock()
	defer b.runMu.Unlock()
	if !b.running {
		return false
	}
	b.inHand.Add(1)
	return true
}

func (b *InMemoryEventBus) handlersFor(eventType string) []shared.EventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Concat(b.handlers[eventType], b.wildcard)
}

// dispatch recovers handler panics so one handler cannot break the others
func (b *InMemoryEventBus) dispatch(ctx context.Context, handler shared.EventHandler, event shared.DomainEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("handler panicked",
				zap.String("event_type", event.EventType()),
				zap.Any("panic", r),
				zap.Stack("stacktrace"),
			)
		}
	}()
	return handler.Handle(ctx, event)
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
