package events

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Event is anything the bus can route. Payload is the flat map handed to
// external publishers.
type Event interface {
	EventType() string
	EventID() string
	OccurredAt() time.Time
	Payload() interface{}
}

type BaseEvent struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) EventID() string       { return e.ID }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) Payload() interface{}  { return e.Data }

type Handler func(ctx context.Context, event Event) error

// Publisher is what producers depend on; the bus satisfies it.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// EventBus fans membership events out to in-process handlers. Wait blocks
// until handlers started by Publish have returned.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	inflight sync.WaitGroup
	logger   *slog.Logger
}

func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{handlers: make(map[string][]Handler), logger: logger}
}

func (eb *EventBus) Subscribe(eventType string, handler Handler) {
	eb.mu.Lock()
	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
	n := len(eb.handlers[eventType])
	eb.mu.Unlock()

	eb.logger.Debug("event handler subscribed", "event_type", eventType, "handlers", n)
}

func (eb *EventBus) subscribers(event Event) []Handler {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	hs := eb.handlers[event.EventType()]
	if len(hs) == 0 {
		eb.logger.Debug("event dropped, no subscribers", "event_type", event.EventType())
	}
	return hs
}

func (eb *EventBus) logFailure(event Event, err error) {
	eb.logger.Error("event handler failed",
		"event_type", event.EventType(),
		"event_id", event.EventID(),
		"error", err)
}

// Publish runs each handler on its own goroutine and never reports handler
// errors. Handlers get a context that survives the publisher's cancellation.
func (eb *EventBus) Publish(ctx context.Context, event Event) error {
	hs := eb.subscribers(event)
	if len(hs) == 0 {
		return nil
	}
	detached := context.WithoutCancel(ctx)
	for _, h := range hs {
		eb.inflight.Add(1)
		go func(h Handler) {
			defer eb.inflight.Done()
			if err := h(detached, event); err != nil {
				eb.logFailure(event, err)
			}
		}(h)
	}
	return nil
}

// Wait blocks until every asynchronously dispatched handler has returned.
func (eb *EventBus) Wait() {
	eb.inflight.Wait()
}
