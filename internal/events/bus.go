package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Handler receives a published Event. Handlers run synchronously on the
// publishing goroutine, matching the single-threaded engine's ordering
// guarantees — a handler must not block or mutate engine state.
type Handler func(*Event)

// Bus is a minimal in-process event bus: subscribe by EventType, publish,
// and every matching handler is invoked in subscription order.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[EventType][]Handler
	log         zerolog.Logger
}

// NewBus creates an empty Bus.
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		subscribers: make(map[EventType][]Handler),
		log:         log.With().Str("component", "events").Logger(),
	}
}

// Subscribe registers h to be called for every future Publish of the given
// EventType.
func (b *Bus) Subscribe(t EventType, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[t] = append(b.subscribers[t], h)
}

// Emit builds an Event from a module name, run id, and flat payload, and
// publishes it.
func (b *Bus) Emit(t EventType, module, runID string, data map[string]interface{}) {
	b.Publish(&Event{
		Type:      t,
		Timestamp: time.Now(),
		Module:    module,
		RunID:     runID,
		Data:      data,
	})
}

// Publish delivers event to every subscriber of its type.
func (b *Bus) Publish(event *Event) {
	b.mu.RLock()
	handlers := b.subscribers[event.Type]
	b.mu.RUnlock()

	b.log.Debug().Str("event_type", string(event.Type)).Str("run_id", event.RunID).Msg("event published")

	for _, h := range handlers {
		h(event)
	}
}
