package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roadwatch/backend/internal/metrics"
)

// Event types streamed to clients
const (
	EventPosition   = "position"
	EventRoute      = "route"
	EventRouteError = "route_error"
	EventAlert      = "alert"
	EventCatalog    = "catalog"
)

const DefaultEventBufferSize = 64

// Event is one message on the event stream.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// EventHub fans events out to any number of listeners. Each listener has a
// bounded buffer; events for a full listener are dropped and counted.
type EventHub struct {
	buffer int

	mu        sync.Mutex
	listeners map[int]chan Event
	nextID    int
	closed    bool
}

func NewEventHub(buffer int) *EventHub {
	if buffer <= 0 {
		buffer = DefaultEventBufferSize
	}
	return &EventHub{
		buffer:    buffer,
		listeners: make(map[int]chan Event),
	}
}

// Listen registers a listener. The channel is closed by unsubscribe or Close.
func (h *EventHub) Listen() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Event, h.buffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.listeners[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.listeners[id]; ok {
				delete(h.listeners, id)
				close(c)
			}
		})
	}
}

// Publish never blocks.
func (h *EventHub) Publish(eventType string, data any) {
	ev := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.listeners {
		select {
		case ch <- ev:
		default:
			metrics.EventDrops.Add(1)
		}
	}
}

// Listeners returns the number of connected listeners.
func (h *EventHub) Listeners() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

// Close disconnects every listener.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, ch := range h.listeners {
		delete(h.listeners, id)
		close(ch)
	}
}
