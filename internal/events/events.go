package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventDishCreated        = "dish_created"
	EventDishUpdated        = "dish_updated"
	EventDishDeleted        = "dish_deleted"
	EventCartLineAdded      = "cart_line_added"
	EventOrderSubmitted     = "order_submitted"
	EventOrderDeleted       = "order_deleted"
	EventNotificationFailed = "notification_failed"
)

// DishEventPayload is the dish snapshot event consumers see.
type DishEventPayload struct {
	DishID string  `json:"dish_id"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
}

// OrderEventPayload describes a submitted or deleted order.
type OrderEventPayload struct {
	OrderID   string    `json:"order_id"`
	Total     float64   `json:"total"`
	LineCount int       `json:"line_count"`
	Delivered bool      `json:"delivered"`
	Timestamp time.Time `json:"timestamp"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload any) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
