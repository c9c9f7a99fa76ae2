// Package notify holds the transient success/error toasts shown to console
// operators and fans them out to connected browsers.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultTTL is how long a toast stays visible
const DefaultTTL = 3 * time.Second

// Level is the toast style
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is one toast
type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Hub stores active toasts and delivers new ones to subscribers. Slow
// subscribers miss toasts rather than stall publishers.
type Hub struct {
	ttl    time.Duration
	logger *zap.Logger

	mu     sync.Mutex
	active []Notification
	timers map[string]*time.Timer
	subs   map[int]chan Notification
	nextID int
	closed bool
}

// NewHub creates a hub whose toasts expire after ttl (DefaultTTL when zero)
func NewHub(ttl time.Duration, logger *zap.Logger) *Hub {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		ttl:    ttl,
		logger: logger,
		timers: make(map[string]*time.Timer),
		subs:   make(map[int]chan Notification),
	}
}

// Success publishes a success toast
func (h *Hub) Success(message string) {
	h.Publish(LevelSuccess, message)
}

// Error publishes an error toast
func (h *Hub) Error(message string) {
	h.Publish(LevelError, message)
}

// Publish adds a toast and schedules its dismissal
func (h *Hub) Publish(level Level, message string) Notification {
	now := time.Now()
	n := Notification{
		ID:        uuid.New().String(),
		Level:     level,
		Message:   message,
		CreatedAt: now,
		ExpiresAt: now.Add(h.ttl),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return n
	}

	h.active = append(h.active, n)
	h.timers[n.ID] = time.AfterFunc(h.ttl, func() { h.Dismiss(n.ID) })

	for id, ch := range h.subs {
		select {
		case ch <- n:
		default:
			h.logger.Debug("subscriber lagging, dropping notification", zap.Int("subscriber", id))
		}
	}
	return n
}

// Active returns the toasts that have not been dismissed yet, oldest first
func (h *Hub) Active() []Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Notification(nil), h.active...)
}

// Dismiss removes a toast before it expires. It reports whether the toast was active.
func (h *Hub) Dismiss(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if t, ok := h.timers[id]; ok {
		t.Stop()
		delete(h.timers, id)
	}
	for i, n := range h.active {
		if n.ID == id {
			h.active = append(h.active[:i], h.active[i+1:]...)
			return true
		}
	}
	return false
}

// Subscribe returns a channel receiving every toast published from now on
// and a function that ends the subscription.
func (h *Hub) Subscribe(buffer int) (<-chan Notification, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Notification, buffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if sub, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(sub)
			}
		})
	}
}

// Close drops every toast and ends all subscriptions
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, t := range h.timers {
		t.Stop()
		delete(h.timers, id)
	}
	h.active = nil
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
