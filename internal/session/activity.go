package session

import (
	"strings"
	"sync"
)

// ActivityKind names a user interaction that keeps a session alive.
type ActivityKind string

const (
	ActivityPointerMove      ActivityKind = "pointer_move"
	ActivityKeyPress         ActivityKind = "key_press"
	ActivityTouch            ActivityKind = "touch"
	ActivityVisibilityChange ActivityKind = "visibility_change"
	ActivityScroll           ActivityKind = "scroll"
)

var activityKinds = map[ActivityKind]struct{}{
	ActivityPointerMove:      {},
	ActivityKeyPress:         {},
	ActivityTouch:            {},
	ActivityVisibilityChange: {},
	ActivityScroll:           {},
}

// ParseActivityKind validates an activity name coming from outside.
func ParseActivityKind(s string) (ActivityKind, bool) {
	k := ActivityKind(strings.ToLower(strings.TrimSpace(s)))
	_, ok := activityKinds[k]
	return k, ok
}

// ActivitySource delivers interaction events to subscribers.
// The returned function removes the subscription.
type ActivitySource interface {
	Subscribe(fn func(ActivityKind)) (unsubscribe func())
}

// Hub is an in-process ActivitySource. Surfaces (the shell, the local HTTP
// server) publish into it and the Manager listens.
type Hub struct {
	mu       sync.RWMutex
	next     int
	handlers map[int]func(ActivityKind)
}

func NewHub() *Hub {
	return &Hub{handlers: make(map[int]func(ActivityKind))}
}

func (h *Hub) Subscribe(fn func(ActivityKind)) func() {
	h.mu.Lock()
	id := h.next
	h.next++
	h.handlers[id] = fn
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.handlers, id)
			h.mu.Unlock()
		})
	}
}

// Publish delivers kind to every subscriber synchronously.
func (h *Hub) Publish(kind ActivityKind) {
	h.mu.RLock()
	handlers := make([]func(ActivityKind), 0, len(h.handlers))
	for _, fn := range h.handlers {
		handlers = append(handlers, fn)
	}
	h.mu.RUnlock()

	for _, fn := range handlers {
		fn(kind)
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers)
}
