// Package events is the in-process publish-subscribe seam between the
// valuation/update logic and whatever wants to react to it (notification
// delivery lives outside this service). Only the emission points matter here.
package events

import (
	"log/slog"
	"sync"
)

const (
	TypePriceRefreshCompleted = "price_refresh_completed"
	TypeGoalCompleted         = "goal_completed"
	TypeGoalProgressUpdated   = "goal_progress_updated"
)

type Event struct {
	Type    string
	UserID  int64
	Payload any
}

type Hub struct {
	mu      sync.RWMutex
	subs    map[string][]chan Event
	dropped uint64
}

func NewHub() *Hub {
	return &Hub{subs: map[string][]chan Event{}}
}

// Subscribe returns a buffered channel receiving events of the given type.
func (h *Hub) Subscribe(eventType string, buf int) <-chan Event {
	if buf <= 0 {
		buf = 16
	}
	ch := make(chan Event, buf)
	h.mu.Lock()
	h.subs[eventType] = append(h.subs[eventType], ch)
	h.mu.Unlock()
	return ch
}

// Publish fans the event out without blocking: a subscriber with a full
// buffer misses the event rather than stalling a price refresh.
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	subs := h.subs[e.Type]
	h.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- e:
		default:
			h.mu.Lock()
			h.dropped++
			h.mu.Unlock()
			slog.Warn("event dropped, subscriber buffer full", slog.String("type", e.Type))
		}
	}
}
