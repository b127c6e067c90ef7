// Package notifier fans seat-count updates out to everyone watching an event.
package notifier

import (
	"context"
	"sync"

	"github.com/Eursukkul/event-ticketing/internal/models"
	"go.uber.org/zap"
)

const DefaultBuffer = 16

// Subscription is one viewer's membership in an event's group.
type Subscription struct {
	EventID uint
	C       <-chan models.SeatUpdate

	ch   chan models.SeatUpdate
	hub  *Hub
	once sync.Once
}

// Close unsubscribes and closes C. Safe to call more than once.
func (s *Subscription) Close() {
	s.hub.Unsubscribe(s)
}

// Hub is an in-process registry of eventId -> subscriber channels.
//
// Publish runs the whole fan-out under one lock, so every subscriber of an
// event sees updates in the order they were published. Sends never block: a
// subscriber whose buffer is full loses its oldest queued update instead.
type Hub struct {
	mu     sync.Mutex
	groups map[uint]map[*Subscription]struct{}
	last   map[uint]int64
	buffer int
	log    *zap.Logger
}

func NewHub(buffer int, log *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		groups: make(map[uint]map[*Subscription]struct{}),
		last:   make(map[uint]int64),
		buffer: buffer,
		log:    log,
	}
}

func (h *Hub) Subscribe(eventID uint) *Subscription {
	ch := make(chan models.SeatUpdate, h.buffer)
	sub := &Subscription{EventID: eventID, C: ch, ch: ch, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	group, ok := h.groups[eventID]
	if !ok {
		group = make(map[*Subscription]struct{})
		h.groups[eventID] = group
	}
	group[sub] = struct{}{}
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscription) {
	sub.once.Do(func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if group, ok := h.groups[sub.EventID]; ok {
			delete(group, sub)
			if len(group) == 0 {
				delete(h.groups, sub.EventID)
			}
		}
		close(sub.ch)
	})
}

// Close ends every subscription, which lets open streams return during
// shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	var subs []*Subscription
	for _, group := range h.groups {
		for sub := range group {
			subs = append(subs, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range subs {
		h.Unsubscribe(sub)
	}
}

// Subscribers returns how many viewers are in an event's group.
func (h *Hub) Subscribers(eventID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.groups[eventID])
}

// Publish delivers the update to the event's group and returns how many
// subscribers received it. An update whose version is not newer than the last
// one published for the event is dropped; version 0 is always delivered.
func (h *Hub) Publish(update models.SeatUpdate) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	if update.Version > 0 {
		if update.Version <= h.last[update.EventID] {
			h.log.Debug("dropping stale seat update",
				zap.Uint("event_id", update.EventID),
				zap.Int64("version", update.Version),
				zap.Int64("last_version", h.last[update.EventID]),
			)
			return 0
		}
		h.last[update.EventID] = update.Version
	}

	delivered := 0
	for sub := range h.groups[update.EventID] {
		if offer(sub.ch, update) {
			delivered++
		}
	}
	return delivered
}

// NotifySeats lets the hub stand in directly as the engines' notifier when no
// broker sits between instances.
func (h *Hub) NotifySeats(_ context.Context, update models.SeatUpdate) error {
	h.Publish(update)
	return nil
}

func offer(ch chan models.SeatUpdate, update models.SeatUpdate) bool {
	select {
	case ch <- update:
		return true
	default:
	}
	// Full: evict the oldest so the latest count still gets through.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- update:
		return true
	default:
		return false
	}
}
