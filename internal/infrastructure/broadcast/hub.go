package broadcast

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/2emr/sensor-backend/internal/pkg/metrics"
	"github.com/2emr/sensor-backend/internal/core/domain"
)

const defaultBuffer = 16

// Subscription is one live realtime receiver. Events arrive on C in publish
// order; C is closed once the subscription is removed from the hub.
type Subscription struct {
	ID   string
	send chan domain.Reading
	once sync.Once
}

// C returns the receive side of the subscription queue.
func (s *Subscription) C() <-chan domain.Reading {
	return s.send
}

func (s *Subscription) close() {
	s.once.Do(func() { close(s.send) })
}

// Hub fans stored readings out to every registered subscription. A slow
// subscriber never blocks Publish: once its queue is full, further events
// for that subscriber are dropped.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	buffer int
	log    zerolog.Logger
}

// NewHub creates a Hub whose subscriptions buffer up to buffer events.
// If buffer <= 0, defaultBuffer is used.
func NewHub(buffer int, log zerolog.Logger) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{
		subs:   make(map[string]*Subscription),
		buffer: buffer,
		log:    log,
	}
}

// Subscribe registers a new subscription. Events published before this call
// are not replayed.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{
		ID:   uuid.NewString(),
		send: make(chan domain.Reading, h.buffer),
	}

	h.mu.Lock()
	h.subs[sub.ID] = sub
	n := len(h.subs)
	h.mu.Unlock()

	metrics.RealtimeSubscribers.Set(float64(n))
	h.log.Debug().Str("subscriber_id", sub.ID).Int("subscribers", n).Msg("subscriber registered")
	return sub
}

// Unsubscribe removes the subscription and closes its queue. Calling it more
// than once, or for an unknown subscription, is a no-op.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	_, ok := h.subs[sub.ID]
	if ok {
		delete(h.subs, sub.ID)
		sub.close()
	}
	n := len(h.subs)
	h.mu.Unlock()

	if ok {
		metrics.RealtimeSubscribers.Set(float64(n))
		h.log.Debug().Str("subscriber_id", sub.ID).Int("subscribers", n).Msg("subscriber removed")
	}
}

// Publish offers r to every current subscription without blocking.
func (h *Hub) Publish(_ context.Context, r domain.Reading) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, sub := range h.subs {
		select {
		case sub.send <- r:
			metrics.RealtimeEventsTotal.WithLabelValues("queued").Inc()
		default:
			metrics.RealtimeEventsTotal.WithLabelValues("dropped").Inc()
			h.log.Warn().Str("subscriber_id", id).Int64("reading_id", r.ID).Msg("subscriber queue full, event dropped")
		}
	}
}

// Count returns the number of registered subscriptions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close removes every subscription. Used during shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	for id, sub := range h.subs {
		delete(h.subs, id)
		sub.close()
	}
	h.mu.Unlock()
	metrics.RealtimeSubscribers.Set(0)
}
