// Package broadcast fans aggregated snapshots out to any number of listeners.
package broadcast

import (
	"sync"

	"github.com/google/uuid"

	"github.com/Dicklesworthstone/sysmoni/internal/logger"
	"github.com/Dicklesworthstone/sysmoni/internal/model"
	"github.com/Dicklesworthstone/sysmoni/internal/observability"
)

// Hub delivers each published snapshot to every subscriber without ever
// blocking the publisher. Subscribers receive shared values and must not
// modify them.
type Hub struct {
	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	closed  bool
	log     logger.Logger
	metrics *observability.Metrics
}

type Subscription struct {
	ID string
	C  <-chan model.Snapshot

	ch   chan model.Snapshot
	hub  *Hub
	once sync.Once
}

func NewHub(log logger.Logger, m *observability.Metrics) *Hub {
	return &Hub{subs: make(map[*Subscription]struct{}), log: log, metrics: m}
}

// Subscribe registers a listener with the given channel buffer. On a closed
// hub the returned subscription's channel is already closed.
func (h *Hub) Subscribe(buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan model.Snapshot, buffer)
	s := &Subscription{ID: uuid.NewString(), C: ch, ch: ch, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		s.once.Do(func() {})
		return s
	}
	h.subs[s] = struct{}{}
	h.metrics.SetSubscribers(len(h.subs))
	h.log.Debug("subscriber attached", "id", s.ID, "total", len(h.subs))
	return s
}

// Close detaches the subscription and closes its channel. Safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[s]; !ok {
			return
		}
		delete(h.subs, s)
		close(s.ch)
		h.metrics.SetSubscribers(len(h.subs))
		h.log.Debug("subscriber detached", "id", s.ID, "total", len(h.subs))
	})
}

// Publish never blocks; a subscriber with a full buffer misses this snapshot.
func (h *Hub) Publish(snap model.Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		select {
		case s.ch <- snap:
		default:
			h.metrics.PublishDropped()
			h.log.Debug("subscriber lagging, snapshot dropped", "id", s.ID)
		}
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close detaches every subscriber; later publishes are no-ops.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		close(s.ch)
		delete(h.subs, s)
	}
	h.metrics.SetSubscribers(0)
}
