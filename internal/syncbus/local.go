package syncbus

import (
	"context"
	"sync"
)

// Hub connects in-process endpoints, e.g. several embedded instances sharing
// one store.
type Hub struct {
	mu        sync.RWMutex
	endpoints map[string]*LocalBus
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{endpoints: make(map[string]*LocalBus)}
}

// Endpoint attaches a new endpoint to the hub.
func (h *Hub) Endpoint() *LocalBus {
	b := &LocalBus{dispatcher: newDispatcher(), hub: h}

	h.mu.Lock()
	h.endpoints[b.id] = b
	h.mu.Unlock()
	return b
}

func (h *Hub) broadcast(origin string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, b := range h.endpoints {
		if id == origin {
			continue
		}
		b.deliver(ev)
	}
}

func (h *Hub) detach(id string) {
	h.mu.Lock()
	delete(h.endpoints, id)
	h.mu.Unlock()
}

// LocalBus is a Hub endpoint.
type LocalBus struct {
	*dispatcher
	hub *Hub
}

func (b *LocalBus) Publish(_ context.Context, ev Event) error {
	if b.isClosed() {
		return ErrClosed
	}
	b.hub.broadcast(b.id, ev)
	return nil
}

func (b *LocalBus) Close() error {
	if b.shutdown() {
		b.hub.detach(b.id)
	}
	return nil
}
