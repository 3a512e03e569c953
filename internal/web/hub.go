package web

import (
	"sync"
)

// Refresher re-runs a live search.
type Refresher interface {
	Refresh()
}

// Hub tracks open live searches so catalog changes can refresh them.
type Hub struct {
	mu      sync.Mutex
	clients map[Refresher]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[Refresher]struct{})}
}

// Register adds c and returns a function that removes it.
func (h *Hub) Register(c Refresher) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.clients, c)
	}
}

// Len returns the number of registered searches.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// RefreshAll re-runs every registered search.
func (h *Hub) RefreshAll() {
	h.mu.Lock()
	clients := make([]Refresher, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.Refresh()
	}
}
