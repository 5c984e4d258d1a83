package websocket

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Hub tracks live simulation-stream connections. Unlike the teacher's
// Hub, it never routes messages between clients — each client streams
// only its own simulation's ticks — so it keeps no subscription
// indexes, only a registry for ClientCount.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]bool)}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
	log.Debug().Str("client_id", c.id).Int("total_clients", len(h.clients)).Msg("websocket client registered")
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	log.Debug().Str("client_id", c.id).Int("total_clients", len(h.clients)).Msg("websocket client unregistered")
}

// ClientCount returns the number of currently streaming connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
