// internal/websocket/hub.go
package websocket

import (
	"context"
	"sync"

	"subpass-service/internal/domain/event"
	"subpass-service/internal/domain/wallet"

	"go.uber.org/zap"
)

// Hub fans marketplace events out to connected clients. Clients are keyed by
// wallet address; an event with an empty Audience goes to everyone.
type Hub struct {
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	register   chan *Client
	unregister chan *Client
	events     chan *event.Event

	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan *event.Event, 256),
		logger:     logger,
	}
}

// Notify queues an event for delivery. Never blocks the caller; if the hub is
// backed up the event is dropped and logged.
func (h *Hub) Notify(e *event.Event) {
	select {
	case h.events <- e:
	default:
		h.logger.Warn("event queue full, dropping event", zap.String("type", string(e.Type)))
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case e := <-h.events:
			h.deliver(e)
		}
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[c.address] == nil {
		h.clients[c.address] = make(map[*Client]bool)
	}
	h.clients[c.address][c] = true

	h.logger.Debug("websocket client connected", zap.String("address", wallet.ShortAddress(c.address)))
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if set, ok := h.clients[c.address]; ok {
		if set[c] {
			delete(set, c)
			close(c.send)
		}
		if len(set) == 0 {
			delete(h.clients, c.address)
		}
		h.logger.Debug("websocket client disconnected", zap.String("address", wallet.ShortAddress(c.address)))
	}
}

func (h *Hub) deliver(e *event.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(e.Audience) == 0 {
		for _, set := range h.clients {
			for c := range set {
				c.trySend(e)
			}
		}
		return
	}

	for _, address := range e.Audience {
		for c := range h.clients[address] {
			c.trySend(e)
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, set := range h.clients {
		for c := range set {
			close(c.send)
		}
	}
	h.clients = make(map[string]map[*Client]bool)
}
