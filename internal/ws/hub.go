package ws

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/dgnsrekt/sp500-explorer/internal/dashboard"
)

// Renderer builds pages for websocket sessions.
type Renderer interface {
	Rerun(ctx context.Context, pick dashboard.Selector) *dashboard.Page
	Ticker(ctx context.Context, q dashboard.TickerQuery) *dashboard.TickerPage
}

var _ Renderer = (*dashboard.Runner)(nil)

// Hub manages websocket sessions and pushes notices to all of them.
type Hub struct {
	renderer   Renderer
	encoder    *Encoder
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan Downstream
	done       chan struct{}
	mu         sync.RWMutex
	logger     *zap.Logger
}

func NewHub(renderer Renderer, encoder *Encoder, logger *zap.Logger) *Hub {
	return &Hub{
		renderer:   renderer,
		encoder:    encoder,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Downstream, 16),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes hub events. Call this in a goroutine.
// Returns when context is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("hub shutting down")
			h.shutdown()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug("client registered", zap.String("connID", client.connID))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug("client unregistered", zap.String("connID", client.connID))

		case msg := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				payload, err := h.encoder.Encode(client.protocol, msg)
				if err != nil {
					h.logger.Warn("encoding broadcast failed", zap.Error(err))
					continue
				}
				select {
				case client.send <- payload:
				default:
					// Buffer full, schedule disconnect
					go func(c *Client) {
						h.unregister <- c
					}(client)
				}
			}
			h.mu.RUnlock()
		}
	}
}

// shutdown closes all client connections.
func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	close(h.done)
	for client := range h.clients {
		close(client.send)
		delete(h.clients, client)
	}
}

// deliver queues payload for one client without blocking. It reports false
// when the client is gone or its buffer is full.
func (h *Hub) deliver(c *Client, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.clients[c] {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Count returns the number of connected sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Invalidated tells every session that the constituent cache was flushed
// so they can rerun.
func (h *Hub) Invalidated(count int) {
	select {
	case h.broadcast <- invalidatedMessage(count):
	default:
		h.logger.Warn("broadcast queue full, invalidation notice dropped")
	}
}
