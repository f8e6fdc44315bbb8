package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/dgnsrekt/sp500-explorer/internal/dashboard"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 64 * 1024

	// Send buffer size per client.
	sendBufferSize = 32

	// Upper bound for one rerun requested over the socket.
	rerunTimeout = 2 * time.Minute

	// Upstream requests waiting behind the one being served.
	requestQueueSize = 8
)

var errBusy = errors.New("too many pending requests")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
	Subprotocols:    []string{ProtocolJSONZstd, ProtocolJSON},
}

// Client is one browser session.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	requests chan []byte
	connID   string
	protocol string
	logger   *zap.Logger
}

// HandleWS upgrades the request and serves reruns over the connection.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	protocol := conn.Subprotocol()
	if protocol == "" {
		protocol = ProtocolJSON
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		requests: make(chan []byte, requestQueueSize),
		connID:   uuid.New().String(),
		protocol: protocol,
		logger:   h.logger,
	}

	h.logger.Debug("websocket connected",
		zap.String("connID", client.connID),
		zap.String("protocol", protocol),
	)

	hello, err := h.encoder.Encode(protocol, connectedMessage(client.connID))
	if err != nil {
		h.logger.Error("encoding connected message failed", zap.Error(err))
		conn.Close()
		return
	}
	client.send <- hello

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// readPump reads messages from the WebSocket connection and queues them
// for servePump, so pongs are still read while a rerun is running.
func (c *Client) readPump() {
	ctx, cancel := context.WithCancel(context.Background())
	go c.servePump(ctx)
	defer func() {
		close(c.requests)
		cancel()
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read error",
					zap.String("connID", c.connID),
					zap.Error(err),
				)
			}
			break
		}

		select {
		case c.requests <- message:
		default:
			c.reply(errorMessage(0, errBusy))
		}
	}
}

// servePump answers queued requests in arrival order.
func (c *Client) servePump(ctx context.Context) {
	for data := range c.requests {
		c.handleMessage(ctx, data)
	}
}

// writePump writes messages to the WebSocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	msgType := websocket.TextMessage
	if c.protocol == ProtocolJSONZstd {
		msgType = websocket.BinaryMessage
	}

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed, send close message
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(msgType, message); err != nil {
				c.logger.Debug("websocket write error",
					zap.String("connID", c.connID),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage answers one upstream request. Reruns are served in order,
// one at a time per session.
func (c *Client) handleMessage(ctx context.Context, data []byte) {
	msg, err := parseUpstream(data)
	if err != nil {
		c.logger.Debug("failed to parse upstream message",
			zap.String("connID", c.connID),
			zap.Error(err),
		)
		c.reply(errorMessage(0, err))
		return
	}

	switch msg.Type {
	case TypeRerun:
		ctx, cancel := context.WithTimeout(ctx, rerunTimeout)
		defer cancel()
		page := c.hub.renderer.Rerun(ctx, dashboard.Request(*msg.Selection))
		c.reply(Downstream{Type: TypePage, ID: msg.ID, Page: page})

	case TypeTicker:
		ctx, cancel := context.WithTimeout(ctx, rerunTimeout)
		defer cancel()
		page := c.hub.renderer.Ticker(ctx, *msg.Ticker)
		c.reply(Downstream{Type: TypeTicker, ID: msg.ID, Ticker: page})

	case TypePing:
		c.reply(Downstream{Type: TypePong, ID: msg.ID})
	}
}

func (c *Client) reply(msg Downstream) {
	payload, err := c.hub.encoder.Encode(c.protocol, msg)
	if err != nil {
		c.logger.Warn("encoding reply failed", zap.String("connID", c.connID), zap.Error(err))
		return
	}
	if !c.hub.deliver(c, payload) {
		c.logger.Debug("reply dropped", zap.String("connID", c.connID), zap.String("type", msg.Type))
	}
}
