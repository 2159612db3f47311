// internal/websocket/client.go
package websocket

import (
	"time"

	"subpass-service/internal/domain/event"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

// Client is one websocket connection bound to an authenticated address.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	address string
	send    chan *event.Event
	logger  *zap.Logger
}

func NewClient(hub *Hub, conn *websocket.Conn, address string, logger *zap.Logger) *Client {
	return &Client{
		hub:     hub,
		conn:    conn,
		address: address,
		send:    make(chan *event.Event, 32),
		logger:  logger,
	}
}

// Start registers the client with the hub and launches its pumps.
func (c *Client) Start() {
	c.hub.register <- c
	go c.writePump()
	go c.readPump()
}

func (c *Client) trySend(e *event.Event) {
	select {
	case c.send <- e:
	default:
		c.logger.Warn("client send buffer full, dropping event",
			zap.String("address", c.address))
	}
}

// readPump discards inbound frames; the stream is push-only. Its job is
// keeping the pong deadline fresh and unregistering on disconnect.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("websocket read error", zap.Error(err))
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case e, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(e); err != nil {
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
