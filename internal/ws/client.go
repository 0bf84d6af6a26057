package ws

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Client wraps a websocket connection as a hub Subscriber. The write mutex
// serializes frames from the hub goroutine and the connection's read pump
// (acks, welcome), which gorilla requires.
type Client struct {
	ID   string
	conn *websocket.Conn
	log  *slog.Logger
	mu   sync.Mutex
}

// NewClient constructs a client wrapper identified by id.
func NewClient(id string, conn *websocket.Conn, logger *slog.Logger) *Client {
	return &Client{ID: id, conn: conn, log: logger}
}

// Send writes a text message to the connection.
func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.log.Warn("websocket send failed", "socket_id", c.ID, "error", err)
		_ = c.conn.Close()
		return err
	}
	return nil
}

// Close terminates the connection.
func (c *Client) Close() {
	_ = c.conn.Close()
}
