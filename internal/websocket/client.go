package websocket

import (
	"context"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10
)

// Conn is the subset of *websocket.Conn used by a Client.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client is one live websocket connection of an authenticated user.
type Client struct {
	id          string
	userID      uint
	hub         *Hub
	conn        Conn
	send        chan []byte
	connectedAt time.Time

	// Connection state management
	ctx          context.Context
	cancel       context.CancelFunc
	closed       int32 // atomic flag to track if client is closed
	started      int32 // atomic flag set once the pumps are running
	unregistered int32 // atomic flag so OnDisconnect runs once
}

func newClient(hub *Hub, conn Conn, userID uint) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		id:          uuid.New().String(),
		userID:      userID,
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, hub.cfg.SendBufferSize),
		connectedAt: time.Now(),
		ctx:         ctx,
		cancel:      cancel,
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) UserID() uint {
	return c.userID
}

func (c *Client) ConnectedAt() time.Time {
	return c.connectedAt
}

// isClosed returns true if the client is closed
func (c *Client) isClosed() bool {
	return atomic.LoadInt32(&c.closed) == 1
}

// close marks the client as closed and cancels the context. The write pump
// sends the close frame; a client whose pumps never started has its
// connection closed here.
func (c *Client) close() {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return
	}
	c.cancel()
	if c.conn != nil && atomic.LoadInt32(&c.started) == 0 {
		c.conn.Close()
	}
	slog.Debug("Client marked as closed", "clientID", c.id, "userID", c.userID)
}

func (c *Client) markUnregistered() bool {
	return atomic.CompareAndSwapInt32(&c.unregistered, 0, 1)
}

// sendRaw queues an encoded frame for the write pump without blocking. A
// full buffer means the peer is not keeping up; the client is closed and
// ErrSendBufferFull returned.
func (c *Client) sendRaw(data []byte) error {
	if c.isClosed() {
		return ErrClientDisconnected
	}

	select {
	case c.send <- data:
		return nil
	default:
		slog.Warn("Send buffer full, closing client", "clientID", c.id, "userID", c.userID)
		c.close()
		return ErrSendBufferFull
	}
}

// Start runs the read and write pumps. It is a no-op for clients without a
// connection.
func (c *Client) Start() {
	if c.conn == nil || !atomic.CompareAndSwapInt32(&c.started, 0, 1) {
		return
	}
	go c.writePump()
	go c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.OnDisconnect(c)
		if err := c.conn.Close(); err != nil {
			slog.Debug("Error closing connection", "clientID", c.id, "userID", c.userID, "error", err)
		}
	}()

	c.conn.SetReadLimit(c.hub.cfg.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		if c.isClosed() {
			return websocket.ErrCloseSent
		}
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	slog.Debug("ReadPump started", "clientID", c.id, "userID", c.userID)

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Error("WebSocket error", "clientID", c.id, "userID", c.userID, "error", err)
			} else {
				slog.Debug("WebSocket connection closed", "clientID", c.id, "userID", c.userID, "error", err)
			}
			return
		}
		if c.isClosed() {
			return
		}

		// Frames of one connection are handled in arrival order.
		c.hub.handleInbound(c.hub.ctx, c, raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		slog.Debug("WritePump finished", "clientID", c.id, "userID", c.userID)
	}()

	slog.Debug("WritePump started", "clientID", c.id, "userID", c.userID)

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				slog.Debug("Error writing message", "clientID", c.id, "userID", c.userID, "error", err)
				c.close()
				c.conn.Close()
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Debug("Error sending ping", "clientID", c.id, "userID", c.userID, "error", err)
				c.close()
				c.conn.Close()
				return
			}

		case <-c.ctx.Done():
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			c.conn.Close()
			return
		}
	}
}
