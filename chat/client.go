package chat

import (
	"log/slog"
	"sync"
	"time"

	"chat-gateway/domain"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Client is the handle for one admitted connection. It is created after a
// successful handshake, owned by its session, and used by the broadcaster
// only as a delivery target. Outbound frames go through the buffered send
// channel so a single write pump preserves per-connection FIFO order.
type Client struct {
	conn     *websocket.Conn
	identity domain.Sender
	send     chan []byte
	done     chan struct{}
	once     sync.Once
	log      *slog.Logger
}

func NewClient(conn *websocket.Conn, identity domain.Sender, bufferSize int, log *slog.Logger) *Client {
	return &Client{
		conn:     conn,
		identity: identity,
		send:     make(chan []byte, bufferSize),
		done:     make(chan struct{}),
		log:      log,
	}
}

func (c *Client) Identity() domain.Sender {
	return c.identity
}

// Enqueue hands a payload to the write pump without blocking. It reports
// false when the client is already closed or its buffer is full; the caller
// treats that as a local delivery failure. The done check runs first on its
// own: a single select would pick randomly between a closed done channel and
// a free buffer slot.
func (c *Client) Enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// Close stops the write pump. Safe to call more than once.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// WritePump serializes all writes to the connection: queued payloads,
// keepalive pings, and the final close frame. It owns the connection's
// write side and closes the transport when it returns, which in turn
// unblocks the session's read loop.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.log.Debug("write failed", "user", c.identity.Username, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
