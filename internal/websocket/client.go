package websocket

import (
	"context"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Send pings to peer with this period
	pingPeriod = 30 * time.Second

	// Clients only ever send close frames and pongs
	maxMessageSize = 512

	sendBuffer = 64
)

// Client is one websocket connection watching a room
type Client struct {
	userID uuid.UUID
	roomID uuid.UUID
	conn   *websocket.Conn
	send   chan []byte
	log    *slog.Logger
}

func newClient(userID, roomID uuid.UUID, conn *websocket.Conn, log *slog.Logger) *Client {
	return &Client{
		userID: userID,
		roomID: roomID,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		log:    log,
	}
}

// deliver queues data without blocking and reports whether it fit.
// Only called from the hub goroutine.
func (c *Client) deliver(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// readPump blocks until the peer goes away. Nothing the client sends is
// used, reading just surfaces disconnects and control frames.
func (c *Client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)

	for {
		_, _, err := c.conn.Read(ctx)
		if err == nil {
			continue
		}

		status := websocket.CloseStatus(err)
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || ctx.Err() != nil {
			c.log.Debug("client disconnected",
				"user_id", c.userID,
				"room_id", c.roomID,
			)
		} else {
			c.log.Warn("websocket read error",
				"user_id", c.userID,
				"room_id", c.roomID,
				"error", err,
			)
		}
		return
	}
}

// writePump pumps messages from the hub to the connection until the hub
// closes the send channel or ctx ends.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				c.conn.Close(websocket.StatusGoingAway, "room closed")
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, data)
			cancel()

			if err != nil {
				c.log.Warn("failed to write message",
					"user_id", c.userID,
					"room_id", c.roomID,
					"error", err,
				)
				c.conn.Close(websocket.StatusInternalError, "write failed")
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()

			if err != nil {
				c.log.Debug("ping failed",
					"user_id", c.userID,
					"room_id", c.roomID,
					"error", err,
				)
				c.conn.Close(websocket.StatusGoingAway, "ping failed")
				return
			}

		case <-ctx.Done():
			return
		}
	}
}
