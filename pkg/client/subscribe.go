package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rx3lixir/focus_rooms/internal/event"
)

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Subscribe opens the room's websocket feed. Presence frames are reported as
// participant invalidations. The channel is closed when ctx ends or the
// connection drops.
func (c *Client) Subscribe(ctx context.Context, roomID uuid.UUID) (<-chan event.Invalidation, error) {
	q := url.Values{"room_id": {roomID.String()}}
	if token := c.Token(); token != "" {
		q.Set("token", token)
	}

	// Dial refuses clients with a Timeout; the context bounds the handshake.
	hc := *c.httpClient
	hc.Timeout = 0

	conn, _, err := websocket.Dial(ctx, c.baseURL+"/api/ws?"+q.Encode(), &websocket.DialOptions{
		HTTPClient: &hc,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to dial room feed: %w", err)
	}
	conn.SetReadLimit(4096)

	out := make(chan event.Invalidation, 16)
	go func() {
		defer close(out)
		defer conn.CloseNow()

		for {
			var f frame
			if err := wsjson.Read(ctx, conn, &f); err != nil {
				return
			}

			var inv event.Invalidation
			switch f.Type {
			case "invalidate":
				if err := json.Unmarshal(f.Data, &inv); err != nil {
					continue
				}
			case "user_joined", "user_left":
				inv = event.Invalidation{RoomID: roomID, Topic: event.TopicParticipants}
			default:
				continue
			}

			select {
			case out <- inv:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
