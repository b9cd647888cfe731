package websocket

import (
	"github.com/google/uuid"
	"github.com/rx3lixir/focus_rooms/internal/event"
)

// MessageType defines the type of message
type MessageType string

const (
	TypeConnectionAck MessageType = "connection_ack"
	TypeInvalidate    MessageType = "invalidate"
	TypeUserJoined    MessageType = "user_joined"
	TypeUserLeft      MessageType = "user_left"
)

// ServerMessage is every frame the server sends
type ServerMessage struct {
	Type      MessageType `json:"type"`
	Data      any         `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// AckData is the payload of TypeConnectionAck
type AckData struct {
	RoomID uuid.UUID `json:"room_id"`
	UserID uuid.UUID `json:"user_id,omitempty"`
}

// PresenceData is the payload of TypeUserJoined and TypeUserLeft
type PresenceData struct {
	UserID uuid.UUID `json:"user_id"`
}

func invalidateMessage(inv event.Invalidation) ServerMessage {
	return ServerMessage{Type: TypeInvalidate, Data: inv}
}
