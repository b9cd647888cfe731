package chat

import (
	"time"

	"github.com/google/uuid"
)

const (
	MaxMessageLen = 500
	HistoryLimit  = 100
)

type Cursor struct {
	ID            uuid.UUID `json:"-"`
	RoomID        uuid.UUID `json:"room_id"`
	UserID        uuid.UUID `json:"user_id"`
	UserName      string    `json:"user_name"`
	UserInitial   string    `json:"user_initial"`
	UserAvatarURL string    `json:"user_avatar_url,omitempty"`
	CursorX       float64   `json:"cursor_x"`
	CursorY       float64   `json:"cursor_y"`
	TypingText    *string   `json:"typing_text,omitempty"`
	LastSeen      time.Time `json:"last_seen"`
}

type Message struct {
	ID            uuid.UUID `json:"id"`
	RoomID        uuid.UUID `json:"room_id"`
	UserID        uuid.UUID `json:"user_id"`
	UserName      string    `json:"user_name"`
	UserInitial   string    `json:"user_initial"`
	UserAvatarURL string    `json:"user_avatar_url,omitempty"`
	Message       string    `json:"message"`
	CursorX       float64   `json:"cursor_x"`
	CursorY       float64   `json:"cursor_y"`
	CreatedAt     time.Time `json:"created_at"`
}

type CursorRequest struct {
	CursorX    float64 `json:"cursor_x"`
	CursorY    float64 `json:"cursor_y"`
	TypingText *string `json:"typing_text,omitempty"`
}

type MessageRequest struct {
	Message string  `json:"message"`
	CursorX float64 `json:"cursor_x"`
	CursorY float64 `json:"cursor_y"`
}

type CursorsResponse struct {
	Cursors []*Cursor `json:"cursors"`
	Count   int       `json:"count"`
}

type MessagesResponse struct {
	Messages []*Message `json:"messages"`
	Count    int        `json:"count"`
}
