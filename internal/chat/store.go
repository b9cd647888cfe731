package chat

import (
	"context"

	"github.com/google/uuid"
)

type Store interface {
	// UpsertCursor writes the cursor row of (room, user), creating it if needed.
	UpsertCursor(ctx context.Context, c *Cursor) error
	ListCursors(ctx context.Context, roomID uuid.UUID) ([]*Cursor, error)
	// DeleteCursor is idempotent.
	DeleteCursor(ctx context.Context, roomID, userID uuid.UUID) error

	CreateMessage(ctx context.Context, m *Message) error
	// ListMessages returns up to limit of the newest messages, oldest first.
	// A limit <= 0 returns the whole history.
	ListMessages(ctx context.Context, roomID uuid.UUID, limit int) ([]*Message, error)
}
