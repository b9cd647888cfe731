package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Store interface {
	CreateSession(ctx context.Context, s *Session) error
	// ListRoomSessions returns a room's sessions, oldest first.
	ListRoomSessions(ctx context.Context, roomID uuid.UUID) ([]*Session, error)
	// ListSessionsSince returns sessions of every room completed at or after since, oldest first.
	ListSessionsSince(ctx context.Context, since time.Time) ([]*Session, error)
	// ListUserSessions returns one user's sessions in a room, newest first.
	ListUserSessions(ctx context.Context, roomID, userID uuid.UUID) ([]*Session, error)
}
