package room

import (
	"context"

	"github.com/google/uuid"
)

type Store interface {
	CreateRoom(ctx context.Context, room *Room) error
	GetRoomByID(ctx context.Context, roomID uuid.UUID) (*Room, error)
	UpdateRoom(ctx context.Context, room *Room) error
	// DeleteRoom removes the room together with its participants, cursors
	// and chat. Session history is kept.
	DeleteRoom(ctx context.Context, roomID uuid.UUID) error

	// ListVisibleRooms returns public rooms and rooms owned by viewer, newest first.
	ListVisibleRooms(ctx context.Context, viewer uuid.UUID) ([]*Room, error)
	IsUserInRoom(ctx context.Context, roomID, userID uuid.UUID) (bool, error)
}

// Archiver saves whatever must outlive a deleted room.
type Archiver interface {
	ArchiveRoom(ctx context.Context, room *Room) error
}
