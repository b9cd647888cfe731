package chat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rx3lixir/focus_rooms/internal/storage/postgres/pgtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore_ListMessages(t *testing.T) {
	store := NewPostgresStore(pgtest.NewPool(t))
	ctx := context.Background()
	roomID := uuid.New()
	start := time.Now().UTC().Truncate(time.Millisecond)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.CreateMessage(ctx, &Message{
			RoomID:      roomID,
			UserID:      uuid.New(),
			UserName:    "ann",
			UserInitial: "A",
			Message:     fmt.Sprintf("m%d", i),
			CreatedAt:   start.Add(time.Duration(i) * time.Second),
		}))
	}

	latest, err := store.ListMessages(ctx, roomID, 3)
	require.NoError(t, err)
	require.Len(t, latest, 3)
	assert.Equal(t, []string{"m2", "m3", "m4"}, []string{latest[0].Message, latest[1].Message, latest[2].Message})

	all, err := store.ListMessages(ctx, roomID, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestPostgresStore_CursorUpsert(t *testing.T) {
	store := NewPostgresStore(pgtest.NewPool(t))
	ctx := context.Background()
	roomID, userID := uuid.New(), uuid.New()
	now := time.Now().UTC().Truncate(time.Millisecond)

	c := &Cursor{RoomID: roomID, UserID: userID, UserName: "ann", UserInitial: "A", CursorX: 1, CursorY: 2, LastSeen: now}
	require.NoError(t, store.UpsertCursor(ctx, c))
	first := c.ID

	c2 := &Cursor{RoomID: roomID, UserID: userID, UserName: "ann", UserInitial: "A", CursorX: 3, CursorY: 4, LastSeen: now.Add(-time.Second)}
	require.NoError(t, store.UpsertCursor(ctx, c2))
	assert.Equal(t, first, c2.ID)

	cursors, err := store.ListCursors(ctx, roomID)
	require.NoError(t, err)
	require.Len(t, cursors, 1)
	assert.Equal(t, 3.0, cursors[0].CursorX)
	assert.True(t, cursors[0].LastSeen.Equal(now))

	require.NoError(t, store.DeleteCursor(ctx, roomID, userID))
	require.NoError(t, store.DeleteCursor(ctx, roomID, userID))
}
