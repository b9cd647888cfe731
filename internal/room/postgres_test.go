package room

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rx3lixir/focus_rooms/internal/apperr"
	"github.com/rx3lixir/focus_rooms/internal/storage/postgres/pgtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore_RoomLifecycle(t *testing.T) {
	pool := pgtest.NewPool(t)
	store := NewPostgresStore(pool)
	ctx := context.Background()
	owner := uuid.New()

	room := &Room{Name: "Library", OwnerID: owner, Visibility: Private, JoinCode: "AB23CD", Theme: "library", MaxUsers: ptr(3)}
	require.NoError(t, store.CreateRoom(ctx, room))

	got, err := store.GetRoomByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, "AB23CD", got.JoinCode)
	assert.Equal(t, 3, *got.MaxUsers)
	assert.Nil(t, got.MusicURL)

	got.Visibility = Public
	got.JoinCode = ""
	got.MusicURL = ptr("https://music/lofi.mp3")
	require.NoError(t, store.UpdateRoom(ctx, got))

	got, err = store.GetRoomByID(ctx, room.ID)
	require.NoError(t, err)
	assert.Empty(t, got.JoinCode)
	assert.Equal(t, "https://music/lofi.mp3", *got.MusicURL)

	_, err = store.GetRoomByID(ctx, uuid.New())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPostgresStore_ListVisibleRooms(t *testing.T) {
	pool := pgtest.NewPool(t)
	store := NewPostgresStore(pool)
	ctx := context.Background()
	ann, bob := uuid.New(), uuid.New()

	mk := func(name string, owner uuid.UUID, v Visibility) {
		require.NoError(t, store.CreateRoom(ctx, &Room{Name: name, OwnerID: owner, Visibility: v, Theme: "t"}))
		time.Sleep(2 * time.Millisecond)
	}
	mk("a-pub", ann, Public)
	mk("a-priv", ann, Private)
	mk("b-priv", bob, Private)
	mk("b-pub", bob, Public)

	rooms, err := store.ListVisibleRooms(ctx, ann)
	require.NoError(t, err)

	var names []string
	for _, r := range rooms {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{"b-pub", "a-priv", "a-pub"}, names)
}

func TestPostgresStore_DeleteRoomCascades(t *testing.T) {
	pool := pgtest.NewPool(t)
	store := NewPostgresStore(pool)
	ctx := context.Background()

	room := &Room{Name: "Library", OwnerID: uuid.New(), Visibility: Public, Theme: "t"}
	require.NoError(t, store.CreateRoom(ctx, room))

	userID := uuid.New()
	_, err := pool.Exec(ctx, `INSERT INTO room_participants (id, room_id, user_id, user_name, user_initial, last_seen) VALUES ($1, $2, $3, 'ann', 'A', now())`, uuid.New(), room.ID, userID)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO chat_messages (id, room_id, user_id, user_name, user_initial, message, cursor_x, cursor_y, created_at) VALUES ($1, $2, $3, 'ann', 'A', 'hi', 1, 1, now())`, uuid.New(), room.ID, userID)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO pomodoro_sessions (id, room_id, user_id, user_name, user_initial, timer_type, duration, completed_at) VALUES ($1, $2, $3, 'ann', 'A', 'pomodoro', 1500, now())`, uuid.New(), room.ID, userID)
	require.NoError(t, err)

	in, err := store.IsUserInRoom(ctx, room.ID, userID)
	require.NoError(t, err)
	assert.True(t, in)

	require.NoError(t, store.DeleteRoom(ctx, room.ID))

	var participants, messages, sessions int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM room_participants WHERE room_id = $1`, room.ID).Scan(&participants))
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM chat_messages WHERE room_id = $1`, room.ID).Scan(&messages))
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM pomodoro_sessions WHERE room_id = $1`, room.ID).Scan(&sessions))
	assert.Zero(t, participants)
	assert.Zero(t, messages)
	assert.Equal(t, 1, sessions)

	assert.ErrorIs(t, store.DeleteRoom(ctx, room.ID), apperr.ErrNotFound)
}
