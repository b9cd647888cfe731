package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rx3lixir/focus_rooms/internal/apperr"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool}
}

const roomColumns = `id, name, owner_id, visibility, COALESCE(join_code, ''), theme, music_url, max_users, created_at, updated_at`

func scanRoom(row pgx.Row) (*Room, error) {
	room := &Room{}
	err := row.Scan(
		&room.ID,
		&room.Name,
		&room.OwnerID,
		&room.Visibility,
		&room.JoinCode,
		&room.Theme,
		&room.MusicURL,
		&room.MaxUsers,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	return room, err
}

// CreateRoom creates a new room
func (s *PostgresStore) CreateRoom(ctx context.Context, room *Room) error {
	query := `
		INSERT INTO rooms (id, name, owner_id, visibility, join_code, theme, music_url, max_users, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10)
	`

	room.ID = uuid.New()
	now := time.Now()
	room.CreatedAt = now
	room.UpdatedAt = now

	_, err := s.pool.Exec(ctx, query,
		room.ID,
		room.Name,
		room.OwnerID,
		room.Visibility,
		room.JoinCode,
		room.Theme,
		room.MusicURL,
		room.MaxUsers,
		room.CreatedAt,
		room.UpdatedAt,
	)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("operation cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("failed to create room: %w", err)
	}

	return nil
}

// GetRoomByID retrieves a room by its ID
func (s *PostgresStore) GetRoomByID(ctx context.Context, roomID uuid.UUID) (*Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms WHERE id = $1`

	room, err := scanRoom(s.pool.QueryRow(ctx, query, roomID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("room")
		}
		return nil, fmt.Errorf("failed to get room: %w", err)
	}

	return room, nil
}

// UpdateRoom writes every mutable field of the room
func (s *PostgresStore) UpdateRoom(ctx context.Context, room *Room) error {
	query := `
		UPDATE rooms
		SET name = $2, visibility = $3, join_code = NULLIF($4, ''), theme = $5,
		    music_url = $6, max_users = $7, updated_at = $8
		WHERE id = $1
	`
	room.UpdatedAt = time.Now()

	result, err := s.pool.Exec(ctx, query,
		room.ID,
		room.Name,
		room.Visibility,
		room.JoinCode,
		room.Theme,
		room.MusicURL,
		room.MaxUsers,
		room.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperr.NotFound("room")
	}

	return nil
}

// DeleteRoom deletes a room and its presence data in one transaction
func (s *PostgresStore) DeleteRoom(ctx context.Context, roomID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin delete room tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, q := range []string{
		`DELETE FROM room_participants WHERE room_id = $1`,
		`DELETE FROM cursor_positions WHERE room_id = $1`,
		`DELETE FROM chat_messages WHERE room_id = $1`,
	} {
		if _, err := tx.Exec(ctx, q, roomID); err != nil {
			return fmt.Errorf("failed to delete room data: %w", err)
		}
	}

	result, err := tx.Exec(ctx, `DELETE FROM rooms WHERE id = $1`, roomID)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("room")
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit delete room: %w", err)
	}

	return nil
}

// ListVisibleRooms gets public rooms plus the viewer's own rooms
func (s *PostgresStore) ListVisibleRooms(ctx context.Context, viewer uuid.UUID) ([]*Room, error) {
	query := `
		SELECT ` + roomColumns + `
		FROM rooms
		WHERE visibility = 'public' OR owner_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, viewer)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	rooms := []*Room{}
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rooms: %w", err)
	}

	return rooms, nil
}

// IsUserInRoom checks if a user holds a participant row in a room
func (s *PostgresStore) IsUserInRoom(ctx context.Context, roomID, userID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM room_participants
			WHERE room_id = $1 AND user_id = $2
		)
	`

	var exists bool
	err := s.pool.QueryRow(ctx, query, roomID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user in room: %w", err)
	}

	return exists, nil
}
