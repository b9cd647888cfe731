package chat

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool}
}

func (s *PostgresStore) UpsertCursor(ctx context.Context, c *Cursor) error {
	query := `
		INSERT INTO cursor_positions (id, room_id, user_id, user_name, user_initial, user_avatar_url,
			cursor_x, cursor_y, typing_text, last_seen)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10)
		ON CONFLICT (room_id, user_id) DO UPDATE
		SET user_name = EXCLUDED.user_name,
		    user_initial = EXCLUDED.user_initial,
		    user_avatar_url = EXCLUDED.user_avatar_url,
		    cursor_x = EXCLUDED.cursor_x,
		    cursor_y = EXCLUDED.cursor_y,
		    typing_text = EXCLUDED.typing_text,
		    last_seen = GREATEST(cursor_positions.last_seen, EXCLUDED.last_seen)
		RETURNING id
	`

	err := s.pool.QueryRow(ctx, query,
		uuid.New(),
		c.RoomID,
		c.UserID,
		c.UserName,
		c.UserInitial,
		c.UserAvatarURL,
		c.CursorX,
		c.CursorY,
		c.TypingText,
		c.LastSeen,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert cursor: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListCursors(ctx context.Context, roomID uuid.UUID) ([]*Cursor, error) {
	query := `
		SELECT id, room_id, user_id, user_name, user_initial, COALESCE(user_avatar_url, ''),
		       cursor_x, cursor_y, typing_text, last_seen
		FROM cursor_positions
		WHERE room_id = $1
	`

	rows, err := s.pool.Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cursors: %w", err)
	}

	cursors, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Cursor, error) {
		c := &Cursor{}
		err := row.Scan(&c.ID, &c.RoomID, &c.UserID, &c.UserName, &c.UserInitial, &c.UserAvatarURL,
			&c.CursorX, &c.CursorY, &c.TypingText, &c.LastSeen)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan cursors: %w", err)
	}
	return cursors, nil
}

func (s *PostgresStore) DeleteCursor(ctx context.Context, roomID, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM cursor_positions WHERE room_id = $1 AND user_id = $2`, roomID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete cursor: %w", err)
	}
	return nil
}

// CreateMessage appends a chat message
func (s *PostgresStore) CreateMessage(ctx context.Context, m *Message) error {
	query := `
		INSERT INTO chat_messages (id, room_id, user_id, user_name, user_initial, user_avatar_url,
			message, cursor_x, cursor_y, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10)
	`

	m.ID = uuid.New()

	_, err := s.pool.Exec(ctx, query,
		m.ID,
		m.RoomID,
		m.UserID,
		m.UserName,
		m.UserInitial,
		m.UserAvatarURL,
		m.Message,
		m.CursorX,
		m.CursorY,
		m.CreatedAt,
	)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("operation cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, roomID uuid.UUID, limit int) ([]*Message, error) {
	query := `
		SELECT id, room_id, user_id, user_name, user_initial, user_avatar_url, message, cursor_x, cursor_y, created_at
		FROM (
			SELECT id, room_id, user_id, user_name, user_initial, COALESCE(user_avatar_url, '') AS user_avatar_url,
			       message, cursor_x, cursor_y, created_at
			FROM chat_messages
			WHERE room_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) latest
		ORDER BY created_at ASC, id ASC
	`

	var lim any = limit
	if limit <= 0 {
		lim = nil // LIMIT NULL returns every row
	}

	rows, err := s.pool.Query(ctx, query, roomID, lim)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Message, error) {
		m := &Message{}
		err := row.Scan(&m.ID, &m.RoomID, &m.UserID, &m.UserName, &m.UserInitial, &m.UserAvatarURL,
			&m.Message, &m.CursorX, &m.CursorY, &m.CreatedAt)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan messages: %w", err)
	}
	return messages, nil
}
