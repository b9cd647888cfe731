package session

import (
	"context"
	"fmt"
	"time"

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

const sessionColumns = `id, room_id, user_id, user_name, user_initial, COALESCE(user_avatar_url, ''),
	timer_type, duration, task, completed_at`

// CreateSession appends a session to the log
func (s *PostgresStore) CreateSession(ctx context.Context, sess *Session) error {
	query := `
		INSERT INTO pomodoro_sessions (id, room_id, user_id, user_name, user_initial, user_avatar_url,
			timer_type, duration, task, completed_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10)
	`

	sess.ID = uuid.New()

	_, err := s.pool.Exec(ctx, query,
		sess.ID,
		sess.RoomID,
		sess.UserID,
		sess.UserName,
		sess.UserInitial,
		sess.UserAvatarURL,
		sess.TimerType,
		sess.Duration,
		sess.Task,
		sess.CompletedAt,
	)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("operation cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

func (s *PostgresStore) ListRoomSessions(ctx context.Context, roomID uuid.UUID) ([]*Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM pomodoro_sessions
		WHERE room_id = $1
		ORDER BY completed_at ASC, id
	`
	return s.list(ctx, query, roomID)
}

func (s *PostgresStore) ListSessionsSince(ctx context.Context, since time.Time) ([]*Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM pomodoro_sessions
		WHERE completed_at >= $1
		ORDER BY completed_at ASC, id
	`
	return s.list(ctx, query, since)
}

func (s *PostgresStore) ListUserSessions(ctx context.Context, roomID, userID uuid.UUID) ([]*Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM pomodoro_sessions
		WHERE room_id = $1 AND user_id = $2
		ORDER BY completed_at DESC, id
	`
	return s.list(ctx, query, roomID, userID)
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*Session, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	sessions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Session, error) {
		sess := &Session{}
		err := row.Scan(
			&sess.ID,
			&sess.RoomID,
			&sess.UserID,
			&sess.UserName,
			&sess.UserInitial,
			&sess.UserAvatarURL,
			&sess.TimerType,
			&sess.Duration,
			&sess.Task,
			&sess.CompletedAt,
		)
		return sess, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan sessions: %w", err)
	}

	return sessions, nil
}
