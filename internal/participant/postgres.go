package participant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rx3lixir/focus_rooms/internal/apperr"
	"github.com/rx3lixir/focus_rooms/internal/timer"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool}
}

const participantColumns = `id, room_id, user_id, user_name, user_initial, COALESCE(user_avatar_url, ''),
	position_x, position_y, timer_state, timer_type, time_left, task, pomodoro_count, timer_version, last_seen`

func scanParticipant(row pgx.Row) (*Participant, error) {
	p := &Participant{}
	err := row.Scan(
		&p.ID,
		&p.RoomID,
		&p.UserID,
		&p.UserName,
		&p.UserInitial,
		&p.UserAvatarURL,
		&p.PositionX,
		&p.PositionY,
		&p.TimerState,
		&p.TimerType,
		&p.TimeLeft,
		&p.Task,
		&p.PomodoroCount,
		&p.TimerVersion,
		&p.LastSeen,
	)
	return p, err
}

// GetParticipant retrieves the participant row of a user in a room
func (s *PostgresStore) GetParticipant(ctx context.Context, roomID, userID uuid.UUID) (*Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM room_participants WHERE room_id = $1 AND user_id = $2`

	p, err := scanParticipant(s.pool.QueryRow(ctx, query, roomID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("participant")
		}
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

// ListParticipants gets every participant row of a room, stale ones included
func (s *PostgresStore) ListParticipants(ctx context.Context, roomID uuid.UUID) ([]*Participant, error) {
	query := `SELECT ` + participantColumns + ` FROM room_participants WHERE room_id = $1 ORDER BY user_name`

	rows, err := s.pool.Query(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	out := []*Participant{}
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating participants: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) InsertParticipant(ctx context.Context, p *Participant) (bool, error) {
	query := `
		INSERT INTO room_participants (id, room_id, user_id, user_name, user_initial, user_avatar_url,
			position_x, position_y, timer_state, timer_type, time_left, task, pomodoro_count, timer_version, last_seen)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (room_id, user_id) DO UPDATE
		SET last_seen = GREATEST(room_participants.last_seen, EXCLUDED.last_seen),
		    user_avatar_url = COALESCE(EXCLUDED.user_avatar_url, room_participants.user_avatar_url)
		RETURNING (xmax = 0)
	`

	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	var created bool
	err := s.pool.QueryRow(ctx, query,
		p.ID,
		p.RoomID,
		p.UserID,
		p.UserName,
		p.UserInitial,
		p.UserAvatarURL,
		p.PositionX,
		p.PositionY,
		p.TimerState,
		p.TimerType,
		p.TimeLeft,
		p.Task,
		p.PomodoroCount,
		p.TimerVersion,
		p.LastSeen,
	).Scan(&created)
	if err != nil {
		if ctx.Err() != nil {
			return false, fmt.Errorf("operation cancelled: %w", ctx.Err())
		}
		return false, fmt.Errorf("failed to insert participant: %w", err)
	}

	return created, nil
}

func (s *PostgresStore) Touch(ctx context.Context, roomID, userID uuid.UUID, avatarURL string, now time.Time) (*Participant, error) {
	query := `
		UPDATE room_participants
		SET last_seen = GREATEST(last_seen, $3),
		    user_avatar_url = COALESCE(NULLIF($4, ''), user_avatar_url)
		WHERE room_id = $1 AND user_id = $2
		RETURNING ` + participantColumns

	p, err := scanParticipant(s.pool.QueryRow(ctx, query, roomID, userID, now, avatarURL))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("participant")
		}
		return nil, fmt.Errorf("failed to touch participant: %w", err)
	}
	return p, nil
}

// DeleteParticipant removes the row. Missing rows are not an error.
func (s *PostgresStore) DeleteParticipant(ctx context.Context, roomID, userID uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM room_participants WHERE room_id = $1 AND user_id = $2`, roomID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete participant: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdatePosition(ctx context.Context, roomID, userID uuid.UUID, x, y float64, now time.Time) error {
	query := `
		UPDATE room_participants
		SET position_x = $3, position_y = $4, last_seen = GREATEST(last_seen, $5)
		WHERE room_id = $1 AND user_id = $2
	`
	return s.execOne(ctx, "update position", query, roomID, userID, x, y, now)
}

func (s *PostgresStore) UpdateTask(ctx context.Context, roomID, userID uuid.UUID, task string, now time.Time) error {
	query := `
		UPDATE room_participants
		SET task = $3, last_seen = GREATEST(last_seen, $4)
		WHERE room_id = $1 AND user_id = $2
	`
	return s.execOne(ctx, "update task", query, roomID, userID, task, now)
}

func (s *PostgresStore) UpdateTimer(ctx context.Context, roomID, userID uuid.UUID, upd TimerUpdate, now time.Time) (timer.Snapshot, error) {
	query := `
		UPDATE room_participants
		SET timer_state = $3,
		    timer_type = COALESCE($4, timer_type),
		    time_left = $5,
		    pomodoro_count = COALESCE($6, pomodoro_count),
		    timer_version = COALESCE($7, timer_version + 1),
		    last_seen = GREATEST(last_seen, $8)
		WHERE room_id = $1 AND user_id = $2
		  AND ($7::bigint IS NULL OR $7::bigint > timer_version)
		RETURNING timer_state, timer_type, time_left, pomodoro_count, timer_version
	`

	var snap timer.Snapshot
	err := s.pool.QueryRow(ctx, query,
		roomID,
		userID,
		upd.State,
		upd.Type,
		upd.TimeLeft,
		upd.PomodoroCount,
		upd.Version,
		now,
	).Scan(&snap.State, &snap.Type, &snap.TimeLeft, &snap.PomodoroCount, &snap.Version)
	if err == nil {
		return snap, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return timer.Snapshot{}, fmt.Errorf("failed to update timer: %w", err)
	}

	// Either the row is gone or the version lost the race.
	current, err := s.GetParticipant(ctx, roomID, userID)
	if err != nil {
		return timer.Snapshot{}, err
	}
	return timer.Snapshot{}, staleVersion(current.Timer())
}

func (s *PostgresStore) execOne(ctx context.Context, op, query string, args ...any) error {
	result, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("participant")
	}
	return nil
}

func staleVersion(current timer.Snapshot) error {
	return apperr.WithData(apperr.ErrStaleTimerVersion,
		fmt.Sprintf("timer version is stale, current version is %d", current.Version),
		current)
}
