package participant

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rx3lixir/focus_rooms/internal/timer"
)

type Store interface {
	GetParticipant(ctx context.Context, roomID, userID uuid.UUID) (*Participant, error)
	ListParticipants(ctx context.Context, roomID uuid.UUID) ([]*Participant, error)

	// InsertParticipant creates the row and reports whether it did. When a
	// row already exists for the (room, user) pair it is only heartbeated.
	InsertParticipant(ctx context.Context, p *Participant) (bool, error)
	// Touch refreshes last_seen and, when avatarURL is not empty, the avatar.
	Touch(ctx context.Context, roomID, userID uuid.UUID, avatarURL string, now time.Time) (*Participant, error)
	DeleteParticipant(ctx context.Context, roomID, userID uuid.UUID) error

	UpdatePosition(ctx context.Context, roomID, userID uuid.UUID, x, y float64, now time.Time) error
	UpdateTask(ctx context.Context, roomID, userID uuid.UUID, task string, now time.Time) error
	// UpdateTimer applies upd and returns the stored snapshot. A version that
	// is not newer than the stored one fails with apperr.ErrStaleTimerVersion.
	UpdateTimer(ctx context.Context, roomID, userID uuid.UUID, upd TimerUpdate, now time.Time) (timer.Snapshot, error)
}

type TimerUpdate struct {
	State         timer.State
	Type          *timer.Type
	TimeLeft      int
	PomodoroCount *int
	Version       *int64
}
