package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rx3lixir/focus_rooms/internal/apperr"
	"github.com/rx3lixir/focus_rooms/internal/auth"
	"github.com/rx3lixir/focus_rooms/internal/event"
	"github.com/rx3lixir/focus_rooms/internal/participant"
	"github.com/rx3lixir/focus_rooms/internal/timer"
)

// ParticipantLookup supplies the display fields copied onto new sessions.
type ParticipantLookup interface {
	GetParticipant(ctx context.Context, roomID, userID uuid.UUID) (*participant.Participant, error)
}

type Service struct {
	store        Store
	participants ParticipantLookup
	notifier     event.Notifier
	log          *slog.Logger
	loc          *time.Location
	now          func() time.Time
}

// NewService wires the session service. loc decides where "today" starts.
func NewService(store Store, participants ParticipantLookup, notifier event.Notifier, log *slog.Logger, loc *time.Location) *Service {
	if notifier == nil {
		notifier = event.Nop{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		store:        store,
		participants: participants,
		notifier:     notifier,
		log:          log,
		loc:          loc,
		now:          time.Now,
	}
}

// Save appends a session for the caller. Display fields come from the
// caller's participant row, or from the identity once the row is gone.
func (s *Service) Save(ctx context.Context, caller auth.Identity, roomID uuid.UUID, req SaveRequest) (*Session, error) {
	if !caller.Authenticated() {
		return nil, apperr.ErrNotAuthenticated
	}
	if !req.TimerType.Valid() {
		return nil, apperr.Validation("timer_type must be pomodoro, shortBreak or longBreak")
	}
	if req.Duration < 0 || req.Duration > timer.MaxSeconds {
		return nil, apperr.Validation("duration must be between 0 and %d", timer.MaxSeconds)
	}

	sess := &Session{
		RoomID:        roomID,
		UserID:        caller.UserID,
		UserName:      caller.DisplayName(),
		UserInitial:   caller.Initial(),
		UserAvatarURL: caller.AvatarURL,
		TimerType:     req.TimerType,
		Duration:      req.Duration,
		Task:          strings.TrimSpace(req.Task),
		CompletedAt:   s.now(),
	}

	p, err := s.participants.GetParticipant(ctx, roomID, caller.UserID)
	switch {
	case err == nil:
		sess.UserName = p.UserName
		sess.UserInitial = p.UserInitial
		if p.UserAvatarURL != "" {
			sess.UserAvatarURL = p.UserAvatarURL
		}
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}

	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, event.Invalidation{RoomID: roomID, Topic: event.TopicSessions})

	s.log.Info("session saved",
		"room_id", roomID,
		"user_id", caller.UserID,
		"timer_type", sess.TimerType,
		"duration", sess.Duration)

	return sess, nil
}

// UserSessions lists the caller's sessions in a room, newest first.
func (s *Service) UserSessions(ctx context.Context, caller auth.Identity, roomID uuid.UUID) ([]*Session, error) {
	if !caller.Authenticated() {
		return nil, apperr.ErrNotAuthenticated
	}
	return s.store.ListUserSessions(ctx, roomID, caller.UserID)
}

func (s *Service) RoomLeaderboard(ctx context.Context, roomID uuid.UUID) ([]Entry, error) {
	sessions, err := s.store.ListRoomSessions(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return Aggregate(sessions), nil
}

func (s *Service) GlobalLeaderboard(ctx context.Context, period Period) ([]Entry, error) {
	start, err := PeriodStart(period, s.now(), s.loc)
	if err != nil {
		return nil, apperr.Validation("period must be today, thisMonth or lifetime")
	}

	sessions, err := s.store.ListSessionsSince(ctx, start)
	if err != nil {
		return nil, err
	}
	return Aggregate(sessions), nil
}
