package participant

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rx3lixir/focus_rooms/internal/apperr"
	"github.com/rx3lixir/focus_rooms/internal/auth"
	"github.com/rx3lixir/focus_rooms/internal/event"
	"github.com/rx3lixir/focus_rooms/internal/presence"
	"github.com/rx3lixir/focus_rooms/internal/room"
	"github.com/rx3lixir/focus_rooms/internal/timer"
)

// RoomLookup is the slice of the room store the lifecycle needs.
type RoomLookup interface {
	GetRoomByID(ctx context.Context, roomID uuid.UUID) (*room.Room, error)
}

type Service struct {
	rooms    RoomLookup
	store    Store
	notifier event.Notifier
	log      *slog.Logger
	window   time.Duration
	now      func() time.Time
}

// NewService wires the participant service. A zero window means
// presence.ParticipantWindow.
func NewService(rooms RoomLookup, store Store, notifier event.Notifier, log *slog.Logger, window time.Duration) *Service {
	if notifier == nil {
		notifier = event.Nop{}
	}
	if window <= 0 {
		window = presence.ParticipantWindow
	}
	return &Service{
		rooms:    rooms,
		store:    store,
		notifier: notifier,
		log:      log,
		window:   window,
		now:      time.Now,
	}
}

// Join enters a room or, for a user already holding a row, heartbeats it.
// Capacity and the join code are only checked for new rows.
func (s *Service) Join(ctx context.Context, caller auth.Identity, roomID uuid.UUID, req JoinRequest) (*JoinResponse, error) {
	if !caller.Authenticated() {
		return nil, apperr.ErrNotAuthenticated
	}

	rm, err := s.rooms.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	avatar := avatarOf(caller, req.UserAvatarURL)

	existing, err := s.store.GetParticipant(ctx, roomID, caller.UserID)
	switch {
	case err == nil:
		wasActive := presence.IsActive(existing.LastSeen, now, s.window)
		p, err := s.store.Touch(ctx, roomID, caller.UserID, explicitAvatar(req.UserAvatarURL), now)
		if err != nil {
			return nil, err
		}
		if !wasActive {
			s.notify(ctx, roomID)
		}
		return &JoinResponse{Participant: p.View()}, nil
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}

	if rm.MaxUsers != nil {
		all, err := s.store.ListParticipants(ctx, roomID)
		if err != nil {
			return nil, err
		}
		active := presence.Count(all, lastSeen, now, s.window)
		if active >= *rm.MaxUsers {
			s.log.Info("join rejected, room full",
				"room_id", roomID,
				"user_id", caller.UserID,
				"active", active,
				"max_users", *rm.MaxUsers)
			return nil, apperr.New(apperr.ErrRoomFull, "room is full")
		}
	}

	if rm.IsPrivate() {
		if req.JoinCode == nil || *req.JoinCode != rm.JoinCode {
			s.log.Info("join rejected, bad join code",
				"room_id", roomID,
				"user_id", caller.UserID)
			return nil, apperr.New(apperr.ErrInvalidJoinCode, "invalid join code")
		}
	}

	def := timer.Default()
	p := &Participant{
		RoomID:        roomID,
		UserID:        caller.UserID,
		UserName:      nameOf(caller, req.UserName),
		UserInitial:   initialOf(caller, req.UserInitial),
		UserAvatarURL: avatar,
		PositionX:     DefaultPositionX,
		PositionY:     DefaultPositionY,
		TimerState:    def.State,
		TimerType:     def.Type,
		TimeLeft:      def.TimeLeft,
		PomodoroCount: def.PomodoroCount,
		TimerVersion:  def.Version,
		LastSeen:      now,
	}

	created, err := s.store.InsertParticipant(ctx, p)
	if err != nil {
		return nil, err
	}
	if !created {
		// Lost a race with a concurrent first join; the row was heartbeated.
		p, err = s.store.GetParticipant(ctx, roomID, caller.UserID)
		if err != nil {
			return nil, err
		}
	}

	s.notify(ctx, roomID)

	s.log.Info("participant joined",
		"room_id", roomID,
		"user_id", caller.UserID,
		"created", created)

	return &JoinResponse{Participant: p.View(), Created: created}, nil
}

// Leave deletes the caller's row. Leaving a room twice is fine.
func (s *Service) Leave(ctx context.Context, caller auth.Identity, roomID uuid.UUID) error {
	if !caller.Authenticated() {
		return apperr.ErrNotAuthenticated
	}

	if err := s.store.DeleteParticipant(ctx, roomID, caller.UserID); err != nil {
		return err
	}

	s.notify(ctx, roomID)

	s.log.Info("participant left",
		"room_id", roomID,
		"user_id", caller.UserID)
	return nil
}

// List returns the live participants of a room. No identity needed.
func (s *Service) List(ctx context.Context, roomID uuid.UUID) ([]View, error) {
	all, err := s.store.ListParticipants(ctx, roomID)
	if err != nil {
		return nil, err
	}

	live := presence.Active(all, lastSeen, s.now(), s.window)
	out := make([]View, 0, len(live))
	for _, p := range live {
		out = append(out, p.View())
	}
	return out, nil
}

// Get returns the caller's own row regardless of liveness.
func (s *Service) Get(ctx context.Context, caller auth.Identity, roomID uuid.UUID) (*Participant, error) {
	if !caller.Authenticated() {
		return nil, apperr.ErrNotAuthenticated
	}
	return s.store.GetParticipant(ctx, roomID, caller.UserID)
}

// UpdatePosition stores the caller's position as sent. Only non-finite
// coordinates are rejected.
func (s *Service) UpdatePosition(ctx context.Context, caller auth.Identity, roomID uuid.UUID, req PositionRequest) error {
	if !caller.Authenticated() {
		return apperr.ErrNotAuthenticated
	}
	if !finite(req.X) || !finite(req.Y) {
		return apperr.Validation("position must be a finite number")
	}

	if err := s.store.UpdatePosition(ctx, roomID, caller.UserID, req.X, req.Y, s.now()); err != nil {
		return err
	}

	s.notify(ctx, roomID)
	return nil
}

func (s *Service) UpdateTask(ctx context.Context, caller auth.Identity, roomID uuid.UUID, req TaskRequest) error {
	if !caller.Authenticated() {
		return apperr.ErrNotAuthenticated
	}
	if utf8.RuneCountInString(req.Task) > maxTaskLen {
		return apperr.Validation("task must be at most %d characters", maxTaskLen)
	}

	if err := s.store.UpdateTask(ctx, roomID, caller.UserID, req.Task, s.now()); err != nil {
		return err
	}

	s.notify(ctx, roomID)
	return nil
}

// UpdateTimer writes the caller's timer. With a version the write only
// lands when it is newer than the stored one.
func (s *Service) UpdateTimer(ctx context.Context, caller auth.Identity, roomID uuid.UUID, req TimerRequest) (timer.Snapshot, error) {
	if !caller.Authenticated() {
		return timer.Snapshot{}, apperr.ErrNotAuthenticated
	}
	if err := validateTimer(req); err != nil {
		return timer.Snapshot{}, err
	}

	snap, err := s.store.UpdateTimer(ctx, roomID, caller.UserID, TimerUpdate{
		State:         req.TimerState,
		Type:          req.TimerType,
		TimeLeft:      req.TimeLeft,
		PomodoroCount: req.PomodoroCount,
		Version:       req.Version,
	}, s.now())
	if err != nil {
		if errors.Is(err, apperr.ErrStaleTimerVersion) {
			s.log.Debug("stale timer write rejected",
				"room_id", roomID,
				"user_id", caller.UserID,
				"error", err)
		}
		return timer.Snapshot{}, err
	}

	s.notify(ctx, roomID)

	s.log.Debug("timer updated",
		"room_id", roomID,
		"user_id", caller.UserID,
		"state", snap.State,
		"type", snap.Type,
		"version", snap.Version)

	return snap, nil
}

func (s *Service) notify(ctx context.Context, roomID uuid.UUID) {
	s.notifier.Notify(ctx, event.Invalidation{RoomID: roomID, Topic: event.TopicParticipants})
}

func validateTimer(req TimerRequest) error {
	if !req.TimerState.Valid() {
		return apperr.Validation("timer_state must be idle, running or paused")
	}
	if req.TimerType != nil && !req.TimerType.Valid() {
		return apperr.Validation("timer_type must be pomodoro, shortBreak or longBreak")
	}
	if req.TimeLeft < 0 || req.TimeLeft > timer.MaxSeconds {
		return apperr.Validation("time_left must be between 0 and %d", timer.MaxSeconds)
	}
	if req.PomodoroCount != nil && (*req.PomodoroCount < 0 || *req.PomodoroCount > math.MaxInt32) {
		return apperr.Validation("pomodoro_count out of range")
	}
	return nil
}

func lastSeen(p *Participant) time.Time { return p.LastSeen }

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func nameOf(caller auth.Identity, name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return caller.DisplayName()
}

func initialOf(caller auth.Identity, initial string) string {
	if initial = strings.TrimSpace(initial); initial != "" {
		return initial
	}
	return caller.Initial()
}

func explicitAvatar(u *string) string {
	if u == nil {
		return ""
	}
	return strings.TrimSpace(*u)
}

func avatarOf(caller auth.Identity, u *string) string {
	if v := explicitAvatar(u); v != "" {
		return v
	}
	return caller.AvatarURL
}
