// Package chat holds the spatial layer of a room: live cursors and the
// chat messages pinned to where they were typed.
package chat

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rx3lixir/focus_rooms/internal/apperr"
	"github.com/rx3lixir/focus_rooms/internal/auth"
	"github.com/rx3lixir/focus_rooms/internal/event"
	"github.com/rx3lixir/focus_rooms/internal/participant"
	"github.com/rx3lixir/focus_rooms/internal/presence"
)

type ParticipantLookup interface {
	GetParticipant(ctx context.Context, roomID, userID uuid.UUID) (*participant.Participant, error)
}

type Service struct {
	store        Store
	participants ParticipantLookup
	notifier     event.Notifier
	log          *slog.Logger
	window       time.Duration
	now          func() time.Time
}

// NewService wires the chat service. A zero window means presence.CursorWindow.
func NewService(store Store, participants ParticipantLookup, notifier event.Notifier, log *slog.Logger, window time.Duration) *Service {
	if notifier == nil {
		notifier = event.Nop{}
	}
	if window <= 0 {
		window = presence.CursorWindow
	}
	return &Service{
		store:        store,
		participants: participants,
		notifier:     notifier,
		log:          log,
		window:       window,
		now:          time.Now,
	}
}

func (s *Service) UpdateCursor(ctx context.Context, caller auth.Identity, roomID uuid.UUID, req CursorRequest) error {
	if !caller.Authenticated() {
		return apperr.ErrNotAuthenticated
	}
	if !finite(req.CursorX) || !finite(req.CursorY) {
		return apperr.Validation("cursor position must be a finite number")
	}

	c := &Cursor{
		RoomID:        roomID,
		UserID:        caller.UserID,
		UserName:      caller.DisplayName(),
		UserInitial:   caller.Initial(),
		UserAvatarURL: caller.AvatarURL,
		CursorX:       req.CursorX,
		CursorY:       req.CursorY,
		TypingText:    req.TypingText,
		LastSeen:      s.now(),
	}
	if err := s.store.UpsertCursor(ctx, c); err != nil {
		return err
	}

	s.notify(ctx, roomID, event.TopicCursors)
	return nil
}

// Cursors returns the cursors seen within the cursor window.
func (s *Service) Cursors(ctx context.Context, roomID uuid.UUID) ([]*Cursor, error) {
	all, err := s.store.ListCursors(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return presence.Active(all, func(c *Cursor) time.Time { return c.LastSeen }, s.now(), s.window), nil
}

func (s *Service) RemoveCursor(ctx context.Context, caller auth.Identity, roomID uuid.UUID) error {
	if !caller.Authenticated() {
		return apperr.ErrNotAuthenticated
	}
	if err := s.store.DeleteCursor(ctx, roomID, caller.UserID); err != nil {
		return err
	}

	s.notify(ctx, roomID, event.TopicCursors)
	return nil
}

// Send posts a message. Only users holding a participant row may chat.
func (s *Service) Send(ctx context.Context, caller auth.Identity, roomID uuid.UUID, req MessageRequest) (*Message, error) {
	if !caller.Authenticated() {
		return nil, apperr.ErrNotAuthenticated
	}

	text := strings.TrimSpace(req.Message)
	if text == "" {
		return nil, apperr.Validation("message must not be empty")
	}
	if utf8.RuneCountInString(text) > MaxMessageLen {
		return nil, apperr.Validation("message must be at most %d characters", MaxMessageLen)
	}
	if !finite(req.CursorX) || !finite(req.CursorY) {
		return nil, apperr.Validation("cursor position must be a finite number")
	}

	p, err := s.participants.GetParticipant(ctx, roomID, caller.UserID)
	if err != nil {
		return nil, err
	}

	msg := &Message{
		RoomID:        roomID,
		UserID:        caller.UserID,
		UserName:      p.UserName,
		UserInitial:   p.UserInitial,
		UserAvatarURL: p.UserAvatarURL,
		Message:       text,
		CursorX:       req.CursorX,
		CursorY:       req.CursorY,
		CreatedAt:     s.now(),
	}
	if msg.UserAvatarURL == "" {
		msg.UserAvatarURL = caller.AvatarURL
	}

	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	s.notify(ctx, roomID, event.TopicChat)

	s.log.Debug("chat message sent",
		"room_id", roomID,
		"user_id", caller.UserID,
		"length", utf8.RuneCountInString(text))

	return msg, nil
}

// Messages returns the latest HistoryLimit messages, oldest first.
func (s *Service) Messages(ctx context.Context, roomID uuid.UUID) ([]*Message, error) {
	return s.store.ListMessages(ctx, roomID, HistoryLimit)
}

func (s *Service) notify(ctx context.Context, roomID uuid.UUID, topic event.Topic) {
	s.notifier.Notify(ctx, event.Invalidation{RoomID: roomID, Topic: topic})
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
