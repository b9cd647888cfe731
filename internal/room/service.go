package room

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rx3lixir/focus_rooms/internal/apperr"
	"github.com/rx3lixir/focus_rooms/internal/auth"
	"github.com/rx3lixir/focus_rooms/internal/event"
)

const maxNameLen = 60

type Service struct {
	store    Store
	archiver Archiver
	notifier event.Notifier
	log      *slog.Logger
	genCode  func() (string, error)
}

// NewService wires the room service. archiver may be nil.
func NewService(store Store, archiver Archiver, notifier event.Notifier, log *slog.Logger) *Service {
	if notifier == nil {
		notifier = event.Nop{}
	}
	return &Service{
		store:    store,
		archiver: archiver,
		notifier: notifier,
		log:      log,
		genCode:  GenerateJoinCode,
	}
}

// List returns public rooms and the caller's own rooms. Join codes are
// only shown on rooms the caller owns.
func (s *Service) List(ctx context.Context, caller auth.Identity) ([]*Room, error) {
	rooms, err := s.store.ListVisibleRooms(ctx, caller.UserID)
	if err != nil {
		return nil, err
	}

	out := make([]*Room, 0, len(rooms))
	for _, r := range rooms {
		if r.OwnerID != caller.UserID || !caller.Authenticated() {
			r = r.withoutCode()
		}
		out = append(out, r)
	}
	return out, nil
}

// Get returns the room. The join code is included for the owner and for
// users who already hold a participant row.
func (s *Service) Get(ctx context.Context, caller auth.Identity, roomID uuid.UUID) (*Room, error) {
	room, err := s.store.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if !room.IsPrivate() || !caller.Authenticated() {
		return room.withoutCode(), nil
	}
	if room.OwnerID == caller.UserID {
		return room, nil
	}

	joined, err := s.store.IsUserInRoom(ctx, roomID, caller.UserID)
	if err != nil {
		return nil, err
	}
	if !joined {
		return room.withoutCode(), nil
	}
	return room, nil
}

func (s *Service) Create(ctx context.Context, caller auth.Identity, req CreateRoomRequest) (*Room, error) {
	if !caller.Authenticated() {
		return nil, apperr.ErrNotAuthenticated
	}

	room := &Room{
		Name:       strings.TrimSpace(req.Name),
		OwnerID:    caller.UserID,
		Visibility: req.Visibility,
		Theme:      strings.TrimSpace(req.Theme),
		MusicURL:   normalizeURL(req.MusicURL),
		MaxUsers:   req.MaxUsers,
	}
	if room.Visibility == "" {
		room.Visibility = Public
	}
	if err := validate(room); err != nil {
		return nil, err
	}

	if room.IsPrivate() {
		code, err := s.genCode()
		if err != nil {
			return nil, err
		}
		room.JoinCode = code
	}

	if err := s.store.CreateRoom(ctx, room); err != nil {
		return nil, err
	}

	s.log.Info("room created",
		"room_id", room.ID,
		"owner_id", room.OwnerID,
		"visibility", room.Visibility)

	return room, nil
}

// Update applies a partial change. Flipping to private issues a fresh join
// code, flipping to public drops it.
func (s *Service) Update(ctx context.Context, caller auth.Identity, roomID uuid.UUID, req UpdateRoomRequest) (*Room, error) {
	room, err := s.ownedRoom(ctx, caller, roomID)
	if err != nil {
		return nil, err
	}

	wasPrivate := room.IsPrivate()

	if req.Name != nil {
		room.Name = strings.TrimSpace(*req.Name)
	}
	if req.Visibility != nil {
		room.Visibility = *req.Visibility
	}
	if req.Theme != nil {
		room.Theme = strings.TrimSpace(*req.Theme)
	}
	if req.MusicURL != nil {
		room.MusicURL = normalizeURL(req.MusicURL)
	}
	if req.ClearMaxUsers {
		room.MaxUsers = nil
	} else if req.MaxUsers != nil {
		room.MaxUsers = req.MaxUsers
	}

	if err := validate(room); err != nil {
		return nil, err
	}

	switch {
	case room.IsPrivate() && !wasPrivate:
		code, err := s.genCode()
		if err != nil {
			return nil, err
		}
		room.JoinCode = code
	case !room.IsPrivate():
		room.JoinCode = ""
	}

	if err := s.store.UpdateRoom(ctx, room); err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, event.Invalidation{RoomID: room.ID, Topic: event.TopicRoom})

	s.log.Info("room updated",
		"room_id", room.ID,
		"visibility", room.Visibility)

	return room, nil
}

// Delete archives the room's chat and removes the room with its presence rows.
func (s *Service) Delete(ctx context.Context, caller auth.Identity, roomID uuid.UUID) error {
	room, err := s.ownedRoom(ctx, caller, roomID)
	if err != nil {
		return err
	}

	if s.archiver != nil {
		if err := s.archiver.ArchiveRoom(ctx, room); err != nil {
			return fmt.Errorf("archive room: %w", err)
		}
	}

	if err := s.store.DeleteRoom(ctx, roomID); err != nil {
		return err
	}

	s.notifier.Notify(ctx, event.Invalidation{RoomID: roomID, Topic: event.TopicRoom})

	s.log.Info("room deleted",
		"room_id", roomID,
		"deleted_by", caller.UserID)

	return nil
}

func (s *Service) ownedRoom(ctx context.Context, caller auth.Identity, roomID uuid.UUID) (*Room, error) {
	if !caller.Authenticated() {
		return nil, apperr.ErrNotAuthenticated
	}

	room, err := s.store.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if room.OwnerID != caller.UserID {
		return nil, apperr.New(apperr.ErrNotAuthorized, "only the room owner can do this")
	}
	return room, nil
}

func validate(r *Room) error {
	n := utf8.RuneCountInString(r.Name)
	if n == 0 {
		return apperr.Validation("name is required")
	}
	if n > maxNameLen {
		return apperr.Validation("name must be at most %d characters", maxNameLen)
	}
	if !r.Visibility.Valid() {
		return apperr.Validation("visibility must be public or private")
	}
	if r.Theme == "" {
		return apperr.Validation("theme is required")
	}
	if r.MaxUsers != nil && *r.MaxUsers < 1 {
		return apperr.Validation("max_users must be at least 1")
	}
	return nil
}

func normalizeURL(u *string) *string {
	if u == nil {
		return nil
	}
	v := strings.TrimSpace(*u)
	if v == "" {
		return nil
	}
	return &v
}
