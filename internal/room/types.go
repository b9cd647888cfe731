package room

import (
	"time"

	"github.com/google/uuid"
)

type Visibility string

const (
	Public  Visibility = "public"
	Private Visibility = "private"
)

func (v Visibility) Valid() bool {
	return v == Public || v == Private
}

type Room struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	OwnerID    uuid.UUID  `json:"owner_id"`
	Visibility Visibility `json:"visibility"`
	JoinCode   string     `json:"join_code,omitempty"`
	Theme      string     `json:"theme"`
	MusicURL   *string    `json:"music_url,omitempty"`
	MaxUsers   *int       `json:"max_users,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (r *Room) IsPrivate() bool {
	return r.Visibility == Private
}

// withoutCode returns a copy safe to show to callers who may not see the code.
func (r *Room) withoutCode() *Room {
	cp := *r
	cp.JoinCode = ""
	return &cp
}

type CreateRoomRequest struct {
	Name       string     `json:"name"`
	Visibility Visibility `json:"visibility"`
	Theme      string     `json:"theme"`
	MusicURL   *string    `json:"music_url,omitempty"`
	MaxUsers   *int       `json:"max_users,omitempty"`
}

// UpdateRoomRequest patches only the supplied fields. An empty music_url
// removes the music; clear_max_users removes the capacity limit.
type UpdateRoomRequest struct {
	Name          *string     `json:"name,omitempty"`
	Visibility    *Visibility `json:"visibility,omitempty"`
	Theme         *string     `json:"theme,omitempty"`
	MusicURL      *string     `json:"music_url,omitempty"`
	MaxUsers      *int        `json:"max_users,omitempty"`
	ClearMaxUsers bool        `json:"clear_max_users,omitempty"`
}

type ListRoomsResponse struct {
	Rooms []*Room `json:"rooms"`
	Count int     `json:"count"`
}
