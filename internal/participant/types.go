package participant

import (
	"time"

	"github.com/google/uuid"
	"github.com/rx3lixir/focus_rooms/internal/timer"
)

const (
	DefaultPositionX = 50.0
	DefaultPositionY = 50.0
	maxTaskLen       = 500
)

type Participant struct {
	ID            uuid.UUID
	RoomID        uuid.UUID
	UserID        uuid.UUID
	UserName      string
	UserInitial   string
	UserAvatarURL string
	PositionX     float64
	PositionY     float64
	TimerState    timer.State
	TimerType     timer.Type
	TimeLeft      int
	Task          string
	PomodoroCount int
	TimerVersion  int64
	LastSeen      time.Time
}

func (p *Participant) Timer() timer.Snapshot {
	return timer.Snapshot{
		State:         p.TimerState,
		Type:          p.TimerType,
		TimeLeft:      p.TimeLeft,
		PomodoroCount: p.PomodoroCount,
		Version:       p.TimerVersion,
	}
}

// View is what other room members get to see.
type View struct {
	UserID        uuid.UUID   `json:"user_id"`
	UserName      string      `json:"user_name"`
	UserInitial   string      `json:"user_initial"`
	UserAvatarURL string      `json:"user_avatar_url,omitempty"`
	PositionX     float64     `json:"position_x"`
	PositionY     float64     `json:"position_y"`
	TimerState    timer.State `json:"timer_state"`
	TimerType     timer.Type  `json:"timer_type"`
	TimeLeft      int         `json:"time_left"`
	Task          string      `json:"task"`
	PomodoroCount int         `json:"pomodoro_count"`
	TimerVersion  int64       `json:"timer_version"`
	LastSeen      time.Time   `json:"last_seen"`
}

func (p *Participant) View() View {
	return View{
		UserID:        p.UserID,
		UserName:      p.UserName,
		UserInitial:   p.UserInitial,
		UserAvatarURL: p.UserAvatarURL,
		PositionX:     p.PositionX,
		PositionY:     p.PositionY,
		TimerState:    p.TimerState,
		TimerType:     p.TimerType,
		TimeLeft:      p.TimeLeft,
		Task:          p.Task,
		PomodoroCount: p.PomodoroCount,
		TimerVersion:  p.TimerVersion,
		LastSeen:      p.LastSeen,
	}
}

// Timer returns the timer part of a view.
func (v View) Timer() timer.Snapshot {
	return timer.Snapshot{
		State:         v.TimerState,
		Type:          v.TimerType,
		TimeLeft:      v.TimeLeft,
		PomodoroCount: v.PomodoroCount,
		Version:       v.TimerVersion,
	}
}

type JoinRequest struct {
	JoinCode      *string `json:"join_code,omitempty"`
	UserName      string  `json:"user_name"`
	UserInitial   string  `json:"user_initial"`
	UserAvatarURL *string `json:"user_avatar_url,omitempty"`
}

type JoinResponse struct {
	Participant View `json:"participant"`
	Created     bool `json:"created"`
}

type PositionRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type TaskRequest struct {
	Task string `json:"task"`
}

// TimerRequest patches the caller's timer. Omitted optional fields keep
// their stored values. Version, when sent, must be newer than the stored one.
type TimerRequest struct {
	TimerState    timer.State `json:"timer_state"`
	TimerType     *timer.Type `json:"timer_type,omitempty"`
	TimeLeft      int         `json:"time_left"`
	PomodoroCount *int        `json:"pomodoro_count,omitempty"`
	Version       *int64      `json:"timer_version,omitempty"`
}

type ListResponse struct {
	Participants []View `json:"participants"`
	Count        int    `json:"count"`
}
