package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/rx3lixir/focus_rooms/internal/timer"
)

// Session is one completed or stopped timer run. Sessions are append-only.
type Session struct {
	ID            uuid.UUID  `json:"id"`
	RoomID        uuid.UUID  `json:"room_id"`
	UserID        uuid.UUID  `json:"user_id"`
	UserName      string     `json:"user_name"`
	UserInitial   string     `json:"user_initial"`
	UserAvatarURL string     `json:"user_avatar_url,omitempty"`
	TimerType     timer.Type `json:"timer_type"`
	Duration      int        `json:"duration"`
	Task          string     `json:"task"`
	CompletedAt   time.Time  `json:"completed_at"`
}

type SaveRequest struct {
	TimerType timer.Type `json:"timer_type"`
	Duration  int        `json:"duration"`
	Task      string     `json:"task"`
}

// Entry is one user's line on a leaderboard.
type Entry struct {
	UserID        uuid.UUID `json:"user_id"`
	UserName      string    `json:"user_name"`
	UserInitial   string    `json:"user_initial"`
	UserAvatarURL string    `json:"user_avatar_url,omitempty"`
	TotalTime     int       `json:"total_time"`
	TotalSessions int       `json:"total_sessions"`
}

type Period string

const (
	PeriodToday     Period = "today"
	PeriodThisMonth Period = "thisMonth"
	PeriodLifetime  Period = "lifetime"
)

type LeaderboardResponse struct {
	Period  Period  `json:"period,omitempty"`
	Entries []Entry `json:"entries"`
}

type ListSessionsResponse struct {
	Sessions []*Session `json:"sessions"`
	Count    int        `json:"count"`
}
