package timer

import "fmt"

type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
)

func (s State) Valid() bool {
	switch s {
	case StateIdle, StateRunning, StatePaused:
		return true
	}
	return false
}

type Type string

const (
	TypePomodoro   Type = "pomodoro"
	TypeShortBreak Type = "shortBreak"
	TypeLongBreak  Type = "longBreak"
)

// Nominal lengths in seconds.
const (
	PomodoroSeconds   = 1500
	ShortBreakSeconds = 300
	LongBreakSeconds  = 900

	// MaxSeconds bounds any stored time left or session length.
	MaxSeconds = PomodoroSeconds
)

// LongBreakEvery is how many completed pomodoros earn a long break.
const LongBreakEvery = 4

func (t Type) Valid() bool {
	switch t {
	case TypePomodoro, TypeShortBreak, TypeLongBreak:
		return true
	}
	return false
}

func (t Type) IsBreak() bool {
	return t == TypeShortBreak || t == TypeLongBreak
}

// Duration returns the nominal length of the timer type in seconds.
func (t Type) Duration() int {
	switch t {
	case TypeShortBreak:
		return ShortBreakSeconds
	case TypeLongBreak:
		return LongBreakSeconds
	default:
		return PomodoroSeconds
	}
}

func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown timer type %q", s)
	}
	return t, nil
}

// Snapshot is the part of the timer that is stored on the server.
type Snapshot struct {
	State         State `json:"timer_state"`
	Type          Type  `json:"timer_type"`
	TimeLeft      int   `json:"time_left"`
	PomodoroCount int   `json:"pomodoro_count"`
	Version       int64 `json:"timer_version"`
}

// Default is the timer of a freshly joined participant.
func Default() Snapshot {
	return Snapshot{
		State:    StateIdle,
		Type:     TypePomodoro,
		TimeLeft: PomodoroSeconds,
	}
}
