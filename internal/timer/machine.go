// Package timer holds the per-participant countdown state machine.
//
// A Machine is owned by one room session. Its only inputs are user controls,
// the once-per-second Tick and server snapshots handed to Reconcile. Every
// transition returns the Commands the caller must persist; the machine itself
// never does I/O.
package timer

import "errors"

var (
	ErrInvalidTransition = errors.New("timer: invalid transition")
	ErrTimerActive       = errors.New("stop the timer before changing type")
)

type CommandKind int

const (
	CmdUpdateTimer CommandKind = iota + 1
	CmdSaveSession
)

func (k CommandKind) String() string {
	switch k {
	case CmdUpdateTimer:
		return "update_timer"
	case CmdSaveSession:
		return "save_session"
	}
	return "unknown"
}

// Session is a completed (or stopped early) run to append to the log.
type Session struct {
	Type     Type
	Duration int
	Task     string
}

type Command struct {
	Kind    CommandKind
	Timer   Snapshot
	Session Session
}

// Result of a transition. Commands are ordered: a timer write always comes
// before the session it produced, so a rejected write can drop the session.
type Result struct {
	Commands []Command
	Notice   string
}

type Machine struct {
	snap        Snapshot
	initialTime int
	task        string
}

func New(s Snapshot, task string) *Machine {
	m := &Machine{}
	m.adopt(s)
	m.task = task
	return m
}

func (m *Machine) Snapshot() Snapshot {
	return m.snap
}

// InitialTime is the timeLeft the current run started from.
func (m *Machine) InitialTime() int {
	return m.initialTime
}

func (m *Machine) Task() string {
	return m.task
}

// SetTask changes the task text attached to future sessions.
func (m *Machine) SetTask(task string) {
	m.task = task
}

func (m *Machine) Start() (Result, error) {
	if m.snap.State != StateIdle {
		return Result{}, ErrInvalidTransition
	}
	if m.snap.TimeLeft == 0 {
		m.snap.TimeLeft = m.snap.Type.Duration()
	}
	m.initialTime = m.snap.TimeLeft
	m.snap.State = StateRunning
	return m.commit(), nil
}

func (m *Machine) Pause() (Result, error) {
	if m.snap.State != StateRunning {
		return Result{}, ErrInvalidTransition
	}
	m.snap.State = StatePaused
	return m.commit(), nil
}

func (m *Machine) Resume() (Result, error) {
	if m.snap.State != StatePaused {
		return Result{}, ErrInvalidTransition
	}
	m.snap.State = StateRunning
	return m.commit(), nil
}

// Stop ends the run. A running timer with progress logs the elapsed part.
func (m *Machine) Stop() (Result, error) {
	if m.snap.State == StateIdle {
		return Result{}, ErrInvalidTransition
	}

	elapsed := m.initialTime - m.snap.TimeLeft
	wasRunning := m.snap.State == StateRunning

	m.toIdle(m.snap.Type)
	res := m.commit()

	if wasRunning && elapsed > 0 {
		res.Commands = append(res.Commands, m.session(m.snap.Type, elapsed))
	}
	return res, nil
}

// Reset is Stop without logging.
func (m *Machine) Reset() (Result, error) {
	if m.snap.State == StateIdle {
		return Result{}, ErrInvalidTransition
	}
	m.toIdle(m.snap.Type)
	return m.commit(), nil
}

func (m *Machine) SetType(t Type) (Result, error) {
	if !t.Valid() {
		return Result{}, ErrInvalidTransition
	}
	if m.snap.State != StateIdle {
		return Result{}, ErrTimerActive
	}
	m.toIdle(t)
	return m.commit(), nil
}

// Tick advances a running timer by one second. Reaching zero logs the full
// nominal duration and moves to the next block of the cycle.
func (m *Machine) Tick() Result {
	if m.snap.State != StateRunning || m.snap.TimeLeft == 0 {
		return Result{}
	}

	m.snap.TimeLeft--
	if m.snap.TimeLeft > 0 {
		return m.commit()
	}

	finished := m.snap.Type
	var notice string

	if finished == TypePomodoro {
		m.snap.PomodoroCount++
		next := TypeShortBreak
		notice = "Pomodoro completed! Time for a short break"
		if m.snap.PomodoroCount%LongBreakEvery == 0 {
			next = TypeLongBreak
			notice = "Pomodoro completed! Time for a long break"
		}
		m.snap.Type = next
		m.snap.TimeLeft = next.Duration()
		m.initialTime = m.snap.TimeLeft
		m.snap.State = StateRunning
	} else {
		m.toIdle(TypePomodoro)
		notice = "Break completed! Ready for next pomodoro"
	}

	res := m.commit()
	res.Commands = append(res.Commands, m.session(finished, finished.Duration()))
	res.Notice = notice
	return res
}

// Reconcile adopts the server copy when it carries a newer version, which
// means another client of the same user has taken control.
func (m *Machine) Reconcile(server Snapshot) bool {
	if server.Version <= m.snap.Version {
		return false
	}
	m.adopt(server)
	return true
}

// Restore adopts the server copy unconditionally.
func (m *Machine) Restore(server Snapshot) {
	m.adopt(server)
}

func (m *Machine) adopt(s Snapshot) {
	if !s.Type.Valid() {
		s.Type = TypePomodoro
	}
	if !s.State.Valid() {
		s.State = StateIdle
	}
	if s.TimeLeft < 0 {
		s.TimeLeft = 0
	}
	m.snap = s
	if s.State == StateIdle {
		m.initialTime = s.TimeLeft
	} else {
		m.initialTime = s.Type.Duration()
	}
}

func (m *Machine) toIdle(t Type) {
	m.snap.Type = t
	m.snap.State = StateIdle
	m.snap.TimeLeft = t.Duration()
	m.initialTime = m.snap.TimeLeft
}

func (m *Machine) commit() Result {
	m.snap.Version++
	return Result{Commands: []Command{{Kind: CmdUpdateTimer, Timer: m.snap}}}
}

func (m *Machine) session(t Type, duration int) Command {
	return Command{
		Kind:    CmdSaveSession,
		Session: Session{Type: t, Duration: duration, Task: m.task},
	}
}
