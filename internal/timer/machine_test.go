package timer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tickN(m *Machine, n int) []Result {
	out := make([]Result, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, m.Tick())
	}
	return out
}

func sessions(res Result) []Session {
	var out []Session
	for _, c := range res.Commands {
		if c.Kind == CmdSaveSession {
			out = append(out, c.Session)
		}
	}
	return out
}

func TestStart_FromIdle(t *testing.T) {
	m := New(Default(), "")

	res, err := m.Start()
	require.NoError(t, err)
	require.Len(t, res.Commands, 1)
	assert.Equal(t, CmdUpdateTimer, res.Commands[0].Kind)
	assert.Equal(t, StateRunning, res.Commands[0].Timer.State)
	assert.Equal(t, PomodoroSeconds, m.InitialTime())
	assert.Equal(t, int64(1), m.Snapshot().Version)

	_, err = m.Start()
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStart_ZeroTimeLeftResetsToNominal(t *testing.T) {
	m := New(Snapshot{State: StateIdle, Type: TypeShortBreak, TimeLeft: 0}, "")

	_, err := m.Start()
	require.NoError(t, err)
	assert.Equal(t, ShortBreakSeconds, m.Snapshot().TimeLeft)
	assert.Equal(t, ShortBreakSeconds, m.InitialTime())
}

func TestPauseResume_KeepsTimeLeft(t *testing.T) {
	m := New(Default(), "")
	_, _ = m.Start()
	tickN(m, 10)

	_, err := m.Pause()
	require.NoError(t, err)
	assert.Empty(t, m.Tick().Commands, "paused timer must not tick")
	assert.Equal(t, PomodoroSeconds-10, m.Snapshot().TimeLeft)

	_, err = m.Resume()
	require.NoError(t, err)
	assert.Equal(t, StateRunning, m.Snapshot().State)
	assert.Equal(t, PomodoroSeconds-10, m.Snapshot().TimeLeft)

	_, err = m.Resume()
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestStop_LogsPartialCredit(t *testing.T) {
	m := New(Default(), "write report")
	_, _ = m.Start()
	tickN(m, 400)
	require.Equal(t, 1100, m.Snapshot().TimeLeft)

	res, err := m.Stop()
	require.NoError(t, err)

	require.Len(t, res.Commands, 2)
	assert.Equal(t, CmdUpdateTimer, res.Commands[0].Kind)
	assert.Equal(t, CmdSaveSession, res.Commands[1].Kind)
	assert.Equal(t, Session{Type: TypePomodoro, Duration: 400, Task: "write report"}, res.Commands[1].Session)

	snap := m.Snapshot()
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, PomodoroSeconds, snap.TimeLeft)
}

func TestReset_LogsNothing(t *testing.T) {
	m := New(Default(), "write report")
	_, _ = m.Start()
	tickN(m, 400)

	res, err := m.Reset()
	require.NoError(t, err)
	assert.Empty(t, sessions(res))
	assert.Equal(t, StateIdle, m.Snapshot().State)
	assert.Equal(t, PomodoroSeconds, m.Snapshot().TimeLeft)
}

func TestStop_FromPausedOrWithoutProgressLogsNothing(t *testing.T) {
	m := New(Default(), "")
	_, _ = m.Start()
	res, err := m.Stop()
	require.NoError(t, err)
	assert.Empty(t, sessions(res))

	_, _ = m.Start()
	tickN(m, 30)
	_, _ = m.Pause()
	res, err = m.Stop()
	require.NoError(t, err)
	assert.Empty(t, sessions(res))

	_, err = m.Stop()
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSetType_OnlyWhileIdle(t *testing.T) {
	m := New(Default(), "")

	res, err := m.SetType(TypeLongBreak)
	require.NoError(t, err)
	require.Len(t, res.Commands, 1)
	assert.Equal(t, LongBreakSeconds, m.Snapshot().TimeLeft)

	_, _ = m.Start()
	_, err = m.SetType(TypePomodoro)
	assert.ErrorIs(t, err, ErrTimerActive)
	assert.Equal(t, TypeLongBreak, m.Snapshot().Type)

	_, _ = m.Pause()
	_, err = m.SetType(TypePomodoro)
	assert.ErrorIs(t, err, ErrTimerActive)
}

func TestTick_PomodoroFromCountThreeGoesToLongBreak(t *testing.T) {
	m := New(Snapshot{State: StateIdle, Type: TypePomodoro, TimeLeft: PomodoroSeconds, PomodoroCount: 3}, "deep work")
	_, _ = m.Start()

	results := tickN(m, PomodoroSeconds)
	last := results[len(results)-1]

	snap := m.Snapshot()
	assert.Equal(t, 4, snap.PomodoroCount)
	assert.Equal(t, TypeLongBreak, snap.Type)
	assert.Equal(t, StateRunning, snap.State)
	assert.Equal(t, LongBreakSeconds, snap.TimeLeft)

	require.Len(t, last.Commands, 2)
	assert.Equal(t, CmdUpdateTimer, last.Commands[0].Kind)
	assert.Equal(t, snap, last.Commands[0].Timer)
	assert.Equal(t, Session{Type: TypePomodoro, Duration: PomodoroSeconds, Task: "deep work"}, last.Commands[1].Session)
	assert.NotEmpty(t, last.Notice)

	for _, r := range results[:len(results)-1] {
		assert.Empty(t, sessions(r))
	}
}

func TestTick_PomodoroFromCountZeroGoesToShortBreak(t *testing.T) {
	m := New(Default(), "")
	_, _ = m.Start()
	tickN(m, PomodoroSeconds)

	snap := m.Snapshot()
	assert.Equal(t, 1, snap.PomodoroCount)
	assert.Equal(t, TypeShortBreak, snap.Type)
	assert.Equal(t, StateRunning, snap.State)
}

func TestTick_BreakReturnsToIdlePomodoro(t *testing.T) {
	m := New(Snapshot{State: StateIdle, Type: TypeShortBreak, TimeLeft: ShortBreakSeconds, PomodoroCount: 1}, "")
	_, _ = m.Start()

	results := tickN(m, ShortBreakSeconds)
	last := results[len(results)-1]

	snap := m.Snapshot()
	assert.Equal(t, TypePomodoro, snap.Type)
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, PomodoroSeconds, snap.TimeLeft)
	assert.Equal(t, 1, snap.PomodoroCount)
	assert.Equal(t, []Session{{Type: TypeShortBreak, Duration: ShortBreakSeconds}}, sessions(last))

	assert.Empty(t, m.Tick().Commands, "idle pomodoro must not auto-start")
}

func TestTick_NeverNegative(t *testing.T) {
	m := New(Snapshot{State: StateRunning, Type: TypePomodoro, TimeLeft: 0}, "")
	assert.Empty(t, m.Tick().Commands)
	assert.Equal(t, 0, m.Snapshot().TimeLeft)
}

func TestReconcile_AdoptsOnlyNewerVersions(t *testing.T) {
	m := New(Default(), "")
	_, _ = m.Start()
	tickN(m, 5) // version 6

	older := Snapshot{State: StateIdle, Type: TypePomodoro, TimeLeft: PomodoroSeconds, Version: 6}
	assert.False(t, m.Reconcile(older))
	assert.Equal(t, StateRunning, m.Snapshot().State)

	newer := Snapshot{State: StatePaused, Type: TypeShortBreak, TimeLeft: 120, PomodoroCount: 2, Version: 9}
	assert.True(t, m.Reconcile(newer))
	assert.Equal(t, newer, m.Snapshot())
	assert.Equal(t, ShortBreakSeconds, m.InitialTime())

	res, err := m.Resume()
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.Commands[0].Timer.Version)
}

func TestRestore_IsUnconditional(t *testing.T) {
	m := New(Default(), "")
	_, _ = m.Start()
	tickN(m, 20)

	m.Restore(Snapshot{State: StateIdle, Type: TypePomodoro, TimeLeft: 900, Version: 1})
	assert.Equal(t, int64(1), m.Snapshot().Version)
	assert.Equal(t, 900, m.InitialTime())
}

func TestNew_NormalizesLegacySnapshot(t *testing.T) {
	m := New(Snapshot{TimeLeft: -3}, "")
	snap := m.Snapshot()
	assert.Equal(t, TypePomodoro, snap.Type)
	assert.Equal(t, StateIdle, snap.State)
	assert.Equal(t, 0, snap.TimeLeft)
}
