package participant

import (
	"context"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rx3lixir/focus_rooms/internal/apperr"
	"github.com/rx3lixir/focus_rooms/internal/auth"
	"github.com/rx3lixir/focus_rooms/internal/event"
	"github.com/rx3lixir/focus_rooms/internal/presence"
	"github.com/rx3lixir/focus_rooms/internal/room"
	"github.com/rx3lixir/focus_rooms/internal/timer"
	"github.com/rx3lixir/focus_rooms/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type key struct{ room, user uuid.UUID }

type memStore struct {
	mu   sync.Mutex
	rows map[key]*Participant
}

func newMemStore() *memStore {
	return &memStore{rows: map[key]*Participant{}}
}

func (m *memStore) GetParticipant(_ context.Context, roomID, userID uuid.UUID) (*Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[key{roomID, userID}]
	if !ok {
		return nil, apperr.NotFound("participant")
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) ListParticipants(_ context.Context, roomID uuid.UUID) ([]*Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*Participant{}
	for k, p := range m.rows {
		if k.room == roomID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserName < out[j].UserName })
	return out, nil
}

func (m *memStore) InsertParticipant(_ context.Context, p *Participant) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key{p.RoomID, p.UserID}
	if cur, ok := m.rows[k]; ok {
		if p.LastSeen.After(cur.LastSeen) {
			cur.LastSeen = p.LastSeen
		}
		return false, nil
	}
	p.ID = uuid.New()
	cp := *p
	m.rows[k] = &cp
	return true, nil
}

func (m *memStore) Touch(_ context.Context, roomID, userID uuid.UUID, avatarURL string, now time.Time) (*Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[key{roomID, userID}]
	if !ok {
		return nil, apperr.NotFound("participant")
	}
	if now.After(p.LastSeen) {
		p.LastSeen = now
	}
	if avatarURL != "" {
		p.UserAvatarURL = avatarURL
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) DeleteParticipant(_ context.Context, roomID, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, key{roomID, userID})
	return nil
}

func (m *memStore) with(roomID, userID uuid.UUID, now time.Time, fn func(p *Participant)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[key{roomID, userID}]
	if !ok {
		return apperr.NotFound("participant")
	}
	fn(p)
	if now.After(p.LastSeen) {
		p.LastSeen = now
	}
	return nil
}

func (m *memStore) UpdatePosition(_ context.Context, roomID, userID uuid.UUID, x, y float64, now time.Time) error {
	return m.with(roomID, userID, now, func(p *Participant) { p.PositionX, p.PositionY = x, y })
}

func (m *memStore) UpdateTask(_ context.Context, roomID, userID uuid.UUID, task string, now time.Time) error {
	return m.with(roomID, userID, now, func(p *Participant) { p.Task = task })
}

func (m *memStore) UpdateTimer(_ context.Context, roomID, userID uuid.UUID, upd TimerUpdate, now time.Time) (timer.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[key{roomID, userID}]
	if !ok {
		return timer.Snapshot{}, apperr.NotFound("participant")
	}
	if upd.Version != nil && *upd.Version <= p.TimerVersion {
		return timer.Snapshot{}, staleVersion(p.Timer())
	}
	p.TimerState = upd.State
	if upd.Type != nil {
		p.TimerType = *upd.Type
	}
	p.TimeLeft = upd.TimeLeft
	if upd.PomodoroCount != nil {
		p.PomodoroCount = *upd.PomodoroCount
	}
	if upd.Version != nil {
		p.TimerVersion = *upd.Version
	} else {
		p.TimerVersion++
	}
	if now.After(p.LastSeen) {
		p.LastSeen = now
	}
	return p.Timer(), nil
}

type roomMap map[uuid.UUID]*room.Room

func (m roomMap) GetRoomByID(_ context.Context, id uuid.UUID) (*room.Room, error) {
	r, ok := m[id]
	if !ok {
		return nil, apperr.NotFound("room")
	}
	return r, nil
}

type fixture struct {
	svc      *Service
	store    *memStore
	rooms    roomMap
	recorder *event.Recorder
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    newMemStore(),
		rooms:    roomMap{},
		recorder: &event.Recorder{},
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.rooms, f.store, f.recorder, logger.Discard(), 0)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) addRoom(r *room.Room) uuid.UUID {
	r.ID = uuid.New()
	if r.Visibility == "" {
		r.Visibility = room.Public
	}
	f.rooms[r.ID] = r
	return r.ID
}

func user(name string) auth.Identity {
	return auth.Identity{UserID: uuid.New(), Name: name}
}

func ptr[T any](v T) *T { return &v }

func TestJoin_CreatesParticipantWithDefaults(t *testing.T) {
	f := newFixture(t)
	roomID := f.addRoom(&room.Room{Name: "Library"})
	ann := auth.Identity{UserID: uuid.New(), Name: "ann", AvatarURL: "https://a/ann.png"}

	resp, err := f.svc.Join(context.Background(), ann, roomID, JoinRequest{})
	require.NoError(t, err)
	assert.True(t, resp.Created)

	p := resp.Participant
	assert.Equal(t, "ann", p.UserName)
	assert.Equal(t, "A", p.UserInitial)
	assert.Equal(t, "https://a/ann.png", p.UserAvatarURL)
	assert.Equal(t, 50.0, p.PositionX)
	assert.Equal(t, 50.0, p.PositionY)
	assert.Equal(t, timer.StateIdle, p.TimerState)
	assert.Equal(t, timer.TypePomodoro, p.TimerType)
	assert.Equal(t, 1500, p.TimeLeft)
	assert.Zero(t, p.PomodoroCount)
	assert.Zero(t, p.TimerVersion)
	assert.Equal(t, []event.Topic{event.TopicParticipants}, f.recorder.Topics(roomID))
}

func TestJoin_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Join(ctx, auth.Identity{}, uuid.New(), JoinRequest{})
	assert.ErrorIs(t, err, apperr.ErrNotAuthenticated)

	_, err = f.svc.Join(ctx, user("ann"), uuid.New(), JoinRequest{})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestJoin_PrivateRoomCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID := f.addRoom(&room.Room{Name: "Secret", Visibility: room.Private, JoinCode: "AB23CD"})
	ann := user("ann")

	_, err := f.svc.Join(ctx, ann, roomID, JoinRequest{})
	assert.ErrorIs(t, err, apperr.ErrInvalidJoinCode)

	_, err = f.svc.Join(ctx, ann, roomID, JoinRequest{JoinCode: ptr("ab23cd")})
	assert.ErrorIs(t, err, apperr.ErrInvalidJoinCode, "code comparison is case-sensitive")

	resp, err := f.svc.Join(ctx, ann, roomID, JoinRequest{JoinCode: ptr("AB23CD")})
	require.NoError(t, err)
	assert.True(t, resp.Created)

	// Heartbeats never re-check the code.
	resp, err = f.svc.Join(ctx, ann, roomID, JoinRequest{})
	require.NoError(t, err)
	assert.False(t, resp.Created)
}

func TestJoin_CapacityCountsOnlyActiveParticipants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID := f.addRoom(&room.Room{Name: "Small", MaxUsers: ptr(2)})

	ann, bob, cat := user("ann"), user("bob"), user("cat")
	_, err := f.svc.Join(ctx, ann, roomID, JoinRequest{})
	require.NoError(t, err)
	_, err = f.svc.Join(ctx, bob, roomID, JoinRequest{})
	require.NoError(t, err)

	_, err = f.svc.Join(ctx, cat, roomID, JoinRequest{})
	assert.ErrorIs(t, err, apperr.ErrRoomFull)

	// Existing members heartbeat through a full room.
	_, err = f.svc.Join(ctx, ann, roomID, JoinRequest{})
	require.NoError(t, err)

	// Exactly one window later bob's row is stale and no longer counts.
	f.now = f.now.Add(presence.ParticipantWindow)
	_, err = f.svc.Join(ctx, ann, roomID, JoinRequest{})
	require.NoError(t, err)
	resp, err := f.svc.Join(ctx, cat, roomID, JoinRequest{})
	require.NoError(t, err)
	assert.True(t, resp.Created)
}

func TestJoin_CapacityCheckedBeforeJoinCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID := f.addRoom(&room.Room{Name: "Tiny", Visibility: room.Private, JoinCode: "XYZ234", MaxUsers: ptr(1)})

	_, err := f.svc.Join(ctx, user("ann"), roomID, JoinRequest{JoinCode: ptr("XYZ234")})
	require.NoError(t, err)

	_, err = f.svc.Join(ctx, user("bob"), roomID, JoinRequest{JoinCode: ptr("wrong")})
	assert.ErrorIs(t, err, apperr.ErrRoomFull)
}

func TestJoin_HeartbeatKeepsAvatarUnlessReplaced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID := f.addRoom(&room.Room{Name: "Library"})
	ann := user("ann")

	_, err := f.svc.Join(ctx, ann, roomID, JoinRequest{UserAvatarURL: ptr("https://a/1.png")})
	require.NoError(t, err)

	f.now = f.now.Add(10 * time.Second)
	resp, err := f.svc.Join(ctx, ann, roomID, JoinRequest{UserAvatarURL: ptr("")})
	require.NoError(t, err)
	assert.Equal(t, "https://a/1.png", resp.Participant.UserAvatarURL)
	assert.Equal(t, f.now, resp.Participant.LastSeen)

	resp, err = f.svc.Join(ctx, ann, roomID, JoinRequest{UserAvatarURL: ptr("https://a/2.png")})
	require.NoError(t, err)
	assert.Equal(t, "https://a/2.png", resp.Participant.UserAvatarURL)
}

func TestLeave_IsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID := f.addRoom(&room.Room{Name: "Library"})
	ann := user("ann")

	_, err := f.svc.Join(ctx, ann, roomID, JoinRequest{})
	require.NoError(t, err)

	require.NoError(t, f.svc.Leave(ctx, ann, roomID))
	require.NoError(t, f.svc.Leave(ctx, ann, roomID))

	views, err := f.svc.List(ctx, roomID)
	require.NoError(t, err)
	assert.Empty(t, views)

	assert.ErrorIs(t, f.svc.Leave(ctx, auth.Identity{}, roomID), apperr.ErrNotAuthenticated)
}

func TestList_FiltersStaleParticipants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID := f.addRoom(&room.Room{Name: "Library"})
	ann, bob := user("ann"), user("bob")

	_, err := f.svc.Join(ctx, ann, roomID, JoinRequest{})
	require.NoError(t, err)
	f.now = f.now.Add(20 * time.Second)
	_, err = f.svc.Join(ctx, bob, roomID, JoinRequest{})
	require.NoError(t, err)

	f.now = f.now.Add(10*time.Second - time.Millisecond)
	views, err := f.svc.List(ctx, roomID)
	require.NoError(t, err)
	assert.Len(t, views, 2)

	f.now = f.now.Add(time.Millisecond)
	views, err = f.svc.List(ctx, roomID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "bob", views[0].UserName)
}

func TestUpdatePosition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID := f.addRoom(&room.Room{Name: "Library"})
	ann := user("ann")

	err := f.svc.UpdatePosition(ctx, ann, roomID, PositionRequest{X: 10, Y: 10})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Join(ctx, ann, roomID, JoinRequest{})
	require.NoError(t, err)

	// Out-of-range values are stored as sent.
	require.NoError(t, f.svc.UpdatePosition(ctx, ann, roomID, PositionRequest{X: 120, Y: -3}))
	p, err := f.svc.Get(ctx, ann, roomID)
	require.NoError(t, err)
	assert.Equal(t, 120.0, p.PositionX)
	assert.Equal(t, -3.0, p.PositionY)

	err = f.svc.UpdatePosition(ctx, ann, roomID, PositionRequest{X: math.NaN(), Y: 1})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUpdateTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID := f.addRoom(&room.Room{Name: "Library"})
	ann := user("ann")

	assert.ErrorIs(t, f.svc.UpdateTask(ctx, ann, roomID, TaskRequest{Task: "x"}), apperr.ErrNotFound)

	_, err := f.svc.Join(ctx, ann, roomID, JoinRequest{})
	require.NoError(t, err)
	require.NoError(t, f.svc.UpdateTask(ctx, ann, roomID, TaskRequest{Task: "write report"}))

	p, err := f.svc.Get(ctx, ann, roomID)
	require.NoError(t, err)
	assert.Equal(t, "write report", p.Task)
}

func TestUpdateTimer_Versioning(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID := f.addRoom(&room.Room{Name: "Library"})
	ann := user("ann")

	_, err := f.svc.Join(ctx, ann, roomID, JoinRequest{})
	require.NoError(t, err)

	snap, err := f.svc.UpdateTimer(ctx, ann, roomID, TimerRequest{
		TimerState: timer.StateRunning,
		TimeLeft:   1499,
		Version:    ptr(int64(3)),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), snap.Version)
	assert.Equal(t, timer.TypePomodoro, snap.Type, "omitted type keeps the stored one")

	_, err = f.svc.UpdateTimer(ctx, ann, roomID, TimerRequest{
		TimerState: timer.StatePaused,
		TimeLeft:   1400,
		Version:    ptr(int64(3)),
	})
	require.ErrorIs(t, err, apperr.ErrStaleTimerVersion)

	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	current, ok := appErr.Data.(timer.Snapshot)
	require.True(t, ok)
	assert.Equal(t, timer.StateRunning, current.State)
	assert.Equal(t, 1499, current.TimeLeft)

	// No version means stored + 1.
	snap, err = f.svc.UpdateTimer(ctx, ann, roomID, TimerRequest{
		TimerState:    timer.StateIdle,
		TimerType:     ptr(timer.TypeShortBreak),
		TimeLeft:      300,
		PomodoroCount: ptr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), snap.Version)
	assert.Equal(t, timer.TypeShortBreak, snap.Type)
	assert.Equal(t, 1, snap.PomodoroCount)
}

func TestUpdateTimer_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID := f.addRoom(&room.Room{Name: "Library"})
	ann := user("ann")
	_, err := f.svc.Join(ctx, ann, roomID, JoinRequest{})
	require.NoError(t, err)

	cases := map[string]TimerRequest{
		"bad state":      {TimerState: "ticking", TimeLeft: 1},
		"bad type":       {TimerState: timer.StateIdle, TimerType: ptr(timer.Type("nap")), TimeLeft: 1},
		"negative time":  {TimerState: timer.StateIdle, TimeLeft: -1},
		"negative count": {TimerState: timer.StateIdle, TimeLeft: 1, PomodoroCount: ptr(-1)},
		"time too long":  {TimerState: timer.StatePaused, TimeLeft: timer.MaxSeconds + 1},
		"int32 overflow": {TimerState: timer.StatePaused, TimeLeft: 1 << 31},
		"count overflow": {TimerState: timer.StateIdle, TimeLeft: 1, PomodoroCount: ptr(1 << 31)},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.UpdateTimer(ctx, ann, roomID, req)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}

	_, err = f.svc.UpdateTimer(ctx, user("bob"), roomID, TimerRequest{TimerState: timer.StateIdle})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
