package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rx3lixir/focus_rooms/internal/apperr"
	"github.com/rx3lixir/focus_rooms/internal/auth"
	"github.com/rx3lixir/focus_rooms/internal/event"
	"github.com/rx3lixir/focus_rooms/internal/participant"
	"github.com/rx3lixir/focus_rooms/internal/timer"
	"github.com/rx3lixir/focus_rooms/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu       sync.Mutex
	sessions []*Session
}

func (m *memStore) CreateSession(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = uuid.New()
	cp := *s
	m.sessions = append(m.sessions, &cp)
	return nil
}

func (m *memStore) filter(keep func(*Session) bool, desc bool) []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*Session{}
	for _, s := range m.sessions {
		if keep(s) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if desc {
			return out[i].CompletedAt.After(out[j].CompletedAt)
		}
		return out[i].CompletedAt.Before(out[j].CompletedAt)
	})
	return out
}

func (m *memStore) ListRoomSessions(_ context.Context, roomID uuid.UUID) ([]*Session, error) {
	return m.filter(func(s *Session) bool { return s.RoomID == roomID }, false), nil
}

func (m *memStore) ListSessionsSince(_ context.Context, since time.Time) ([]*Session, error) {
	return m.filter(func(s *Session) bool { return !s.CompletedAt.Before(since) }, false), nil
}

func (m *memStore) ListUserSessions(_ context.Context, roomID, userID uuid.UUID) ([]*Session, error) {
	return m.filter(func(s *Session) bool { return s.RoomID == roomID && s.UserID == userID }, true), nil
}

type participants map[uuid.UUID]*participant.Participant

func (p participants) GetParticipant(_ context.Context, _, userID uuid.UUID) (*participant.Participant, error) {
	row, ok := p[userID]
	if !ok {
		return nil, apperr.NotFound("participant")
	}
	return row, nil
}

type fixture struct {
	svc      *Service
	store    *memStore
	rows     participants
	recorder *event.Recorder
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    &memStore{},
		rows:     participants{},
		recorder: &event.Recorder{},
		now:      time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.store, f.rows, f.recorder, logger.Discard(), time.UTC)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func TestSave_UsesParticipantDisplayFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	roomID := uuid.New()
	ann := auth.Identity{UserID: uuid.New(), Name: "ann", AvatarURL: "https://a/id.png"}
	f.rows[ann.UserID] = &participant.Participant{UserName: "Annie", UserInitial: "Z", UserAvatarURL: "https://a/row.png"}

	s, err := f.svc.Save(ctx, ann, roomID, SaveRequest{TimerType: timer.TypePomodoro, Duration: 400, Task: " report "})
	require.NoError(t, err)
	assert.Equal(t, "Annie", s.UserName)
	assert.Equal(t, "Z", s.UserInitial)
	assert.Equal(t, "https://a/row.png", s.UserAvatarURL)
	assert.Equal(t, "report", s.Task)
	assert.Equal(t, f.now, s.CompletedAt)
	assert.Equal(t, []event.Topic{event.TopicSessions}, f.recorder.Topics(roomID))
}

func TestSave_FallsBackToIdentity(t *testing.T) {
	f := newFixture(t)
	bob := auth.Identity{UserID: uuid.New(), Name: "bob"}

	s, err := f.svc.Save(context.Background(), bob, uuid.New(), SaveRequest{TimerType: timer.TypeShortBreak, Duration: 300})
	require.NoError(t, err)
	assert.Equal(t, "bob", s.UserName)
	assert.Equal(t, "B", s.UserInitial)
}

func TestSave_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ann := auth.Identity{UserID: uuid.New(), Name: "ann"}

	_, err := f.svc.Save(ctx, auth.Identity{}, uuid.New(), SaveRequest{TimerType: timer.TypePomodoro})
	assert.ErrorIs(t, err, apperr.ErrNotAuthenticated)

	_, err = f.svc.Save(ctx, ann, uuid.New(), SaveRequest{TimerType: timer.TypePomodoro, Duration: -1})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Save(ctx, ann, uuid.New(), SaveRequest{TimerType: timer.TypePomodoro, Duration: timer.MaxSeconds + 1})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Save(ctx, ann, uuid.New(), SaveRequest{TimerType: timer.TypePomodoro, Duration: 1 << 31})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.svc.Save(ctx, ann, uuid.New(), SaveRequest{TimerType: "nap", Duration: 1})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	// Zero-length runs are still recorded.
	_, err = f.svc.Save(ctx, ann, uuid.New(), SaveRequest{TimerType: timer.TypePomodoro, Duration: 0})
	assert.NoError(t, err)
}

func TestGlobalLeaderboard_PeriodFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ann := auth.Identity{UserID: uuid.New(), Name: "ann"}
	bob := auth.Identity{UserID: uuid.New(), Name: "bob"}
	roomID := uuid.New()

	// bob's session was yesterday, ann's this morning.
	f.now = time.Date(2026, 3, 13, 22, 0, 0, 0, time.UTC)
	_, err := f.svc.Save(ctx, bob, roomID, SaveRequest{TimerType: timer.TypePomodoro, Duration: 1500})
	require.NoError(t, err)
	f.now = time.Date(2026, 3, 14, 7, 0, 0, 0, time.UTC)
	_, err = f.svc.Save(ctx, ann, roomID, SaveRequest{TimerType: timer.TypePomodoro, Duration: 600})
	require.NoError(t, err)
	f.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	today, err := f.svc.GlobalLeaderboard(ctx, PeriodToday)
	require.NoError(t, err)
	require.Len(t, today, 1)
	assert.Equal(t, ann.UserID, today[0].UserID)

	month, err := f.svc.GlobalLeaderboard(ctx, PeriodThisMonth)
	require.NoError(t, err)
	assert.Len(t, month, 2)

	lifetime, err := f.svc.GlobalLeaderboard(ctx, PeriodLifetime)
	require.NoError(t, err)
	require.Len(t, lifetime, 2)
	assert.Equal(t, bob.UserID, lifetime[0].UserID)

	_, err = f.svc.GlobalLeaderboard(ctx, "week")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUserSessions_NewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ann := auth.Identity{UserID: uuid.New(), Name: "ann"}
	roomID := uuid.New()

	for i, d := range []int{100, 200, 300} {
		f.now = f.now.Add(time.Duration(i+1) * time.Minute)
		_, err := f.svc.Save(ctx, ann, roomID, SaveRequest{TimerType: timer.TypePomodoro, Duration: d})
		require.NoError(t, err)
	}
	_, err := f.svc.Save(ctx, ann, uuid.New(), SaveRequest{TimerType: timer.TypePomodoro, Duration: 999})
	require.NoError(t, err)

	sessions, err := f.svc.UserSessions(ctx, ann, roomID)
	require.NoError(t, err)
	require.Len(t, sessions, 3)
	assert.Equal(t, 300, sessions[0].Duration)
	assert.Equal(t, 100, sessions[2].Duration)
}

func TestHandleGlobalLeaderboard_BadPeriod(t *testing.T) {
	f := newFixture(t)
	h := NewHandler(f.svc, logger.Discard(), time.Second)

	r := chi.NewRouter()
	r.Route("/leaderboard", h.RegisterRoutes)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leaderboard?period=forever", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_error")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/leaderboard?period=today", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
