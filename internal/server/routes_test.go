package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rx3lixir/focus_rooms/internal/auth"
	"github.com/rx3lixir/focus_rooms/internal/chat"
	"github.com/rx3lixir/focus_rooms/internal/participant"
	"github.com/rx3lixir/focus_rooms/internal/room"
	"github.com/rx3lixir/focus_rooms/internal/session"
	"github.com/rx3lixir/focus_rooms/internal/user"
	"github.com/rx3lixir/focus_rooms/internal/websocket"
	"github.com/rx3lixir/focus_rooms/pkg/logger"
	"github.com/stretchr/testify/assert"
)

// newTestRouter wires every handler without stores. Only paths that fail
// before touching storage can be exercised.
func newTestRouter(health func(context.Context) error) http.Handler {
	log := logger.Discard()
	authSvc := auth.NewService("secret", time.Minute, time.Hour)

	return NewRouter(RouterConfig{
		UserHandler:        user.NewHandler(user.NewService(nil, authSvc, log), log, time.Second),
		RoomHandler:        room.NewHandler(room.NewService(nil, nil, nil, log), log, time.Second),
		ParticipantHandler: participant.NewHandler(participant.NewService(nil, nil, nil, log, 0), log, time.Second),
		SessionHandler:     session.NewHandler(session.NewService(nil, nil, nil, log, time.UTC), log, time.Second),
		ChatHandler:        chat.NewHandler(chat.NewService(nil, nil, nil, log, 0), log, time.Second),
		WSHandler:          websocket.NewHandler(websocket.NewManager(nil, log), authSvc, log),
		AuthService:        authSvc,
		RateLimiter:        NewRateLimiter(100, 100),
		AllowedOrigins:     []string{"*"},
		Health:             health,
		Log:                log,
	})
}

func TestRouter_Health(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	down := func(context.Context) error { return errors.New("db down") }
	newTestRouter(down).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_AnonymousMutationsAreRejected(t *testing.T) {
	r := newTestRouter(nil)
	roomID := "5f0c6f7e-8a43-4c0e-9b3e-0d8f3b1a2c4d"

	cases := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/api/rooms", `{"name":"x","theme":"y"}`},
		{http.MethodPost, "/api/rooms/" + roomID + "/join", `{}`},
		{http.MethodPost, "/api/rooms/" + roomID + "/leave", ``},
		{http.MethodPut, "/api/rooms/" + roomID + "/participants/me/timer", `{"timer_state":"idle","time_left":1}`},
		{http.MethodPut, "/api/rooms/" + roomID + "/participants/me/task", `{"task":"x"}`},
		{http.MethodPut, "/api/rooms/" + roomID + "/participants/me/position", `{"x":1,"y":1}`},
		{http.MethodPost, "/api/rooms/" + roomID + "/sessions", `{"timer_type":"pomodoro","duration":1}`},
		{http.MethodPut, "/api/rooms/" + roomID + "/cursors/me", `{"cursor_x":1,"cursor_y":1}`},
		{http.MethodPost, "/api/rooms/" + roomID + "/chat", `{"message":"hi"}`},
		{http.MethodGet, "/api/users/me", ``},
	}

	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code, rec.Body.String())
		})
	}
}

func TestRouter_BadRequests(t *testing.T) {
	r := newTestRouter(nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/leaderboard?period=decade", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rooms/not-a-uuid/participants", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	req.Header.Set("Authorization", "Bearer nope")
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
