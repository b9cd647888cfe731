package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"
	"github.com/rx3lixir/focus_rooms/internal/chat"
	"github.com/rx3lixir/focus_rooms/internal/participant"
	"github.com/rx3lixir/focus_rooms/internal/room"
	"github.com/rx3lixir/focus_rooms/internal/session"
	"github.com/rx3lixir/focus_rooms/internal/timer"
	"github.com/rx3lixir/focus_rooms/internal/user"
)

func roomPath(roomID uuid.UUID, suffix string) string {
	return "/api/rooms/" + roomID.String() + suffix
}

// Signin exchanges credentials for tokens and keeps the access token.
func (c *Client) Signin(ctx context.Context, email, password string) (*user.AuthResponse, error) {
	resp := new(user.AuthResponse)
	err := c.do(ctx, http.MethodPost, "/api/auth/signin", user.SigninRequest{Email: email, Password: password}, resp)
	if err != nil {
		return nil, err
	}
	c.SetToken(resp.AccessToken)
	return resp, nil
}

// Signup registers a user and keeps the access token.
func (c *Client) Signup(ctx context.Context, req user.SignupRequest) (*user.AuthResponse, error) {
	resp := new(user.AuthResponse)
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", req, resp); err != nil {
		return nil, err
	}
	c.SetToken(resp.AccessToken)
	return resp, nil
}

func (c *Client) Me(ctx context.Context) (*user.UserResponse, error) {
	resp := new(user.UserResponse)
	return resp, c.do(ctx, http.MethodGet, "/api/users/me", nil, resp)
}

func (c *Client) ListRooms(ctx context.Context) ([]*room.Room, error) {
	resp := new(room.ListRoomsResponse)
	if err := c.do(ctx, http.MethodGet, "/api/rooms", nil, resp); err != nil {
		return nil, err
	}
	return resp.Rooms, nil
}

func (c *Client) GetRoom(ctx context.Context, roomID uuid.UUID) (*room.Room, error) {
	resp := new(room.Room)
	return resp, c.do(ctx, http.MethodGet, roomPath(roomID, ""), nil, resp)
}

func (c *Client) CreateRoom(ctx context.Context, req room.CreateRoomRequest) (*room.Room, error) {
	resp := new(room.Room)
	return resp, c.do(ctx, http.MethodPost, "/api/rooms", req, resp)
}

func (c *Client) Join(ctx context.Context, roomID uuid.UUID, req participant.JoinRequest) (*participant.JoinResponse, error) {
	resp := new(participant.JoinResponse)
	return resp, c.do(ctx, http.MethodPost, roomPath(roomID, "/join"), req, resp)
}

func (c *Client) Leave(ctx context.Context, roomID uuid.UUID) error {
	return c.do(ctx, http.MethodPost, roomPath(roomID, "/leave"), nil, nil)
}

func (c *Client) Participants(ctx context.Context, roomID uuid.UUID) ([]participant.View, error) {
	resp := new(participant.ListResponse)
	if err := c.do(ctx, http.MethodGet, roomPath(roomID, "/participants"), nil, resp); err != nil {
		return nil, err
	}
	return resp.Participants, nil
}

func (c *Client) MyParticipant(ctx context.Context, roomID uuid.UUID) (*participant.View, error) {
	resp := new(participant.View)
	return resp, c.do(ctx, http.MethodGet, roomPath(roomID, "/participants/me"), nil, resp)
}

func (c *Client) UpdatePosition(ctx context.Context, roomID uuid.UUID, x, y float64) error {
	return c.do(ctx, http.MethodPut, roomPath(roomID, "/participants/me/position"), participant.PositionRequest{X: x, Y: y}, nil)
}

func (c *Client) UpdateTask(ctx context.Context, roomID uuid.UUID, task string) error {
	return c.do(ctx, http.MethodPut, roomPath(roomID, "/participants/me/task"), participant.TaskRequest{Task: task}, nil)
}

// UpdateTimer writes the full snapshot, version included.
func (c *Client) UpdateTimer(ctx context.Context, roomID uuid.UUID, snap timer.Snapshot) (timer.Snapshot, error) {
	req := participant.TimerRequest{
		TimerState:    snap.State,
		TimerType:     &snap.Type,
		TimeLeft:      snap.TimeLeft,
		PomodoroCount: &snap.PomodoroCount,
		Version:       &snap.Version,
	}

	var stored timer.Snapshot
	err := c.do(ctx, http.MethodPut, roomPath(roomID, "/participants/me/timer"), req, &stored)
	return stored, err
}

func (c *Client) SaveSession(ctx context.Context, roomID uuid.UUID, req session.SaveRequest) (*session.Session, error) {
	resp := new(session.Session)
	return resp, c.do(ctx, http.MethodPost, roomPath(roomID, "/sessions"), req, resp)
}

func (c *Client) MySessions(ctx context.Context, roomID uuid.UUID) ([]*session.Session, error) {
	resp := new(session.ListSessionsResponse)
	if err := c.do(ctx, http.MethodGet, roomPath(roomID, "/sessions/me"), nil, resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

func (c *Client) RoomLeaderboard(ctx context.Context, roomID uuid.UUID) ([]session.Entry, error) {
	resp := new(session.LeaderboardResponse)
	if err := c.do(ctx, http.MethodGet, roomPath(roomID, "/leaderboard"), nil, resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

func (c *Client) GlobalLeaderboard(ctx context.Context, period session.Period) ([]session.Entry, error) {
	resp := new(session.LeaderboardResponse)
	path := "/api/leaderboard?period=" + url.QueryEscape(string(period))
	if err := c.do(ctx, http.MethodGet, path, nil, resp); err != nil {
		return nil, err
	}
	return resp.Entries, nil
}

func (c *Client) UpdateCursor(ctx context.Context, roomID uuid.UUID, req chat.CursorRequest) error {
	return c.do(ctx, http.MethodPut, roomPath(roomID, "/cursors/me"), req, nil)
}

func (c *Client) RemoveCursor(ctx context.Context, roomID uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, roomPath(roomID, "/cursors/me"), nil, nil)
}

func (c *Client) SendChat(ctx context.Context, roomID uuid.UUID, req chat.MessageRequest) (*chat.Message, error) {
	resp := new(chat.Message)
	return resp, c.do(ctx, http.MethodPost, roomPath(roomID, "/chat"), req, resp)
}

func (c *Client) Messages(ctx context.Context, roomID uuid.UUID) ([]*chat.Message, error) {
	resp := new(chat.MessagesResponse)
	if err := c.do(ctx, http.MethodGet, roomPath(roomID, "/chat"), nil, resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}
