package session

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rx3lixir/focus_rooms/internal/apperr"
	"github.com/rx3lixir/focus_rooms/internal/auth"
	"github.com/rx3lixir/focus_rooms/pkg/httputil"
)

type Handler struct {
	service   *Service
	log       *slog.Logger
	dbTimeout time.Duration
}

func NewHandler(service *Service, log *slog.Logger, dbTimeout time.Duration) *Handler {
	if dbTimeout == 0 {
		dbTimeout = time.Second * 5
	}
	return &Handler{service, log, dbTimeout}
}

// RegisterRoomRoutes mounts per-room routes. Expected at /rooms/{roomID}.
func (h *Handler) RegisterRoomRoutes(r chi.Router) {
	r.Post("/sessions", httputil.Handler(h.HandleSaveSession, h.log))
	r.Get("/sessions/me", httputil.Handler(h.HandleUserSessions, h.log))
	r.Get("/leaderboard", httputil.Handler(h.HandleRoomLeaderboard, h.log))
}

// RegisterRoutes mounts the global leaderboard. Expected at /leaderboard.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", httputil.Handler(h.HandleGlobalLeaderboard, h.log))
}

func (h *Handler) dbCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.dbTimeout)
}

// HandleSaveSession logs a completed or stopped timer run
func (h *Handler) HandleSaveSession(w http.ResponseWriter, r *http.Request) error {
	caller := auth.IdentityFrom(r.Context())
	roomID, err := httputil.ParseUUID(r, "roomID")
	if err != nil {
		return err
	}

	req := new(SaveRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	sess, err := h.service.Save(ctx, caller, roomID, *req)
	if err != nil {
		h.log.Warn("save session failed",
			"room_id", roomID,
			"user_id", caller.UserID,
			"error", err)
		return apperr.ToHTTP(err)
	}

	return httputil.RespondJSON(w, http.StatusCreated, sess)
}

func (h *Handler) HandleUserSessions(w http.ResponseWriter, r *http.Request) error {
	caller := auth.IdentityFrom(r.Context())
	roomID, err := httputil.ParseUUID(r, "roomID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	sessions, err := h.service.UserSessions(ctx, caller, roomID)
	if err != nil {
		return apperr.ToHTTP(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, ListSessionsResponse{Sessions: sessions, Count: len(sessions)})
}

func (h *Handler) HandleRoomLeaderboard(w http.ResponseWriter, r *http.Request) error {
	roomID, err := httputil.ParseUUID(r, "roomID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	entries, err := h.service.RoomLeaderboard(ctx, roomID)
	if err != nil {
		h.log.Error("failed to build room leaderboard",
			"room_id", roomID,
			"error", err)
		return apperr.ToHTTP(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, LeaderboardResponse{Entries: entries})
}

// HandleGlobalLeaderboard ranks users across all rooms for ?period=
func (h *Handler) HandleGlobalLeaderboard(w http.ResponseWriter, r *http.Request) error {
	period := Period(r.URL.Query().Get("period"))
	if period == "" {
		period = PeriodLifetime
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	entries, err := h.service.GlobalLeaderboard(ctx, period)
	if err != nil {
		return apperr.ToHTTP(err)
	}

	h.log.Debug("global leaderboard built",
		"period", period,
		"entries", len(entries))

	return httputil.RespondJSON(w, http.StatusOK, LeaderboardResponse{Period: period, Entries: entries})
}
