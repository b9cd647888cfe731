package participant

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

// RegisterRoutes mounts presence routes. Expected at /rooms/{roomID}.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/join", httputil.Handler(h.HandleJoin, h.log))
	r.Post("/leave", httputil.Handler(h.HandleLeave, h.log))
	r.Get("/participants", httputil.Handler(h.HandleListParticipants, h.log))

	r.Route("/participants/me", func(r chi.Router) {
		r.Get("/", httputil.Handler(h.HandleGetMe, h.log))
		r.Put("/position", httputil.Handler(h.HandleUpdatePosition, h.log))
		r.Put("/timer", httputil.Handler(h.HandleUpdateTimer, h.log))
		r.Put("/task", httputil.Handler(h.HandleUpdateTask, h.log))
	})
}

func (h *Handler) dbCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.dbTimeout)
}

// HandleJoin joins a room or heartbeats an existing membership
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) error {
	caller := auth.IdentityFrom(r.Context())
	roomID, err := httputil.ParseUUID(r, "roomID")
	if err != nil {
		return err
	}

	req := new(JoinRequest)
	if err := httputil.DecodeOptionalJSON(r, req); err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	resp, err := h.service.Join(ctx, caller, roomID, *req)
	if err != nil {
		h.log.Debug("join failed",
			"room_id", roomID,
			"user_id", caller.UserID,
			"error", err)
		return apperr.ToHTTP(err)
	}

	status := http.StatusOK
	if resp.Created {
		status = http.StatusCreated
	}
	return httputil.RespondJSON(w, status, resp)
}

// HandleLeave removes the caller from a room
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) error {
	caller := auth.IdentityFrom(r.Context())
	roomID, err := httputil.ParseUUID(r, "roomID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	if err := h.service.Leave(ctx, caller, roomID); err != nil {
		return apperr.ToHTTP(err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// HandleListParticipants lists live participants of a room
func (h *Handler) HandleListParticipants(w http.ResponseWriter, r *http.Request) error {
	roomID, err := httputil.ParseUUID(r, "roomID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	views, err := h.service.List(ctx, roomID)
	if err != nil {
		h.log.Error("failed to list participants",
			"room_id", roomID,
			"error", err)
		return apperr.ToHTTP(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, ListResponse{Participants: views, Count: len(views)})
}

// HandleGetMe returns the caller's own participant row
func (h *Handler) HandleGetMe(w http.ResponseWriter, r *http.Request) error {
	caller := auth.IdentityFrom(r.Context())
	roomID, err := httputil.ParseUUID(r, "roomID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	p, err := h.service.Get(ctx, caller, roomID)
	if err != nil {
		return apperr.ToHTTP(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, p.View())
}

func (h *Handler) HandleUpdatePosition(w http.ResponseWriter, r *http.Request) error {
	caller := auth.IdentityFrom(r.Context())
	roomID, err := httputil.ParseUUID(r, "roomID")
	if err != nil {
		return err
	}

	req := new(PositionRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	if err := h.service.UpdatePosition(ctx, caller, roomID, *req); err != nil {
		return apperr.ToHTTP(err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// HandleUpdateTimer writes the caller's timer, 409 on a stale version
func (h *Handler) HandleUpdateTimer(w http.ResponseWriter, r *http.Request) error {
	caller := auth.IdentityFrom(r.Context())
	roomID, err := httputil.ParseUUID(r, "roomID")
	if err != nil {
		return err
	}

	req := new(TimerRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	snap, err := h.service.UpdateTimer(ctx, caller, roomID, *req)
	if err != nil {
		return apperr.ToHTTP(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, snap)
}

func (h *Handler) HandleUpdateTask(w http.ResponseWriter, r *http.Request) error {
	caller := auth.IdentityFrom(r.Context())
	roomID, err := httputil.ParseUUID(r, "roomID")
	if err != nil {
		return err
	}

	req := new(TaskRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	if err := h.service.UpdateTask(ctx, caller, roomID, *req); err != nil {
		return apperr.ToHTTP(err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}
