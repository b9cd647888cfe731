package room

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

// RegisterRoutes mounts the collection routes. Expected at /rooms.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", httputil.Handler(h.HandleListRooms, h.log))
	r.Post("/", httputil.Handler(h.HandleCreateRoom, h.log))
}

// RegisterItemRoutes mounts the single-room routes. Expected at /rooms/{roomID}.
func (h *Handler) RegisterItemRoutes(r chi.Router) {
	r.Get("/", httputil.Handler(h.HandleGetRoom, h.log))
	r.Patch("/", httputil.Handler(h.HandleUpdateRoom, h.log))
	r.Delete("/", httputil.Handler(h.HandleDeleteRoom, h.log))
}

func (h *Handler) dbCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.dbTimeout)
}

// HandleListRooms lists public rooms and the caller's own rooms
func (h *Handler) HandleListRooms(w http.ResponseWriter, r *http.Request) error {
	caller := auth.IdentityFrom(r.Context())

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	rooms, err := h.service.List(ctx, caller)
	if err != nil {
		h.log.Error("failed to list rooms",
			"user_id", caller.UserID,
			"error", err)
		return apperr.ToHTTP(err)
	}

	h.log.Debug("rooms listed",
		"user_id", caller.UserID,
		"room_count", len(rooms))

	return httputil.RespondJSON(w, http.StatusOK, ListRoomsResponse{Rooms: rooms, Count: len(rooms)})
}

// HandleCreateRoom creates a room owned by the caller
func (h *Handler) HandleCreateRoom(w http.ResponseWriter, r *http.Request) error {
	caller := auth.IdentityFrom(r.Context())

	req := new(CreateRoomRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	room, err := h.service.Create(ctx, caller, *req)
	if err != nil {
		return apperr.ToHTTP(err)
	}

	return httputil.RespondJSON(w, http.StatusCreated, room)
}

// HandleGetRoom gets room details
func (h *Handler) HandleGetRoom(w http.ResponseWriter, r *http.Request) error {
	caller := auth.IdentityFrom(r.Context())
	roomID, err := httputil.ParseUUID(r, "roomID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	room, err := h.service.Get(ctx, caller, roomID)
	if err != nil {
		h.log.Debug("get room failed",
			"room_id", roomID,
			"error", err)
		return apperr.ToHTTP(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, room)
}

// HandleUpdateRoom patches a room (owner only)
func (h *Handler) HandleUpdateRoom(w http.ResponseWriter, r *http.Request) error {
	caller := auth.IdentityFrom(r.Context())
	roomID, err := httputil.ParseUUID(r, "roomID")
	if err != nil {
		return err
	}

	req := new(UpdateRoomRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	room, err := h.service.Update(ctx, caller, roomID, *req)
	if err != nil {
		h.log.Warn("update room failed",
			"room_id", roomID,
			"user_id", caller.UserID,
			"error", err)
		return apperr.ToHTTP(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, room)
}

// HandleDeleteRoom deletes a room (owner only)
func (h *Handler) HandleDeleteRoom(w http.ResponseWriter, r *http.Request) error {
	caller := auth.IdentityFrom(r.Context())
	roomID, err := httputil.ParseUUID(r, "roomID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	if err := h.service.Delete(ctx, caller, roomID); err != nil {
		h.log.Warn("delete room failed",
			"room_id", roomID,
			"user_id", caller.UserID,
			"error", err)
		return apperr.ToHTTP(err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}
