package chat

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

// RegisterRoutes mounts cursor and chat routes. Expected at /rooms/{roomID}.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/cursors", httputil.Handler(h.HandleListCursors, h.log))
	r.Put("/cursors/me", httputil.Handler(h.HandleUpdateCursor, h.log))
	r.Delete("/cursors/me", httputil.Handler(h.HandleRemoveCursor, h.log))

	r.Get("/chat", httputil.Handler(h.HandleListMessages, h.log))
	r.Post("/chat", httputil.Handler(h.HandleSendMessage, h.log))
}

func (h *Handler) dbCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.dbTimeout)
}

func (h *Handler) HandleListCursors(w http.ResponseWriter, r *http.Request) error {
	roomID, err := httputil.ParseUUID(r, "roomID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	cursors, err := h.service.Cursors(ctx, roomID)
	if err != nil {
		h.log.Error("failed to list cursors",
			"room_id", roomID,
			"error", err)
		return apperr.ToHTTP(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, CursorsResponse{Cursors: cursors, Count: len(cursors)})
}

func (h *Handler) HandleUpdateCursor(w http.ResponseWriter, r *http.Request) error {
	caller := auth.IdentityFrom(r.Context())
	roomID, err := httputil.ParseUUID(r, "roomID")
	if err != nil {
		return err
	}

	req := new(CursorRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	if err := h.service.UpdateCursor(ctx, caller, roomID, *req); err != nil {
		return apperr.ToHTTP(err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *Handler) HandleRemoveCursor(w http.ResponseWriter, r *http.Request) error {
	caller := auth.IdentityFrom(r.Context())
	roomID, err := httputil.ParseUUID(r, "roomID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	if err := h.service.RemoveCursor(ctx, caller, roomID); err != nil {
		return apperr.ToHTTP(err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// HandleListMessages returns the recent chat history
func (h *Handler) HandleListMessages(w http.ResponseWriter, r *http.Request) error {
	roomID, err := httputil.ParseUUID(r, "roomID")
	if err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	messages, err := h.service.Messages(ctx, roomID)
	if err != nil {
		h.log.Error("failed to list messages",
			"room_id", roomID,
			"error", err)
		return apperr.ToHTTP(err)
	}

	return httputil.RespondJSON(w, http.StatusOK, MessagesResponse{Messages: messages, Count: len(messages)})
}

// HandleSendMessage posts a chat message at the caller's cursor
func (h *Handler) HandleSendMessage(w http.ResponseWriter, r *http.Request) error {
	caller := auth.IdentityFrom(r.Context())
	roomID, err := httputil.ParseUUID(r, "roomID")
	if err != nil {
		return err
	}

	req := new(MessageRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	msg, err := h.service.Send(ctx, caller, roomID, *req)
	if err != nil {
		h.log.Debug("send message failed",
			"room_id", roomID,
			"user_id", caller.UserID,
			"error", err)
		return apperr.ToHTTP(err)
	}

	return httputil.RespondJSON(w, http.StatusCreated, msg)
}
