package websocket

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rx3lixir/focus_rooms/internal/auth"
	"github.com/rx3lixir/focus_rooms/pkg/httputil"
)

type Handler struct {
	manager     *Manager
	authService *auth.Service
	log         *slog.Logger
}

func NewHandler(manager *Manager, authService *auth.Service, log *slog.Logger) *Handler {
	return &Handler{
		manager:     manager,
		authService: authService,
		log:         log,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.HandleConnection)
}

// HandleConnection subscribes to a room's invalidations. The token is
// optional; a token that is present must be valid.
func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	roomIDStr := r.URL.Query().Get("room_id")
	if roomIDStr == "" {
		httputil.RespondError(w, r, httputil.BadRequest("room_id parameter required"), h.log)
		return
	}

	roomID, err := uuid.Parse(roomIDStr)
	if err != nil {
		httputil.RespondError(w, r, httputil.BadRequest("invalid room_id format"), h.log)
		return
	}

	// Browsers cannot set headers on websocket requests, so the query wins
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}

	var userID uuid.UUID
	if token != "" {
		claims, err := h.authService.ValidateAccessToken(token)
		if err != nil {
			httputil.RespondError(w, r, httputil.Unauthorized("invalid or expired token"), h.log)
			return
		}
		userID = claims.UserID
	}

	h.log.Info("establishing websocket connection",
		"user_id", userID,
		"room_id", roomID,
	)

	if err := h.manager.ServeWS(w, r, userID, roomID); err != nil {
		h.log.Warn("websocket upgrade failed",
			"room_id", roomID,
			"error", err,
		)
	}
}
