package user

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
		dbTimeout = 5 * time.Second
	}
	return &Handler{service: service, log: log, dbTimeout: dbTimeout}
}

// RegisterUserRoutes registers profile endpoints. Callers must be authenticated.
func (h *Handler) RegisterUserRoutes(r chi.Router) {
	r.Get("/me", httputil.Handler(h.HandleMe, h.log))
	r.Patch("/me", httputil.Handler(h.HandleUpdateMe, h.log))
}

func (h *Handler) RegisterAuthRoutes(r chi.Router) {
	r.Post("/signup", httputil.Handler(h.HandleSignup, h.log))
	r.Post("/signin", httputil.Handler(h.HandleSignin, h.log))
	r.Post("/refresh", httputil.Handler(h.HandleRefreshToken, h.log))
}

func (h *Handler) dbCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), h.dbTimeout)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := h.dbCtx(r)
	defer cancel()

	resp, err := h.service.Get(ctx, auth.GetUserID(r.Context()))
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return httputil.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) error {
	userID := auth.GetUserID(r.Context())

	req := new(UpdateProfileRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	resp, err := h.service.UpdateProfile(ctx, userID, *req)
	if err != nil {
		h.log.Debug("profile update failed", "user_id", userID, "error", err)
		return apperr.ToHTTP(err)
	}
	return httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleSignup creates an account and answers with a token pair.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) error {
	req := new(SignupRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	resp, err := h.service.Signup(ctx, *req)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return httputil.RespondJSON(w, http.StatusCreated, resp)
}

func (h *Handler) HandleSignin(w http.ResponseWriter, r *http.Request) error {
	req := new(SigninRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	resp, err := h.service.Signin(ctx, *req)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return httputil.RespondJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleRefreshToken(w http.ResponseWriter, r *http.Request) error {
	req := new(RefreshTokenRequest)
	if err := httputil.DecodeJSON(r, req); err != nil {
		return err
	}

	ctx, cancel := h.dbCtx(r)
	defer cancel()

	resp, err := h.service.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return apperr.ToHTTP(err)
	}
	return httputil.RespondJSON(w, http.StatusOK, resp)
}
