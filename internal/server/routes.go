package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rx3lixir/focus_rooms/internal/auth"
	"github.com/rx3lixir/focus_rooms/internal/chat"
	"github.com/rx3lixir/focus_rooms/internal/participant"
	"github.com/rx3lixir/focus_rooms/internal/room"
	"github.com/rx3lixir/focus_rooms/internal/session"
	"github.com/rx3lixir/focus_rooms/internal/user"
	"github.com/rx3lixir/focus_rooms/internal/websocket"
	"github.com/rx3lixir/focus_rooms/pkg/httputil"
)

type RouterConfig struct {
	UserHandler        *user.Handler
	RoomHandler        *room.Handler
	ParticipantHandler *participant.Handler
	SessionHandler     *session.Handler
	ChatHandler        *chat.Handler
	WSHandler          *websocket.Handler

	AuthService    *auth.Service
	RateLimiter    *RateLimiter
	AllowedOrigins []string
	// Health reports whether the backing stores are reachable.
	Health func(ctx context.Context) error

	Log *slog.Logger
}

func NewRouter(config RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware block
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(config.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", httputil.Handler(healthHandler(config.Health), config.Log))

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Identify(config.AuthService, config.Log))
		if config.RateLimiter != nil {
			r.Use(config.RateLimiter.Mutations(config.Log))
		}

		r.Route("/auth", config.UserHandler.RegisterAuthRoutes)

		r.Route("/users", func(r chi.Router) {
			r.Use(auth.Require(config.Log))
			config.UserHandler.RegisterUserRoutes(r)
		})

		r.Route("/rooms", func(r chi.Router) {
			config.RoomHandler.RegisterRoutes(r)

			r.Route("/{roomID}", func(r chi.Router) {
				config.RoomHandler.RegisterItemRoutes(r)
				config.ParticipantHandler.RegisterRoutes(r)
				config.SessionHandler.RegisterRoomRoutes(r)
				config.ChatHandler.RegisterRoutes(r)
			})
		})

		r.Route("/leaderboard", config.SessionHandler.RegisterRoutes)
		r.Route("/ws", config.WSHandler.RegisterRoutes)
	})

	return r
}

func healthHandler(check func(ctx context.Context) error) httputil.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := check(ctx); err != nil {
				return &httputil.HTTPError{
					Status:  http.StatusServiceUnavailable,
					Message: "unhealthy",
					Cause:   err,
				}
			}
		}
		return httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
