package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/rx3lixir/focus_rooms/pkg/httputil"
)

// Identify attaches the caller identity when a bearer token is present.
// Requests without a token pass through anonymously; a bad token is a 401.
func Identify(authService *Service, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(authHeader)
			if !ok {
				httputil.RespondError(w, r, httputil.Unauthorized("invalid authorization format"), log)
				return
			}

			claims, err := authService.ValidateAccessToken(token)
			if err != nil {
				httputil.RespondError(w, r, &httputil.HTTPError{
					Status:  http.StatusUnauthorized,
					Message: "invalid token",
					Cause:   err,
				}, log)
				return
			}

			ctx := WithIdentity(r.Context(), claims.Identity())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Require rejects anonymous requests.
func Require(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IdentityFrom(r.Context()).Authenticated() {
				httputil.RespondError(w, r, httputil.Unauthorized("authorization required"), log)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
