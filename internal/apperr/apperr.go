// Package apperr defines the failure kinds shared by every room operation
// and their mapping onto HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rx3lixir/focus_rooms/pkg/httputil"
)

var (
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrNotFound          = errors.New("not found")
	ErrNotAuthorized     = errors.New("not authorized")
	ErrInvalidJoinCode   = errors.New("invalid join code")
	ErrRoomFull          = errors.New("room is full")
	ErrValidation        = errors.New("validation error")
	ErrStaleTimerVersion = errors.New("stale timer version")
)

type kindInfo struct {
	kind   error
	code   string
	status int
}

var kinds = []kindInfo{
	{ErrNotAuthenticated, "not_authenticated", http.StatusUnauthorized},
	{ErrNotFound, "not_found", http.StatusNotFound},
	{ErrNotAuthorized, "not_authorized", http.StatusForbidden},
	{ErrInvalidJoinCode, "invalid_join_code", http.StatusForbidden},
	{ErrRoomFull, "room_full", http.StatusConflict},
	{ErrValidation, "validation_error", http.StatusBadRequest},
	{ErrStaleTimerVersion, "stale_timer_version", http.StatusConflict},
}

// Error attaches a user-facing message and optional payload to a failure kind.
type Error struct {
	Kind    error
	Message string
	Data    any
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func New(kind error, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

func WithData(kind error, msg string, data any) error {
	return &Error{Kind: kind, Message: msg, Data: data}
}

func Validation(format string, args ...any) error {
	return &Error{Kind: ErrValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(what string) error {
	return &Error{Kind: ErrNotFound, Message: what + " not found"}
}

// Code returns the wire code of the failure kind err belongs to, or "" for
// unclassified errors.
func Code(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.kind) {
			return k.code
		}
	}
	return ""
}

// FromCode is the inverse of Code. Unknown codes yield nil.
func FromCode(code string) error {
	for _, k := range kinds {
		if k.code == code {
			return k.kind
		}
	}
	return nil
}

// ToHTTP converts a service error into the error type understood by
// httputil.Handler. Unclassified errors become 500s.
func ToHTTP(err error) error {
	if err == nil {
		return nil
	}

	var httpErr *httputil.HTTPError
	if errors.As(err, &httpErr) {
		return err
	}

	for _, k := range kinds {
		if !errors.Is(err, k.kind) {
			continue
		}

		msg := k.kind.Error()
		details := map[string]any{"code": k.code}

		var appErr *Error
		if errors.As(err, &appErr) {
			msg = appErr.Message
			if appErr.Data != nil {
				details["data"] = appErr.Data
			}
		}

		return &httputil.HTTPError{
			Status:  k.status,
			Message: msg,
			Cause:   err,
			Details: details,
		}
	}

	return httputil.Internal(err)
}
