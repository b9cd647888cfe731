// Package httputil adapts error-returning handlers to net/http and renders
// JSON bodies and failures in one shape.
package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

type HandlerFunc func(http.ResponseWriter, *http.Request) error

// Handler turns a returned error into an error response.
func Handler(h HandlerFunc, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			RespondError(w, r, err, log)
		}
	}
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
	Details   any    `json:"details,omitempty"`
}

// RespondError writes err as JSON. Anything that is not an *HTTPError is
// treated as a 500 and its text never reaches the client.
func RespondError(w http.ResponseWriter, r *http.Request, err error, log *slog.Logger) {
	reqID := middleware.GetReqID(r.Context())
	if reqID == "" {
		reqID = "unknown"
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		httpErr = &HTTPError{
			Status:  http.StatusInternalServerError,
			Message: "Internal Server Error",
			Cause:   err,
		}
	}

	level, msg := slog.LevelWarn, "client error"
	if httpErr.Status >= http.StatusInternalServerError {
		level, msg = slog.LevelError, "request failed"
	}
	log.Log(r.Context(), level, msg,
		"error", err,
		"status", httpErr.Status,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", reqID,
	)

	httpErr.setHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpErr.Status)

	_ = json.NewEncoder(w).Encode(errorResponse{
		Error:     httpErr.Message,
		RequestID: reqID,
		Details:   httpErr.Details,
	})
}

func RespondJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// DecodeJSON requires a body and rejects unknown fields.
func DecodeJSON(r *http.Request, target any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return BadRequest("Request body is required")
	}
	if err := decode(r, target); errors.Is(err, io.EOF) {
		return BadRequest("Request body is required")
	} else if err != nil {
		return err
	}
	return nil
}

// DecodeOptionalJSON leaves target untouched when the request has no body.
func DecodeOptionalJSON(r *http.Request, target any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := decode(r, target)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func decode(r *http.Request, target any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return err
		}
		return BadRequest("Invalid JSON format", map[string]string{
			"parse_error": err.Error(),
		})
	}
	return nil
}

// ParseUUID reads a chi URL parameter as a UUID.
func ParseUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	if raw == "" {
		return uuid.Nil, BadRequest(fmt.Sprintf("%s is required", param))
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, BadRequest(fmt.Sprintf("Invalid %s", param))
	}
	return id, nil
}
