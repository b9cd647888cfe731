package httputil

import (
	"net/http"
	"strconv"
	"time"
)

// HTTPError is an error with everything needed to answer the request.
type HTTPError struct {
	Status  int
	Message string // shown to the client
	Cause   error  // logged only
	Details any    // rendered under "details"

	// RetryAfter sets the Retry-After header when positive
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Cause
}

func (e *HTTPError) setHeaders(w http.ResponseWriter) {
	if e.RetryAfter > 0 {
		secs := int(e.RetryAfter.Round(time.Second) / time.Second)
		w.Header().Set("Retry-After", strconv.Itoa(max(1, secs)))
	}
}

// BadRequest takes an optional details value, e.g. the field errors.
func BadRequest(msg string, details ...any) error {
	e := &HTTPError{Status: http.StatusBadRequest, Message: msg}
	if len(details) == 1 {
		e.Details = details[0]
	} else if len(details) > 1 {
		e.Details = details
	}
	return e
}

func Unauthorized(msg string) error {
	return &HTTPError{Status: http.StatusUnauthorized, Message: msg}
}

func TooManyRequests(retryAfter time.Duration) error {
	return &HTTPError{
		Status:     http.StatusTooManyRequests,
		Message:    "too many requests",
		RetryAfter: retryAfter,
	}
}

// Internal hides err from the client and keeps it for the log.
func Internal(err error) error {
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Message: "Something went wrong",
		Cause:   err,
	}
}
