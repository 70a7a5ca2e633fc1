// Package web holds the request plumbing shared by the resource handlers:
// the guard pipeline, the {"data": ...} envelope and JSON error responses.
package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxBodyBytes caps request bodies read by DecodeData.
const MaxBodyBytes = 1 << 20

// Error is a client-facing failure carrying the HTTP status to respond with.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// NotFound builds a 404 Error.
func NotFound(format string, args ...any) *Error {
	return &Error{Status: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

// BadRequest builds a 400 Error.
func BadRequest(format string, args ...any) *Error {
	return &Error{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

// Handler is a terminal handler. A returned error is written by the pipeline.
type Handler func(w http.ResponseWriter, r *http.Request) error

// Guard runs before a terminal handler. It returns the request to hand to the
// next step, which may carry a derived context, or an error that ends the pipeline.
type Guard func(r *http.Request) (*http.Request, error)

// ErrorWriter turns an error into a response.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Pipeline runs guards in order and then h. The first failing guard is
// reported through onError and nothing after it runs.
func Pipeline(onError ErrorWriter, h Handler, guards ...Guard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, guard := range guards {
			next, err := guard(r)
			if err != nil {
				onError(w, r, err)
				return
			}
			if next != nil {
				r = next
			}
		}
		if err := h(w, r); err != nil {
			onError(w, r, err)
		}
	}
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

// DecodeData unmarshals the "data" member of a request body into dst. An empty
// body or a missing/null "data" leaves dst untouched so that field validation
// reports what is missing.
func DecodeData(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes+1))
	if err != nil {
		return BadRequest("Request body could not be read")
	}
	if len(body) > MaxBodyBytes {
		return &Error{Status: http.StatusRequestEntityTooLarge, Message: "Request body is too large"}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return BadRequest("Request body must be valid JSON")
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return nil
	}

	if err := json.Unmarshal(env.Data, dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return BadRequest("Field %s has an invalid type", typeErr.Field)
		}
		return BadRequest("Request body data must be an object")
	}
	return nil
}

// Respond writes v as JSON with the given status.
func Respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RespondData wraps data in the {"data": ...} envelope.
func RespondData(w http.ResponseWriter, status int, data any) {
	Respond(w, status, map[string]any{"data": data})
}

// RespondError writes {"error": message}. Errors other than *Error become a
// generic 500.
func RespondError(w http.ResponseWriter, err error) {
	var webErr *Error
	if errors.As(err, &webErr) {
		Respond(w, webErr.Status, map[string]string{"error": webErr.Message})
		return
	}
	Respond(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
}
