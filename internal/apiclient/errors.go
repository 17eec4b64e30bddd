package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies failures of a backend call.
type ErrorKind string

const (
	ErrorKindRequest      ErrorKind = "Request"
	ErrorKindNetwork      ErrorKind = "Network"
	ErrorKindUnauthorized ErrorKind = "Unauthorized"
	ErrorKindHTTP         ErrorKind = "HTTP"
	ErrorKindDecode       ErrorKind = "Decode"
)

// Error describes a failed call to the backend.
type Error struct {
	Op     string
	Kind   ErrorKind
	Method string
	Path   string
	Status int
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return "api client error"
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err carries a 401 response.
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// KindOf returns the kind carried by err, or "".
func KindOf(err error) ErrorKind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

func wrapError(op string, kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Kind: kind, Err: err}
}

func statusError(op, method, path string, status int, body []byte) *Error {
	kind := ErrorKindHTTP
	if status == http.StatusUnauthorized {
		kind = ErrorKindUnauthorized
	}
	detail := parseDetail(body)
	err := fmt.Errorf("unexpected status %d", status)
	if detail != "" {
		err = fmt.Errorf("unexpected status %d: %s", status, detail)
	}
	return &Error{Op: op, Kind: kind, Method: method, Path: path, Status: status, Detail: detail, Err: err}
}

// parseDetail extracts the "detail" field of an error body. The backend sends
// either a string or a list of validation entries with a "msg" field.
func parseDetail(body []byte) string {
	body = []byte(strings.TrimSpace(string(body)))
	if len(body) == 0 {
		return ""
	}
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		var text string
		if json.Unmarshal(body, &text) == nil {
			return text
		}
		return truncate(string(body), 200)
	}
	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		return text
	}
	var entries []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &entries); err == nil {
		msgs := make([]string, 0, len(entries))
		for _, entry := range entries {
			if entry.Msg != "" {
				msgs = append(msgs, entry.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return truncate(string(envelope.Detail), 200)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
