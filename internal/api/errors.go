// Package api implements the content management API client used by the bulk tooling.
package api

import (
	"encoding/json"
	"fmt"
	nethttp "net/http"

	"github.com/cockroachdb/errors"

	inthttp "github.com/andresharpe/cute-sub002/internal/http"
	"github.com/andresharpe/cute-sub002/internal/ratelimit"
)

// ErrEmptyBaseURL is returned by NewClient when no API base URL is configured.
var ErrEmptyBaseURL = errors.New("API base URL is empty")

// StatusError is a non-2xx response from the API.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	ErrorID    string // sys.id of the error body, e.g. "VersionMismatch"
	Message    string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s %s: status %d", e.Method, e.Path, e.StatusCode)
	if e.ErrorID != "" {
		msg += " " + e.ErrorID
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Type classifies the status for retry purposes.
func (e *StatusError) Type() inthttp.ErrorType {
	return inthttp.ClassifyStatus(e.StatusCode)
}

// errorBody is the API's error envelope.
type errorBody struct {
	Sys struct {
		ID string `json:"id"`
	} `json:"sys"`
	Message string `json:"message"`
}

// newStatusError builds the error for resp. Failures another attempt cannot
// fix are marked permanent so the rate limiter does not retry them.
func newStatusError(method, path string, status int, body []byte) error {
	se := &StatusError{Method: method, Path: path, StatusCode: status}
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		se.ErrorID = eb.Sys.ID
		se.Message = eb.Message
	} else if len(body) > 0 {
		se.Message = truncate(string(body), 200)
	}

	switch se.Type() {
	case inthttp.ErrorTypeFatal, inthttp.ErrorTypeCredential:
		return ratelimit.Permanent(se)
	default:
		return se
	}
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return StatusCode(err) == nethttp.StatusNotFound
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
