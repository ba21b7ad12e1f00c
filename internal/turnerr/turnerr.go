// Package turnerr defines the unified error envelope returned to /chat
// callers: a single typed error carrying its own HTTP status, in place of
// several ad hoc JSON error shapes.
package turnerr

import "net/http"

// Code is a stable, client-facing error code.
type Code string

const (
	BadRequest      Code = "BAD_REQUEST"
	Unauthorized    Code = "UNAUTHORIZED"
	PayloadTooLarge Code = "PAYLOAD_TOO_LARGE"
	Unprocessable   Code = "UNPROCESSABLE"
	RateLimited     Code = "RATE_LIMITED"
	InternalError   Code = "INTERNAL_ERROR"
	Backend5xx      Code = "BACKEND_5XX"
)

var statusForCode = map[Code]int{
	BadRequest:      http.StatusBadRequest,
	Unauthorized:    http.StatusUnauthorized,
	PayloadTooLarge: http.StatusRequestEntityTooLarge,
	Unprocessable:   http.StatusUnprocessableEntity,
	RateLimited:     http.StatusTooManyRequests,
	InternalError:   http.StatusInternalServerError,
	Backend5xx:      http.StatusBadGateway,
}

// Error is the envelope serialised as the JSON body of every non-2xx
// response from the gateway.
type Error struct {
	Code       Code   `json:"code"`
	Message    string `json:"message"`
	Status     int    `json:"status"`
	TraceID    string `json:"traceId,omitempty"`
	Details    string `json:"details,omitempty"`
	RetryAfter int    `json:"retryAfter,omitempty"`
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// New builds an Error, resolving Status from Code.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, Status: statusForCode[code]}
}

// Newf is New with a details string attached.
func Newf(code Code, message, details string) *Error {
	e := New(code, message)
	e.Details = details
	return e
}

// WithTraceID returns a copy of e with TraceID set.
func (e *Error) WithTraceID(id string) *Error {
	cp := *e
	cp.TraceID = id
	return &cp
}

// RateLimitedError builds the RATE_LIMITED error carrying a retry hint.
func RateLimitedError(retryAfter int) *Error {
	e := New(RateLimited, "rate limit exceeded")
	e.RetryAfter = retryAfter
	return e
}
