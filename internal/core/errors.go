package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeChannelNotFound = "channel_not_found"
	ErrCodeMessageTooLong  = "message_too_long"
	ErrCodeBadRequest      = "bad_request"
	ErrCodeUnauthorized    = "unauthorized"
	ErrCodeRateLimited     = "rate_limited"
)

var (
	// ErrEmptyMessage marks a send whose body is blank after trimming.
	// Callers treat it as a no-op rather than a failure.
	ErrEmptyMessage = errors.New("empty message")
	// ErrChannelNotFound is returned when a channel is unknown or not visible to the caller.
	ErrChannelNotFound = errors.New("channel not found")
	// ErrNotServerChannel is returned when a server-only event targets a direct channel.
	ErrNotServerChannel = errors.New("not a server channel")
	ErrBadRequest       = errors.New("bad request")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// errMessageTooLong is the user-visible rejection for oversized bodies.
var errMessageTooLong = coreError(ErrCodeMessageTooLong, "Message must contain characters less than 5,000")
