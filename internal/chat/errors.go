package chat

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrUpstream wraps failures of the language model call.
	ErrUpstream = errors.New("assistant unavailable")
)
