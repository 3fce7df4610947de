package account

import "errors"

var (
	ErrLoginRequired  = errors.New("login required")
	ErrMissingGuestID = errors.New("missing guest id")
	ErrInvalidGuestID = errors.New("invalid guest id")
)
