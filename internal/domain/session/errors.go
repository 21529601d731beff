package session

import "errors"

// Sentinel kinds for session errors.
var (
	ErrNotFound       = errors.New("session not found")
	ErrInvalidKey     = errors.New("invalid admin key")
	ErrUnlockDisabled = errors.New("admin unlock disabled")
)
