package session

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidSession     = errors.New("invalid or revoked session")
	ErrSessionExpired     = errors.New("session credential expired")
)
