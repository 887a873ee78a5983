package auth

import "errors"

// Shared error taxonomy for the authorization core. Other components wrap
// these sentinels with short human-readable messages; the HTTP layer maps
// them to status codes in one place.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("resource conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// ErrInvalidToken indicates the token failed validation.
var ErrInvalidToken = errors.New("invalid token")
