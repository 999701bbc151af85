package auth

import "errors"

// Sentinel errors for token inspection and authorization.
var (
	ErrTokenMalformed = errors.New("auth: token malformed")
	ErrTokenExpired   = errors.New("auth: token expired")
	ErrUnknownRole    = errors.New("auth: unknown role")

	ErrForbidden = errors.New("auth: access denied")
)
