package service

import "errors"

// Guard rejections. The HTTP layer maps each to a status code.
var (
	ErrMissingCredential = errors.New("missing bearer credential")
	ErrInvalidToken      = errors.New("invalid or expired token")
	ErrWrongTokenKind    = errors.New("wrong token kind")
	ErrTokenRevoked      = errors.New("token has been revoked")
	ErrForbidden         = errors.New("role not allowed")
)

// Session and user errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
)
