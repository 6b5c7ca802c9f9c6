package core

import "errors"

var (
	ErrMalformedToken     = errors.New("malformed token")
	ErrInvalidSignature   = errors.New("invalid signature")
	ErrTokenExpired       = errors.New("token has expired")
	ErrSessionExpired     = errors.New("session has expired")
	ErrStoreUnavailable   = errors.New("session store unavailable")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidConfig      = errors.New("invalid configuration")
)
