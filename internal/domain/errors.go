package domain

import "errors"

// Authentication errors.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrUserNotFound    = errors.New("user not found")
)

// ErrInvalidRequest reports a malformed or incomplete request.
var ErrInvalidRequest = errors.New("invalid request")

// Token errors.
var (
	ErrTokenGeneration      = errors.New("token generation failed")
	ErrSigningSecretMissing = errors.New("service token secret not configured")
	ErrSigningSecretWeak    = errors.New("service token secret too weak")
)

// Storage errors.
var (
	ErrStoreUnavailable = errors.New("session store unavailable")
	ErrCacheMiss        = errors.New("cache miss")
	ErrCacheUnavailable = errors.New("session cache unavailable")
)
