// Package common defines sentinel errors and small helpers shared by the
// server, the worker and the CLI. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Validation errors (missing or malformed request fields).
	ErrValidation = errors.New("validation error")

	// Credential errors.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrEmptyInput         = errors.New("input cannot be empty")
	ErrMissingEmail       = errors.New("user has no email")

	// Email confirmation errors.
	ErrAlreadyVerified = errors.New("email already verified")
	ErrTokenMismatch   = errors.New("token does not belong to confirmation record")

	// Token errors.
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrTokenRevoked        = errors.New("token revoked")
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")

	// Infrastructure errors.
	ErrHashingFailure = errors.New("hashing failure")
	ErrSigningFailure = errors.New("signing failure")
	ErrEntropyFailure = errors.New("entropy source failure")
	ErrQueue          = errors.New("queue failure")

	// Configuration errors.
	ErrConfiguration = errors.New("configuration error")
)
