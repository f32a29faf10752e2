// Package common defines shared constants and sentinel errors used across
// NexaKey server layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Access control errors.
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")

	// Business rule errors.
	ErrLimitReached        = errors.New("free plan limit reached")
	ErrBiometricNotEnabled = errors.New("biometric recovery not enabled")
	ErrBackupsDisabled     = errors.New("backups are not configured")
)
