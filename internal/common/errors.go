// Package common defines shared sentinel errors used across the bot's
// layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound        = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")

	// Service-level errors (generic/internal flow control).
	ErrInternal         = errors.New("internal error")
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInvalidCredential is deliberately vague: it covers both unknown
	// principals and wrong passwords/codes, so callers cannot tell which
	// check failed.
	ErrInvalidCredential = errors.New("invalid credential")

	// Password lifecycle errors.
	ErrReusedPassword       = errors.New("password reused")
	ErrMismatchConfirmation = errors.New("confirmation mismatch")

	// Two-factor errors.
	ErrMissingTwoFactorData  = errors.New("two-factor data missing")
	ErrTwoFactorAlreadySetUp = errors.New("two-factor already enabled")
	ErrTwoFactorNotEnabled   = errors.New("two-factor not enabled")
)
