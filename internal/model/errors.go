package model

import "errors"

// Storage-level errors.
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrVersionConflict  = errors.New("version conflict")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Request-level errors surfaced to callers.
var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrQuotaExceeded     = errors.New("quota exceeded")
	ErrGenerationFailed  = errors.New("generation failed")
	ErrProfileIncomplete = errors.New("profile incomplete")
	ErrSignupIncomplete  = errors.New("signup incomplete")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrDreamNotReady     = errors.New("dream not ready")
)
