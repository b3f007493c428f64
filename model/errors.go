package model

import "errors"

// Shared sentinel errors. Stores and use cases wrap them with %w and the
// HTTP layer maps them to status codes.
var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("already exists")
	ErrVersionConflict   = errors.New("document was modified concurrently")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidInput      = errors.New("invalid input")
	ErrConflict          = errors.New("conflict")
	ErrRentLocked        = errors.New("listing is rent-locked")
	ErrAlreadyReported   = errors.New("already reported")
	ErrInsufficientCoins = errors.New("insufficient coins")
	ErrLocked            = errors.New("post is locked")
	ErrSessionInvalid    = errors.New("session is no longer valid")
	ErrTooManyAttempts   = errors.New("too many failed attempts")
)
