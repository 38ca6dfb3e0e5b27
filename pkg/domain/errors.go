package domain

import (
	"errors"
	"fmt"
	"time"
)

// Authentication errors
var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrDuplicateIdentity  = errors.New("username or email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotConfirmed  = errors.New("email address not confirmed")
	ErrAlreadyConfirmed   = errors.New("email address already confirmed")
	ErrInvalidToken       = errors.New("invalid token")
)

// Store errors
var (
	// ErrConcurrencyConflict means the account changed between read and
	// write. Services retry once with a fresh read; it never reaches
	// callers.
	ErrConcurrencyConflict = errors.New("account was modified concurrently")
)

// Validation errors
var (
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrInvalidUsername = errors.New("invalid username format")
)

// LockedOutError reports a temporarily locked account and when the
// lockout ends.
type LockedOutError struct {
	Until time.Time
}

func (e *LockedOutError) Error() string {
	return fmt.Sprintf("account locked until %s", e.Until.Format(time.RFC3339))
}

// Remaining returns the lockout time left at the given instant.
func (e *LockedOutError) Remaining(now time.Time) time.Duration {
	if now.After(e.Until) {
		return 0
	}
	return e.Until.Sub(now)
}
