package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account represents a user's durable identity and credential state.
type Account struct {
	ID                uuid.UUID
	Username          string
	Email             string
	PasswordHash      string
	EmailConfirmed    bool
	FailedAccessCount int
	LockoutEnd        *time.Time
	// SecurityStamp is rotated whenever credentials or confirmation
	// state change; every outstanding token is bound to it.
	SecurityStamp string
	// Version is the optimistic-concurrency token checked by
	// CredentialStore.Update.
	Version   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsLockedOut returns true if the account is locked at the given time.
func (a *Account) IsLockedOut(now time.Time) bool {
	if a.LockoutEnd == nil {
		return false
	}
	return now.Before(*a.LockoutEnd)
}

// LockoutRemaining returns how long the lockout lasts from now,
// or zero if the account is not locked.
func (a *Account) LockoutRemaining(now time.Time) time.Duration {
	if !a.IsLockedOut(now) {
		return 0
	}
	return a.LockoutEnd.Sub(now)
}
