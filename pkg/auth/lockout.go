package auth

import (
	"time"

	"github.com/tendant/simple-accounts/pkg/domain"
)

// Default lockout tuning.
const (
	DefaultMaxFailedAttempts = 5
	DefaultLockoutDuration   = 15 * time.Minute
)

// LockoutPolicy decides, from the failure counter and the current time,
// whether login may proceed. It is pure: it mutates only the account
// passed to it and performs no I/O.
type LockoutPolicy struct {
	// MaxFailedAttempts is the failure count at which the account locks.
	MaxFailedAttempts int
	// LockoutDuration is how long the account stays locked.
	LockoutDuration time.Duration
	// ResetCountOnLockout controls whether the counter returns to zero
	// the moment the lockout engages, so a fresh window starts once it
	// expires. When false the counter stays at the threshold.
	ResetCountOnLockout bool
}

// DefaultLockoutPolicy returns a policy with the default tuning.
func DefaultLockoutPolicy() *LockoutPolicy {
	return &LockoutPolicy{
		MaxFailedAttempts:   DefaultMaxFailedAttempts,
		LockoutDuration:     DefaultLockoutDuration,
		ResetCountOnLockout: true,
	}
}

// Evaluate reports whether the account is locked at the given time and,
// if so, until when.
func (p *LockoutPolicy) Evaluate(account *domain.Account, now time.Time) (locked bool, until time.Time) {
	if account.LockoutEnd == nil || !now.Before(*account.LockoutEnd) {
		return false, time.Time{}
	}
	return true, *account.LockoutEnd
}

// RecordFailure registers a failed login attempt on the account,
// engaging the lockout when the counter reaches the threshold.
func (p *LockoutPolicy) RecordFailure(account *domain.Account, now time.Time) {
	account.FailedAccessCount++
	if account.FailedAccessCount >= p.MaxFailedAttempts {
		end := now.Add(p.LockoutDuration)
		account.LockoutEnd = &end
		if p.ResetCountOnLockout {
			account.FailedAccessCount = 0
		}
	}
}

// RecordSuccess clears the failure counter and any lockout.
func (p *LockoutPolicy) RecordSuccess(account *domain.Account) {
	account.FailedAccessCount = 0
	account.LockoutEnd = nil
}
